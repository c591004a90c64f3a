// Package billing serves checkout, payment history and the billing portal.
package billing

import (
	"github.com/rs/zerolog"

	"dealflow-api/internal/monetization"
	"dealflow-api/internal/repository"
)

type Handler struct {
	checkout *monetization.CheckoutOrchestrator
	account  *monetization.Account
	payments repository.Payments
	log      zerolog.Logger
}

func NewHandler(checkout *monetization.CheckoutOrchestrator, account *monetization.Account, payments repository.Payments, log zerolog.Logger) *Handler {
	return &Handler{checkout: checkout, account: account, payments: payments, log: log}
}
