package monetization

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/repository"
)

// Account serves the billing pages: portal access and the plan list.
type Account struct {
	customers repository.Customers
	provider  PaymentProvider
	catalog   PriceCatalog
	whitelist *plans.Whitelist
	appURL    string
	log       zerolog.Logger
}

func NewAccount(customers repository.Customers, provider PaymentProvider, catalog PriceCatalog, whitelist *plans.Whitelist, appURL string, log zerolog.Logger) *Account {
	return &Account{
		customers: customers,
		provider:  provider,
		catalog:   catalog,
		whitelist: whitelist,
		appURL:    strings.TrimRight(appURL, "/"),
		log:       log,
	}
}

// PortalURL opens the provider's self-service portal. Users who never
// checked out have no customer and get a conflict.
func (a *Account) PortalURL(ctx context.Context, userID uint) (string, error) {
	m, err := a.customers.GetByUserID(ctx, userID)
	if errors.Is(err, billing.ErrNotFound) {
		return "", &billing.ConflictError{Reason: "No billing account"}
	}
	if err != nil {
		return "", err
	}
	return a.provider.CreatePortalSession(ctx, m.ExternalCustomerID, a.appURL+"/account")
}

type PlanView struct {
	Purpose  billing.Purpose `json:"purpose"`
	Audience string          `json:"audience"`
	Price    plans.Price     `json:"price"`
}

// Plans lists every whitelisted price that the provider still reports as
// active. Prices that cannot be loaded are skipped.
func (a *Account) Plans(ctx context.Context) []PlanView {
	out := []PlanView{}
	for _, purpose := range a.whitelist.Purposes() {
		for _, id := range a.whitelist.AllowedPrices(purpose) {
			p, err := a.catalog.GetPrice(ctx, id)
			if err != nil {
				a.log.Warn().Err(err).Str("price_id", id).Msg("skipping plan price")
				continue
			}
			if !p.Active {
				continue
			}
			out = append(out, PlanView{
				Purpose:  purpose,
				Audience: plans.Audience(p.Metadata, p.Label(), p.ProductName),
				Price:    p,
			})
		}
	}
	return out
}
