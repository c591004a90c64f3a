package stripe

import (
	"strings"

	"dealflow-api/internal/domain/billing"
)

// NormalizeStatus maps the provider's subscription status onto the local
// lifecycle. Empty or unknown values come back as incomplete so they never
// entitle anyone.
func NormalizeStatus(s string) billing.Status {
	if st := billing.ParseStatus(s); st != "" {
		return st
	}
	return billing.StatusIncomplete
}

// IsPaid reports whether a checkout session's payment status settled.
func IsPaid(paymentStatus string) bool {
	switch strings.TrimSpace(paymentStatus) {
	case "paid", "no_payment_required":
		return true
	}
	return false
}
