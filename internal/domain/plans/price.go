package plans

import "dealflow-api/internal/domain/billing"

// Price is the catalog view of a provider price.
type Price struct {
	ID          string            `json:"id"`
	Active      bool              `json:"active"`
	Recurring   bool              `json:"recurring"`
	Interval    string            `json:"interval,omitempty"`
	UnitAmount  int64             `json:"unit_amount"`
	Currency    string            `json:"currency"`
	Nickname    string            `json:"nickname,omitempty"`
	LookupKey   string            `json:"lookup_key,omitempty"`
	ProductName string            `json:"product_name,omitempty"`
	Metadata    map[string]string `json:"-"`
}

func (p Price) Cadence() billing.Cadence {
	if p.Recurring {
		return billing.CadenceRecurring
	}
	return billing.CadenceOneTime
}

// Label is the human-ish name used by the naming-convention fallback.
func (p Price) Label() string {
	switch {
	case p.Nickname != "":
		return p.Nickname
	case p.LookupKey != "":
		return p.LookupKey
	default:
		return p.ProductName
	}
}
