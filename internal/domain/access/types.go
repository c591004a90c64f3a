package access

import (
	"time"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/users"
)

// Entitlement is the gate consulted on every protected request.
// Unverified outranks Entitled: callers check it first.
type Entitlement struct {
	Entitled   bool        `json:"entitled"`
	Unverified bool        `json:"unverified"`
	Role       *users.Role `json:"role"`

	// Status and CurrentPeriodEnd describe the base membership row the
	// decision was taken from, when there is one.
	Status           billing.Status `json:"status,omitempty"`
	CurrentPeriodEnd *time.Time     `json:"current_period_end,omitempty"`

	// Degraded is set when the decision was forced closed by a read failure.
	Degraded bool `json:"degraded,omitempty"`
}

// Closed is the entitlement returned when state could not be read.
func Closed() Entitlement {
	return Entitlement{Degraded: true}
}
