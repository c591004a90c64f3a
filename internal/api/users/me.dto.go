package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
	Access  AccessDTO  `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID         uint    `json:"id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Role       *string `json:"role"`
	IsVerified bool    `json:"is_verified"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Membership *SubscriptionDTO  `json:"membership"`
	Trial      *TrialDTO         `json:"trial"`
	Listings   []SubscriptionDTO `json:"listings"`
}

type SubscriptionDTO struct {
	Purpose              string     `json:"purpose"`
	ListingID            *string    `json:"listing_id,omitempty"`
	Status               string     `json:"status"`
	PriceID              string     `json:"price_id"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
}

type TrialDTO struct {
	EndsAt   *time.Time `json:"ends_at"`
	DaysLeft *int       `json:"days_left"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	Entitled   bool `json:"entitled"`
	Unverified bool `json:"unverified"`
	// Pending is true right after a checkout, until the webhook lands.
	Pending  bool `json:"pending"`
	Degraded bool `json:"degraded,omitempty"`
}
