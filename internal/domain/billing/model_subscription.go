package billing

import "time"

// Subscription is the local mirror of a provider subscription. Only the
// webhook reconciler writes it.
type Subscription struct {
	ID                     uint    `gorm:"primaryKey" json:"-"`
	ExternalSubscriptionID string  `gorm:"column:external_subscription_id;type:varchar(191);not null;uniqueIndex:idx_subscriptions_external_id" json:"external_subscription_id"`
	UserID                 uint    `gorm:"not null;index" json:"user_id"`
	Purpose                Purpose `gorm:"type:varchar(32);not null;index" json:"purpose"`
	ListingID              *string `gorm:"type:varchar(36);index" json:"listing_id,omitempty"`
	ExternalCustomerID     string  `gorm:"type:varchar(191)" json:"-"`

	PriceID       string            `gorm:"type:varchar(191);not null" json:"price_id"`
	PriceLabel    string            `gorm:"type:varchar(191)" json:"-"`
	PriceMetadata map[string]string `gorm:"type:text;serializer:json" json:"-"`

	Status             Status     `gorm:"type:varchar(32);not null;index" json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `gorm:"not null;default:false" json:"cancel_at_period_end"`

	// SourceEventAt is the provider timestamp (unix seconds) of the event that
	// produced the stored state; Revision is the optimistic-lock counter.
	SourceEventAt int64 `gorm:"not null;default:0" json:"-"`
	Revision      int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActiveAt reports whether the row is active with a period running past now.
func (s Subscription) ActiveAt(now time.Time) bool {
	return s.Status == StatusActive && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
}

// PeriodEndUnix is 0 when the period end is unknown.
func (s Subscription) PeriodEndUnix() int64 {
	if s.CurrentPeriodEnd == nil {
		return 0
	}
	return s.CurrentPeriodEnd.Unix()
}
