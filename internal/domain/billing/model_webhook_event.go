package billing

import "time"

// WebhookEvent stores every verified provider event by id so redeliveries
// become no-ops.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;uniqueIndex:idx_webhook_events_provider_event"`
	EventType       string     `gorm:"type:varchar(100);not null;index"`
	EventCreatedAt  int64      `gorm:"not null"`
	ProcessedAt     *time.Time `gorm:"index"`
	ProcessingError string     `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (WebhookEvent) TableName() string {
	return "billing_webhook_events"
}
