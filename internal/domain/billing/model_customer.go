package billing

import "time"

// CustomerMapping ties an application user to exactly one provider customer.
// Rows are written once and never deleted.
type CustomerMapping struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             uint   `gorm:"not null;uniqueIndex:idx_customer_mappings_user_id"`
	ExternalCustomerID string `gorm:"column:external_customer_id;type:varchar(191);not null;uniqueIndex:idx_customer_mappings_external_id"`
	Email              string `gorm:"type:varchar(200)"`
	CreatedAt          time.Time
}
