package billing

import "time"

// Payment records invoice outcomes for the payment history screen. It never
// feeds entitlement decisions.
type Payment struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	UserID                 uint      `gorm:"not null;index" json:"user_id"`
	InvoiceID              string    `gorm:"type:varchar(191);not null;uniqueIndex:idx_payments_invoice_id" json:"invoice_id"`
	ExternalSubscriptionID *string   `gorm:"type:varchar(191)" json:"subscription_id,omitempty"`
	AmountCents            int64     `json:"amount_cents"`
	Currency               string    `gorm:"type:varchar(8)" json:"currency"`
	Status                 string    `gorm:"type:varchar(20);not null" json:"status"`
	ReceiptURL             *string   `json:"receipt_url,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"
)
