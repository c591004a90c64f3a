package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EvaluationStatus string

const (
	EvaluationPurchased  EvaluationStatus = "purchased"
	EvaluationInProgress EvaluationStatus = "in_progress"
	EvaluationCompleted  EvaluationStatus = "completed"
)

func ParseEvaluationStatus(s string) (EvaluationStatus, bool) {
	switch st := EvaluationStatus(s); st {
	case EvaluationPurchased, EvaluationInProgress, EvaluationCompleted:
		return st, true
	}
	return "", false
}

func (s EvaluationStatus) rank() int {
	switch s {
	case EvaluationPurchased:
		return 0
	case EvaluationInProgress:
		return 1
	case EvaluationCompleted:
		return 2
	}
	return -1
}

// CanAdvance only allows the valuation provider to move a purchase forward.
func (s EvaluationStatus) CanAdvance(to EvaluationStatus) bool {
	return to.rank() > s.rank() && s.rank() >= 0
}

// Open evaluations block buying another one for the same listing.
func (s EvaluationStatus) Open() bool {
	return s == EvaluationPurchased || s == EvaluationInProgress
}

// EvaluationPurchase is a one-off professional evaluation bought for a listing.
type EvaluationPurchase struct {
	ID                string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	ListingID         string           `gorm:"type:varchar(36);not null;index" json:"listing_id"`
	UserID            uint             `gorm:"not null;index" json:"user_id"`
	Status            EvaluationStatus `gorm:"type:varchar(20);not null" json:"status"`
	CheckoutSessionID string           `gorm:"type:varchar(191);not null;uniqueIndex:idx_evaluation_purchases_session" json:"-"`
	ProviderEventID   string           `gorm:"type:varchar(191);not null" json:"-"`
	PriceID           string           `gorm:"type:varchar(191)" json:"price_id"`
	AmountCents       int64            `json:"amount_cents"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (e *EvaluationPurchase) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
