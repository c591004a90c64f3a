package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dealflow-api/internal/domain/billing"
)

// NewGorm builds the repository set on top of one gorm connection.
func NewGorm(db *gorm.DB) Set {
	return Set{
		Users:         &gormUsers{db: db},
		Customers:     &gormCustomers{db: db},
		Subscriptions: &gormSubscriptions{db: db},
		Evaluations:   &gormEvaluations{db: db},
		WebhookEvents: &gormWebhookEvents{db: db},
		Payments:      &gormPayments{db: db},
		Listings:      &gormListings{db: db},
		Investors:     &gormInvestors{db: db},
	}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, billing.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
