// Package repository defines the persistence ports used by the monetization
// core together with their gorm implementations.
package repository

import (
	"context"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/listings"
	"dealflow-api/internal/domain/users"
)

// Lookups return billing.ErrNotFound when nothing matches.

type Users interface {
	GetByID(ctx context.Context, id uint) (users.User, error)
}

type Customers interface {
	GetByUserID(ctx context.Context, userID uint) (billing.CustomerMapping, error)
	GetByExternalID(ctx context.Context, externalID string) (billing.CustomerMapping, error)
	// InsertIfAbsent stores m unless the user already has a mapping. It
	// returns the row that ended up stored and whether m was the one written.
	InsertIfAbsent(ctx context.Context, m billing.CustomerMapping) (billing.CustomerMapping, bool, error)
}

type Subscriptions interface {
	GetByExternalID(ctx context.Context, externalID string) (billing.Subscription, error)
	ListByUser(ctx context.Context, userID uint) ([]billing.Subscription, error)
	// ListPromotionsForListings batches every listing_promo row for ids.
	ListPromotionsForListings(ctx context.Context, listingIDs []string) ([]billing.Subscription, error)
	// Insert returns false when a row with the same external id exists.
	Insert(ctx context.Context, s *billing.Subscription) (bool, error)
	// CompareAndSwap overwrites the row only if its revision still equals
	// expected. On success s.Revision is expected+1.
	CompareAndSwap(ctx context.Context, s *billing.Subscription, expected int64) (bool, error)
}

type Evaluations interface {
	GetByID(ctx context.Context, id string) (billing.EvaluationPurchase, error)
	// InsertIfAbsent is keyed by checkout session id.
	InsertIfAbsent(ctx context.Context, e *billing.EvaluationPurchase) (bool, error)
	ListForListings(ctx context.Context, listingIDs []string) ([]billing.EvaluationPurchase, error)
	// UpdateStatus moves id from -> to and reports whether it did.
	UpdateStatus(ctx context.Context, id string, from, to billing.EvaluationStatus) (bool, error)
}

type WebhookEvents interface {
	// Begin records the event and reports whether it was already processed.
	Begin(ctx context.Context, ev *billing.WebhookEvent) (bool, error)
	Finish(ctx context.Context, providerEventID string, procErr error) error
}

type Payments interface {
	// UpsertByInvoice never moves a paid invoice back to another status.
	UpsertByInvoice(ctx context.Context, p *billing.Payment) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]billing.Payment, error)
	ListAll(ctx context.Context, limit int) ([]billing.Payment, error)
}

type Listings interface {
	GetByID(ctx context.Context, id string) (listings.BusinessListing, error)
	ListActive(ctx context.Context) ([]listings.BusinessListing, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]listings.BusinessListing, error)
	CountActiveByOwner(ctx context.Context, ownerID uint) (int64, error)
	Publish(ctx context.Context, id string) error
}

type Investors interface {
	ListPublished(ctx context.Context) ([]listings.InvestorProfile, error)
	GetByUserID(ctx context.Context, userID uint) (listings.InvestorProfile, error)
}

// Set bundles every repository so wiring code can pass one value around.
type Set struct {
	Users         Users
	Customers     Customers
	Subscriptions Subscriptions
	Evaluations   Evaluations
	WebhookEvents WebhookEvents
	Payments      Payments
	Listings      Listings
	Investors     Investors
}
