// Package monetization holds the entitlement and checkout core: customer
// mapping, purpose-scoped checkout, evaluation pricing, webhook
// reconciliation and the read-side projections built on top of them.
package monetization

import (
	"context"

	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/infra/stripe"
)

// PaymentProvider is the subset of the provider gateway the core calls.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, userID uint, email, idempotencyKey string) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	CreateCheckoutSession(ctx context.Context, in stripe.SessionInput) (stripe.CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (stripe.Subscription, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// PriceCatalog resolves price details, usually through a cache.
type PriceCatalog interface {
	GetPrice(ctx context.Context, priceID string) (plans.Price, error)
}
