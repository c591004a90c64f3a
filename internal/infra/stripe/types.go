package stripe

import (
	"time"

	"dealflow-api/internal/domain/plans"
)

// Subscription is the provider subscription reduced to what the local
// mirror needs.
type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	Metadata           map[string]string
	Price              plans.Price
	Quantity           int64
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
}

type CheckoutSession struct {
	ID                string
	URL               string
	Mode              string
	PaymentStatus     string
	CustomerID        string
	SubscriptionID    string
	ClientReferenceID string
	AmountTotal       int64
	Metadata          map[string]string
}

type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	AmountPaid     int64
	AmountDue      int64
	Currency       string
	HostedURL      string
}

// SessionInput describes a checkout session to create.
type SessionInput struct {
	Mode              string // "subscription" or "payment"
	CustomerID        string
	PriceID           string
	Quantity          int64
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string
	IdempotencyKey    string
}

const (
	ModeSubscription = "subscription"
	ModePayment      = "payment"
)

// Event is a verified webhook event with its object decoded according to
// Type. Exactly one of the object pointers is set for known types.
type Event struct {
	ID      string
	Type    string
	Created int64

	Session      *CheckoutSession
	Subscription *Subscription
	Invoice      *Invoice
}

// Webhook event types handled by the reconciler.
const (
	EventCheckoutCompleted        = "checkout.session.completed"
	EventCheckoutAsyncPaymentPaid = "checkout.session.async_payment_succeeded"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaid              = "invoice.paid"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)
