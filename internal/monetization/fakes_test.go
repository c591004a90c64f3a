package monetization

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/listings"
	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/domain/users"
	"dealflow-api/internal/infra/stripe"
	"dealflow-api/internal/repository"
	"dealflow-api/internal/repository/memory"
)

type fakeProvider struct {
	mu sync.Mutex

	customersCreated int
	deletedCustomers []string
	sessions         []stripe.SessionInput
	subscriptions    map[string]stripe.Subscription

	beforeCreateCustomer func()
	checkoutErr          error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subscriptions: map[string]stripe.Subscription{}}
}

func (p *fakeProvider) CreateCustomer(ctx context.Context, userID uint, email, key string) (string, error) {
	if p.beforeCreateCustomer != nil {
		p.beforeCreateCustomer()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customersCreated++
	return fmt.Sprintf("cus_%d_%d", userID, p.customersCreated), nil
}

func (p *fakeProvider) DeleteCustomer(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletedCustomers = append(p.deletedCustomers, id)
	return nil
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, in stripe.SessionInput) (stripe.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checkoutErr != nil {
		return stripe.CheckoutSession{}, p.checkoutErr
	}
	p.sessions = append(p.sessions, in)
	id := fmt.Sprintf("cs_%d", len(p.sessions))
	return stripe.CheckoutSession{ID: id, URL: "https://checkout.test/" + id, Mode: in.Mode}, nil
}

func (p *fakeProvider) GetSubscription(ctx context.Context, id string) (stripe.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.subscriptions[id]
	if !ok {
		return stripe.Subscription{}, &billing.UpstreamError{Op: "subscription.get", Err: billing.ErrNotFound}
	}
	return s, nil
}

func (p *fakeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return "https://portal.test/" + customerID, nil
}

func (p *fakeProvider) sessionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *fakeProvider) lastSession() stripe.SessionInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[len(p.sessions)-1]
}

type fakeCatalog struct {
	prices map[string]plans.Price
}

func (c fakeCatalog) GetPrice(ctx context.Context, id string) (plans.Price, error) {
	p, ok := c.prices[id]
	if !ok {
		return plans.Price{}, &billing.UpstreamError{Op: "price.get", Err: billing.ErrNotFound}
	}
	return p, nil
}

// Price ids used throughout the tests.
const (
	priceMember      = "price_member"
	priceBoost       = "price_boost"
	pricePlan        = "price_plan"
	priceOneOffBad   = "price_oneoff_in_membership"
	priceEvalMember  = "price_eval_member"
	priceEvalPublic  = "price_eval_public"
	ownerID          = uint(7)
	otherID          = uint(8)
	ownedListingID   = "listing-owned"
	foreignListingID = "listing-foreign"
)

type harness struct {
	store    *memory.Store
	repos    repository.Set
	provider *fakeProvider
	catalog  fakeCatalog
	white    *plans.Whitelist
	ledger   *CustomerLedger
	pricer   *EvaluationPricer
	checkout *CheckoutOrchestrator
	rec      *Reconciler
}

func newHarness() *harness {
	store := memory.New()
	repos := store.Set()

	store.PutUser(users.User{ID: ownerID, Email: "owner@example.com", Role: users.RoleBusiness, IsVerified: true})
	store.PutUser(users.User{ID: otherID, Email: "other@example.com", Role: users.RoleBusiness, IsVerified: true})
	store.PutUser(users.User{ID: 9, Email: "new@example.com", IsVerified: false})
	store.PutListing(listings.BusinessListing{ID: ownedListingID, OwnerID: ownerID, Industry: "Tech"})
	store.PutListing(listings.BusinessListing{ID: foreignListingID, OwnerID: otherID, Industry: "Retail"})

	white := plans.NewWhitelist(map[billing.Purpose][]string{
		billing.PurposeBaseMembership: {priceMember, priceOneOffBad},
		billing.PurposeListingPromo:   {priceBoost},
		billing.PurposeListingPlan:    {pricePlan},
		billing.PurposeEvaluation:     {priceEvalMember, priceEvalPublic},
	})
	catalog := fakeCatalog{prices: map[string]plans.Price{
		priceMember:     {ID: priceMember, Active: true, Recurring: true, Interval: "month", Metadata: map[string]string{"user_type": "business"}},
		priceBoost:      {ID: priceBoost, Active: true, Recurring: true, Interval: "month"},
		pricePlan:       {ID: pricePlan, Active: true, Recurring: true, Interval: "month"},
		priceOneOffBad:  {ID: priceOneOffBad, Active: true},
		priceEvalMember: {ID: priceEvalMember, Active: true, UnitAmount: 9900},
		priceEvalPublic: {ID: priceEvalPublic, Active: true, UnitAmount: 19900},
	}}

	provider := newFakeProvider()
	log := zerolog.Nop()
	ledger := NewCustomerLedger(repos.Customers, provider, log)
	pricer := NewEvaluationPricer(repos.Subscriptions, catalog, priceEvalMember, priceEvalPublic, log)

	return &harness{
		store:    store,
		repos:    repos,
		provider: provider,
		catalog:  catalog,
		white:    white,
		ledger:   ledger,
		pricer:   pricer,
		checkout: NewCheckoutOrchestrator(CheckoutDeps{
			Users:         repos.Users,
			Listings:      repos.Listings,
			Subscriptions: repos.Subscriptions,
			Evaluations:   repos.Evaluations,
			Ledger:        ledger,
			Pricer:        pricer,
			Whitelist:     white,
			Catalog:       catalog,
			Provider:      provider,
			Log:           log,
			AppURL:        "https://app.example.com",
		}),
		rec: NewReconciler(ReconcilerDeps{
			Events:        repos.WebhookEvents,
			Subscriptions: repos.Subscriptions,
			Customers:     repos.Customers,
			Evaluations:   repos.Evaluations,
			Payments:      repos.Payments,
			Listings:      repos.Listings,
			Whitelist:     white,
			Provider:      provider,
			Log:           log,
		}),
	}
}

func (h *harness) seedSubscription(id string, userID uint, purpose billing.Purpose, status billing.Status, priceID string, listingID *string) {
	end := time.Now().Add(30 * 24 * time.Hour)
	h.store.PutSubscription(billing.Subscription{
		ExternalSubscriptionID: id,
		UserID:                 userID,
		Purpose:                purpose,
		ListingID:              listingID,
		PriceID:                priceID,
		Status:                 status,
		CurrentPeriodEnd:       &end,
	})
}

// failingSubs breaks every subscription read.
type failingSubs struct {
	repository.Subscriptions
}

var errStoreDown = errors.New("store unavailable")

func (failingSubs) ListByUser(context.Context, uint) ([]billing.Subscription, error) {
	return nil, errStoreDown
}

func (failingSubs) ListPromotionsForListings(context.Context, []string) ([]billing.Subscription, error) {
	return nil, errStoreDown
}
