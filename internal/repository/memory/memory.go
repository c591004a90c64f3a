// Package memory provides in-memory implementations of the repository ports
// for tests. Conflict semantics match the gorm implementations.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/listings"
	"dealflow-api/internal/domain/users"
	"dealflow-api/internal/repository"
)

// Store keeps every aggregate behind one lock.
type Store struct {
	mu sync.RWMutex

	users         map[uint]users.User
	customers     map[uint]billing.CustomerMapping
	subscriptions map[string]billing.Subscription
	evaluations   map[string]billing.EvaluationPurchase
	events        map[string]billing.WebhookEvent
	payments      map[string]billing.Payment
	listings      map[string]listings.BusinessListing
	investors     map[string]listings.InvestorProfile

	nextID uint
}

func New() *Store {
	return &Store{
		users:         map[uint]users.User{},
		customers:     map[uint]billing.CustomerMapping{},
		subscriptions: map[string]billing.Subscription{},
		evaluations:   map[string]billing.EvaluationPurchase{},
		events:        map[string]billing.WebhookEvent{},
		payments:      map[string]billing.Payment{},
		listings:      map[string]listings.BusinessListing{},
		investors:     map[string]listings.InvestorProfile{},
	}
}

// Set exposes the store through the repository ports.
func (s *Store) Set() repository.Set {
	return repository.Set{
		Users:         userRepo{s},
		Customers:     customerRepo{s},
		Subscriptions: subscriptionRepo{s},
		Evaluations:   evaluationRepo{s},
		WebhookEvents: eventRepo{s},
		Payments:      paymentRepo{s},
		Listings:      listingRepo{s},
		Investors:     investorRepo{s},
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

func missing(what string) error {
	return fmt.Errorf("%s: %w", what, billing.ErrNotFound)
}

// Seeding helpers for collaborator-owned data.

func (s *Store) PutUser(u users.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) PutListing(l listings.BusinessListing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
}

func (s *Store) PutInvestor(p listings.InvestorProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investors[p.ID] = p
}

// PutSubscription bypasses the revision check; tests use it to seed state.
func (s *Store) PutSubscription(sub billing.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == 0 {
		sub.ID = s.id()
	}
	s.subscriptions[sub.ExternalSubscriptionID] = copySubscription(sub)
}

func (s *Store) PutEvaluation(e billing.EvaluationPurchase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluations[e.ID] = e
}

// Counts used by tests to assert on side effects.

func (s *Store) CustomerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers)
}

func (s *Store) EvaluationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.evaluations)
}

func (s *Store) SubscriptionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscriptions)
}

func (s *Store) Event(providerEventID string) (billing.WebhookEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[providerEventID]
	return ev, ok
}

func copySubscription(sub billing.Subscription) billing.Subscription {
	if sub.PriceMetadata != nil {
		md := make(map[string]string, len(sub.PriceMetadata))
		for k, v := range sub.PriceMetadata {
			md[k] = v
		}
		sub.PriceMetadata = md
	}
	return sub
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(ctx context.Context, id uint) (users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return users.User{}, missing("load user")
	}
	return u, nil
}

type customerRepo struct{ s *Store }

func (r customerRepo) GetByUserID(ctx context.Context, userID uint) (billing.CustomerMapping, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.customers[userID]
	if !ok {
		return billing.CustomerMapping{}, missing("load customer mapping")
	}
	return m, nil
}

func (r customerRepo) GetByExternalID(ctx context.Context, externalID string) (billing.CustomerMapping, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.customers {
		if m.ExternalCustomerID == externalID {
			return m, nil
		}
	}
	return billing.CustomerMapping{}, missing("load customer mapping")
}

func (r customerRepo) InsertIfAbsent(ctx context.Context, m billing.CustomerMapping) (billing.CustomerMapping, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.customers[m.UserID]; ok {
		return existing, false, nil
	}
	m.ID = r.s.id()
	m.CreatedAt = time.Now()
	r.s.customers[m.UserID] = m
	return m, true, nil
}

type subscriptionRepo struct{ s *Store }

func (r subscriptionRepo) GetByExternalID(ctx context.Context, externalID string) (billing.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sub, ok := r.s.subscriptions[externalID]
	if !ok {
		return billing.Subscription{}, missing("load subscription")
	}
	return copySubscription(sub), nil
}

func (r subscriptionRepo) ListByUser(ctx context.Context, userID uint) ([]billing.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []billing.Subscription
	for _, sub := range r.s.subscriptions {
		if sub.UserID == userID {
			out = append(out, copySubscription(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r subscriptionRepo) ListPromotionsForListings(ctx context.Context, listingIDs []string) ([]billing.Subscription, error) {
	want := toSet(listingIDs)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []billing.Subscription
	for _, sub := range r.s.subscriptions {
		if sub.Purpose != billing.PurposeListingPromo || sub.ListingID == nil {
			continue
		}
		if _, ok := want[*sub.ListingID]; ok {
			out = append(out, copySubscription(sub))
		}
	}
	return out, nil
}

func (r subscriptionRepo) Insert(ctx context.Context, sub *billing.Subscription) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.subscriptions[sub.ExternalSubscriptionID]; ok {
		return false, nil
	}
	now := time.Now()
	sub.ID = r.s.id()
	sub.CreatedAt, sub.UpdatedAt = now, now
	r.s.subscriptions[sub.ExternalSubscriptionID] = copySubscription(*sub)
	return true, nil
}

func (r subscriptionRepo) CompareAndSwap(ctx context.Context, sub *billing.Subscription, expected int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.subscriptions[sub.ExternalSubscriptionID]
	if !ok || cur.Revision != expected {
		return false, nil
	}
	next := copySubscription(*sub)
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = time.Now()
	next.Revision = expected + 1
	r.s.subscriptions[sub.ExternalSubscriptionID] = next
	sub.Revision = next.Revision
	sub.UpdatedAt = next.UpdatedAt
	return true, nil
}

type evaluationRepo struct{ s *Store }

func (r evaluationRepo) GetByID(ctx context.Context, id string) (billing.EvaluationPurchase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.evaluations[id]
	if !ok {
		return billing.EvaluationPurchase{}, missing("load evaluation")
	}
	return e, nil
}

func (r evaluationRepo) InsertIfAbsent(ctx context.Context, e *billing.EvaluationPurchase) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.evaluations {
		if existing.CheckoutSessionID == e.CheckoutSessionID {
			return false, nil
		}
	}
	if err := e.BeforeCreate(nil); err != nil {
		return false, err
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	r.s.evaluations[e.ID] = *e
	return true, nil
}

func (r evaluationRepo) ListForListings(ctx context.Context, listingIDs []string) ([]billing.EvaluationPurchase, error) {
	want := toSet(listingIDs)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []billing.EvaluationPurchase
	for _, e := range r.s.evaluations {
		if _, ok := want[e.ListingID]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r evaluationRepo) UpdateStatus(ctx context.Context, id string, from, to billing.EvaluationStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.evaluations[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	e.UpdatedAt = time.Now()
	r.s.evaluations[id] = e
	return true, nil
}

type eventRepo struct{ s *Store }

func (r eventRepo) Begin(ctx context.Context, ev *billing.WebhookEvent) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.events[ev.ProviderEventID]; ok {
		*ev = existing
		return existing.ProcessedAt != nil, nil
	}
	ev.ID = r.s.id()
	ev.CreatedAt = time.Now()
	r.s.events[ev.ProviderEventID] = *ev
	return false, nil
}

func (r eventRepo) Finish(ctx context.Context, providerEventID string, procErr error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.events[providerEventID]
	if !ok {
		return nil
	}
	ev.ProcessingError = ""
	if procErr != nil {
		ev.ProcessingError = procErr.Error()
	} else {
		now := time.Now()
		ev.ProcessedAt = &now
	}
	r.s.events[providerEventID] = ev
	return nil
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) UpsertByInvoice(ctx context.Context, p *billing.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	if existing, ok := r.s.payments[p.InvoiceID]; ok {
		if existing.Status == billing.PaymentStatusPaid {
			return nil
		}
		existing.Status = p.Status
		existing.AmountCents = p.AmountCents
		existing.Currency = p.Currency
		existing.ReceiptURL = p.ReceiptURL
		existing.UpdatedAt = now
		r.s.payments[p.InvoiceID] = existing
		return nil
	}
	p.ID = r.s.id()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.payments[p.InvoiceID] = *p
	return nil
}

func (r paymentRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]billing.Payment, error) {
	return r.list(func(p billing.Payment) bool { return p.UserID == userID }, limit), nil
}

func (r paymentRepo) ListAll(ctx context.Context, limit int) ([]billing.Payment, error) {
	return r.list(func(billing.Payment) bool { return true }, limit), nil
}

func (r paymentRepo) list(keep func(billing.Payment) bool, limit int) []billing.Payment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []billing.Payment
	for _, p := range r.s.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type listingRepo struct{ s *Store }

func (r listingRepo) GetByID(ctx context.Context, id string) (listings.BusinessListing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.listings[id]
	if !ok {
		return listings.BusinessListing{}, missing("load listing")
	}
	return l, nil
}

func (r listingRepo) ListActive(ctx context.Context) ([]listings.BusinessListing, error) {
	return r.list(func(l listings.BusinessListing) bool { return l.IsActive }), nil
}

func (r listingRepo) ListByOwner(ctx context.Context, ownerID uint) ([]listings.BusinessListing, error) {
	return r.list(func(l listings.BusinessListing) bool { return l.OwnerID == ownerID }), nil
}

func (r listingRepo) CountActiveByOwner(ctx context.Context, ownerID uint) (int64, error) {
	n := len(r.list(func(l listings.BusinessListing) bool { return l.OwnerID == ownerID && l.IsActive }))
	return int64(n), nil
}

func (r listingRepo) Publish(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.listings[id]
	if !ok {
		return missing("publish listing")
	}
	l.Status = listings.StatusPublished
	l.IsActive = true
	r.s.listings[id] = l
	return nil
}

func (r listingRepo) list(keep func(listings.BusinessListing) bool) []listings.BusinessListing {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []listings.BusinessListing
	for _, l := range r.s.listings {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type investorRepo struct{ s *Store }

func (r investorRepo) ListPublished(ctx context.Context) ([]listings.InvestorProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []listings.InvestorProfile
	for _, p := range r.s.investors {
		if p.IsPublished() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r investorRepo) GetByUserID(ctx context.Context, userID uint) (listings.InvestorProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.investors {
		if p.UserID == userID {
			return p, nil
		}
	}
	return listings.InvestorProfile{}, missing("load investor profile")
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
