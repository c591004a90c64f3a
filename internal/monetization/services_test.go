package monetization

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow-api/internal/domain/access"
	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/listings"
	"dealflow-api/internal/domain/users"
	"dealflow-api/internal/infra/metrics"
)

func TestEntitlementsEvaluate(t *testing.T) {
	ctx := context.Background()
	rec := &countingRecorder{entitlements: map[string]int{}}

	h := newHarness()
	e := NewEntitlements(h.repos.Users, h.repos.Subscriptions, rec, zerolog.Nop())

	ent, err := e.Evaluate(ctx, ownerID)
	require.NoError(t, err)
	assert.False(t, ent.Entitled)
	require.NotNil(t, ent.Role)
	assert.Equal(t, users.RoleBusiness, *ent.Role)

	h.seedSubscription("sub_m", ownerID, billing.PurposeBaseMembership, billing.StatusPastDue, priceMember, nil)
	ent, err = e.Evaluate(ctx, ownerID)
	require.NoError(t, err)
	assert.False(t, ent.Entitled)
	assert.Equal(t, billing.StatusPastDue, ent.Status)

	h.seedSubscription("sub_m", ownerID, billing.PurposeBaseMembership, billing.StatusActive, priceMember, nil)
	ent, err = e.Evaluate(ctx, ownerID)
	require.NoError(t, err)
	assert.True(t, ent.Entitled)

	ent, err = e.Evaluate(ctx, 9)
	require.NoError(t, err)
	assert.True(t, ent.Unverified)

	assert.Equal(t, map[string]int{"denied": 2, "entitled": 1, "unverified": 1}, rec.entitlements)
}

type countingRecorder struct {
	metrics.Noop
	entitlements map[string]int
}

func (r *countingRecorder) EntitlementEvaluation(result string) {
	r.entitlements[result]++
}

func TestEntitlementsUserWithoutProfileIsDenied(t *testing.T) {
	rec := &countingRecorder{entitlements: map[string]int{}}
	h := newHarness()
	e := NewEntitlements(h.repos.Users, h.repos.Subscriptions, rec, zerolog.Nop())

	ent, err := e.Evaluate(context.Background(), 404)
	require.NoError(t, err)
	assert.False(t, ent.Entitled)
	assert.False(t, ent.Degraded)
	assert.Nil(t, ent.Role)
	assert.Equal(t, map[string]int{"denied": 1}, rec.entitlements)
}

func TestEntitlementsFailClosed(t *testing.T) {
	h := newHarness()
	h.seedSubscription("sub_m", ownerID, billing.PurposeBaseMembership, billing.StatusActive, priceMember, nil)
	e := NewEntitlements(h.repos.Users, failingSubs{h.repos.Subscriptions}, nil, zerolog.Nop())

	ent, err := e.Evaluate(context.Background(), ownerID)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, access.Closed(), ent)
	assert.False(t, ent.Entitled)
	assert.True(t, ent.Degraded)
}

func TestBadgeResolver(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	l := ownedListingID
	h.seedSubscription("sub_b", ownerID, billing.PurposeListingPromo, billing.StatusActive, priceBoost, &l)
	h.store.PutEvaluation(billing.EvaluationPurchase{ID: "ev1", ListingID: foreignListingID, Status: billing.EvaluationCompleted, CheckoutSessionID: "cs_a", CreatedAt: time.Unix(100, 0)})
	h.store.PutEvaluation(billing.EvaluationPurchase{ID: "ev2", ListingID: foreignListingID, Status: billing.EvaluationInProgress, CheckoutSessionID: "cs_b", CreatedAt: time.Unix(200, 0)})

	r := NewBadgeResolver(h.repos.Subscriptions, h.repos.Evaluations)
	b, err := r.Badges(ctx, []string{ownedListingID, foreignListingID, ownedListingID, "", "other"})
	require.NoError(t, err)

	assert.True(t, b.IsBoosted(ownedListingID))
	assert.False(t, b.IsBoosted(foreignListingID))
	assert.False(t, b.IsBoosted("other"))
	assert.Equal(t, billing.EvaluationInProgress, b.EvaluationStatus[foreignListingID])
	_, ok := b.EvaluationStatus[ownedListingID]
	assert.False(t, ok)

	_, err = NewBadgeResolver(failingSubs{h.repos.Subscriptions}, h.repos.Evaluations).Badges(ctx, []string{ownedListingID})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "", "b", "a"}))
	assert.Empty(t, dedupe(nil))
}

func TestMatcher(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.store.PutInvestor(listings.InvestorProfile{ID: "inv-1", UserID: otherID, PrimaryIndustry: "tech", Status: listings.StatusPublished, CreatedAt: time.Unix(100, 0)})
	h.store.PutInvestor(listings.InvestorProfile{ID: "inv-2", UserID: 20, PrimaryIndustry: "Food", Status: listings.StatusDraft, CreatedAt: time.Unix(200, 0)})
	h.store.PutListing(listings.BusinessListing{ID: "l-active", OwnerID: otherID, Industry: "Tech", IsActive: true, CreatedAt: time.Unix(50, 0)})

	m := NewMatcher(h.repos.Listings, h.repos.Investors, zerolog.Nop())

	inv := m.InvestorsForOwner(ctx, ownerID)
	require.Len(t, inv, 1)
	assert.Equal(t, "inv-1", inv[0].Candidate.ID)

	lst := m.ListingsForInvestor(ctx, otherID)
	require.Len(t, lst, 1)
	assert.Equal(t, "l-active", lst[0].Candidate.ID)

	// No investor profile: newest active listings.
	lst = m.ListingsForInvestor(ctx, 999)
	require.Len(t, lst, 1)
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("gate off", func(t *testing.T) {
		h := newHarness()
		h.store.PutListing(listings.BusinessListing{ID: "l-live", OwnerID: ownerID, IsActive: true})
		p := NewPublisher(h.repos.Listings, h.repos.Subscriptions, access.PublishGate{Enforce: false, BaseAllowance: 1}, zerolog.Nop())
		require.NoError(t, p.Publish(ctx, ownerID, ownedListingID))

		l, err := h.repos.Listings.GetByID(ctx, ownedListingID)
		require.NoError(t, err)
		assert.True(t, l.IsActive)
	})

	t.Run("gate on", func(t *testing.T) {
		h := newHarness()
		h.store.PutListing(listings.BusinessListing{ID: "l-live", OwnerID: ownerID, IsActive: true})
		p := NewPublisher(h.repos.Listings, h.repos.Subscriptions, access.PublishGate{Enforce: true, BaseAllowance: 1}, zerolog.Nop())
		assert.ErrorIs(t, p.Publish(ctx, ownerID, ownedListingID), billing.ErrPlanLimit)

		l := ownedListingID
		h.seedSubscription("sub_plan", ownerID, billing.PurposeListingPlan, billing.StatusActive, pricePlan, &l)
		assert.NoError(t, p.Publish(ctx, ownerID, ownedListingID))
		// Already active listings publish again without touching the gate.
		assert.NoError(t, p.Publish(ctx, ownerID, "l-live"))
	})

	t.Run("ownership", func(t *testing.T) {
		h := newHarness()
		p := NewPublisher(h.repos.Listings, h.repos.Subscriptions, access.PublishGate{}, zerolog.Nop())
		assert.ErrorIs(t, p.Publish(ctx, ownerID, foreignListingID), billing.ErrForbidden)
		assert.ErrorIs(t, p.Publish(ctx, ownerID, "missing"), billing.ErrNotFound)
	})
}

func TestEvaluationDesk(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.store.PutEvaluation(billing.EvaluationPurchase{ID: "ev1", ListingID: ownedListingID, Status: billing.EvaluationPurchased, CheckoutSessionID: "cs_1"})
	d := NewEvaluationDesk(h.repos.Evaluations, zerolog.Nop())

	got, err := d.Advance(ctx, "ev1", billing.EvaluationInProgress)
	require.NoError(t, err)
	assert.Equal(t, billing.EvaluationInProgress, got.Status)

	got, err = d.Advance(ctx, "ev1", billing.EvaluationInProgress)
	require.NoError(t, err)
	assert.Equal(t, billing.EvaluationInProgress, got.Status)

	_, err = d.Advance(ctx, "ev1", billing.EvaluationPurchased)
	assert.ErrorIs(t, err, billing.ErrConflict)

	got, err = d.Advance(ctx, "ev1", billing.EvaluationCompleted)
	require.NoError(t, err)
	assert.Equal(t, billing.EvaluationCompleted, got.Status)

	_, err = d.Advance(ctx, "missing", billing.EvaluationCompleted)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestAccount(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a := NewAccount(h.repos.Customers, h.provider, h.catalog, h.white, "https://app.example.com/", zerolog.Nop())

	_, err := a.PortalURL(ctx, ownerID)
	assert.ErrorIs(t, err, billing.ErrConflict)

	_, _, err = h.repos.Customers.InsertIfAbsent(ctx, billing.CustomerMapping{UserID: ownerID, ExternalCustomerID: "cus_owner"})
	require.NoError(t, err)
	url, err := a.PortalURL(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.test/cus_owner", url)

	views := a.Plans(ctx)
	assert.Len(t, views, 6)
	for _, v := range views {
		if v.Price.ID == priceMember {
			assert.Equal(t, "business", v.Audience)
			assert.Equal(t, billing.PurposeBaseMembership, v.Purpose)
		}
	}
}
