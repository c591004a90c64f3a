package monetization

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/infra/stripe"
)

func snapshot(id, status string, md map[string]string) stripe.Subscription {
	end := time.Now().Add(30 * 24 * time.Hour)
	return stripe.Subscription{
		ID:               id,
		CustomerID:       "cus_owner",
		Status:           status,
		Metadata:         md,
		Price:            plans.Price{ID: priceMember, Active: true, Recurring: true, Metadata: map[string]string{"user_type": "business"}},
		CurrentPeriodEnd: &end,
	}
}

func subEvent(id, typ string, created int64, snap stripe.Subscription) stripe.Event {
	return stripe.Event{ID: id, Type: typ, Created: created, Subscription: &snap}
}

var memberMeta = map[string]string{MetaUserID: "7", MetaPurpose: "base_membership"}

func TestReconcilerOutOfOrderEventsConverge(t *testing.T) {
	ctx := context.Background()
	newer := subEvent("evt_2", stripe.EventSubscriptionUpdated, 200, snapshot("sub_1", "active", memberMeta))
	older := subEvent("evt_1", stripe.EventSubscriptionUpdated, 100, snapshot("sub_1", "past_due", memberMeta))

	for name, order := range map[string][]stripe.Event{
		"in order":     {older, newer},
		"out of order": {newer, older},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			for _, ev := range order {
				_, err := h.rec.Handle(ctx, ev)
				require.NoError(t, err)
			}
			got, err := h.repos.Subscriptions.GetByExternalID(ctx, "sub_1")
			require.NoError(t, err)
			assert.Equal(t, billing.StatusActive, got.Status)
			assert.Equal(t, int64(200), got.SourceEventAt)
			assert.Equal(t, ownerID, got.UserID)
			assert.Equal(t, billing.PurposeBaseMembership, got.Purpose)
		})
	}
}

func TestReconcilerStaleOutcome(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.rec.Handle(ctx, subEvent("evt_2", stripe.EventSubscriptionUpdated, 200, snapshot("sub_1", "active", memberMeta)))
	require.NoError(t, err)
	out, err := h.rec.Handle(ctx, subEvent("evt_1", stripe.EventSubscriptionUpdated, 100, snapshot("sub_1", "unpaid", memberMeta)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, out)
}

func TestReconcilerDuplicateEventID(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	ev := subEvent("evt_1", stripe.EventSubscriptionCreated, 100, snapshot("sub_1", "active", memberMeta))

	out, err := h.rec.Handle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)

	out, err = h.rec.Handle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, out)
	assert.Equal(t, 1, h.store.SubscriptionCount())

	rec, ok := h.store.Event("evt_1")
	require.True(t, ok)
	assert.NotNil(t, rec.ProcessedAt)
}

func TestReconcilerDeletedForcesCanceled(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.rec.Handle(ctx, subEvent("evt_1", stripe.EventSubscriptionCreated, 100, snapshot("sub_1", "active", memberMeta)))
	require.NoError(t, err)
	// Deletion payloads can still carry the last live status.
	_, err = h.rec.Handle(ctx, subEvent("evt_2", stripe.EventSubscriptionDeleted, 200, snapshot("sub_1", "active", memberMeta)))
	require.NoError(t, err)

	got, err := h.repos.Subscriptions.GetByExternalID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, got.Status)
}

func TestReconcilerCanceledIsTerminal(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.rec.Handle(ctx, subEvent("evt_1", stripe.EventSubscriptionDeleted, 100, snapshot("sub_1", "canceled", memberMeta)))
	require.NoError(t, err)
	out, err := h.rec.Handle(ctx, subEvent("evt_2", stripe.EventSubscriptionUpdated, 300, snapshot("sub_1", "active", memberMeta)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, out)

	got, err := h.repos.Subscriptions.GetByExternalID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, got.Status)
}

func TestReconcilerEqualTimestampPrefersLaterLifecycle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.rec.Handle(ctx, subEvent("evt_a", stripe.EventSubscriptionCreated, 100, snapshot("sub_1", "active", memberMeta)))
	require.NoError(t, err)
	out, err := h.rec.Handle(ctx, subEvent("evt_b", stripe.EventSubscriptionUpdated, 100, snapshot("sub_1", "incomplete", memberMeta)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, out)

	got, err := h.repos.Subscriptions.GetByExternalID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, got.Status)
}

func TestReconcilerSubscriptionCheckout(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.provider.subscriptions["sub_9"] = snapshot("sub_9", "active", nil)

	out, err := h.rec.Handle(ctx, stripe.Event{
		ID: "evt_c", Type: stripe.EventCheckoutCompleted, Created: 100,
		Session: &stripe.CheckoutSession{
			ID: "cs_1", Mode: stripe.ModeSubscription, SubscriptionID: "sub_9",
			ClientReferenceID: "7", PaymentStatus: "paid",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)

	got, err := h.repos.Subscriptions.GetByExternalID(ctx, "sub_9")
	require.NoError(t, err)
	assert.Equal(t, ownerID, got.UserID)
	// Purpose falls back to the whitelist entry of the price.
	assert.Equal(t, billing.PurposeBaseMembership, got.Purpose)

	ent, err := NewEntitlements(h.repos.Users, h.repos.Subscriptions, nil, h.rec.Log).Evaluate(ctx, ownerID)
	require.NoError(t, err)
	assert.True(t, ent.Entitled)
}

func TestReconcilerAttributionViaCustomerMapping(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, _, err := h.repos.Customers.InsertIfAbsent(ctx, billing.CustomerMapping{UserID: ownerID, ExternalCustomerID: "cus_owner"})
	require.NoError(t, err)

	out, err := h.rec.Handle(ctx, subEvent("evt_1", stripe.EventSubscriptionCreated, 100, snapshot("sub_1", "trialing", nil)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)

	got, err := h.repos.Subscriptions.GetByExternalID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, ownerID, got.UserID)
	assert.Equal(t, billing.StatusTrialing, got.Status)
}

func TestReconcilerIgnoresUnattributable(t *testing.T) {
	ctx := context.Background()

	t.Run("no user", func(t *testing.T) {
		h := newHarness()
		out, err := h.rec.Handle(ctx, subEvent("evt_1", stripe.EventSubscriptionCreated, 100, snapshot("sub_1", "active", nil)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, out)
		assert.Zero(t, h.store.SubscriptionCount())
	})

	t.Run("listing owned by someone else", func(t *testing.T) {
		h := newHarness()
		snap := snapshot("sub_1", "active", map[string]string{
			MetaUserID: "7", MetaPurpose: "listing_promo", MetaListingID: foreignListingID,
		})
		snap.Price = plans.Price{ID: priceBoost, Active: true, Recurring: true}
		out, err := h.rec.Handle(ctx, subEvent("evt_1", stripe.EventSubscriptionCreated, 100, snap))
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, out)
		assert.Zero(t, h.store.SubscriptionCount())
	})

	t.Run("metadata user disagrees with customer", func(t *testing.T) {
		h := newHarness()
		_, _, err := h.repos.Customers.InsertIfAbsent(ctx, billing.CustomerMapping{UserID: otherID, ExternalCustomerID: "cus_owner"})
		require.NoError(t, err)
		out, err := h.rec.Handle(ctx, subEvent("evt_1", stripe.EventSubscriptionCreated, 100, snapshot("sub_1", "active", memberMeta)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, out)
	})
}

func TestReconcilerListingPromotion(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	snap := snapshot("sub_p", "active", map[string]string{
		MetaUserID: "7", MetaPurpose: "listing_promo", MetaListingID: ownedListingID,
	})
	snap.Price = plans.Price{ID: priceBoost, Active: true, Recurring: true}

	_, err := h.rec.Handle(ctx, subEvent("evt_1", stripe.EventSubscriptionCreated, 100, snap))
	require.NoError(t, err)

	badges, err := NewBadgeResolver(h.repos.Subscriptions, h.repos.Evaluations).Badges(ctx, []string{ownedListingID})
	require.NoError(t, err)
	assert.True(t, badges.IsBoosted(ownedListingID))

	ent, err := NewEntitlements(h.repos.Users, h.repos.Subscriptions, nil, h.rec.Log).Evaluate(ctx, ownerID)
	require.NoError(t, err)
	assert.False(t, ent.Entitled, "a promotion never grants membership")
}

func evaluationCheckout(eventID, sessionID, paymentStatus string) stripe.Event {
	return stripe.Event{
		ID: eventID, Type: stripe.EventCheckoutCompleted, Created: 100,
		Session: &stripe.CheckoutSession{
			ID: sessionID, Mode: stripe.ModePayment, PaymentStatus: paymentStatus, AmountTotal: 9900,
			Metadata: map[string]string{MetaUserID: "7", MetaPurpose: "evaluation", MetaListingID: ownedListingID},
		},
	}
}

func TestReconcilerEvaluationPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("one purchase per session", func(t *testing.T) {
		h := newHarness()
		out, err := h.rec.Handle(ctx, evaluationCheckout("evt_1", "cs_1", "paid"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeProcessed, out)

		out, err = h.rec.Handle(ctx, evaluationCheckout("evt_1", "cs_1", "paid"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, out)

		// A different event for the same session still yields one purchase.
		out, err = h.rec.Handle(ctx, evaluationCheckout("evt_2", "cs_1", "paid"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, out)
		assert.Equal(t, 1, h.store.EvaluationCount())

		evals, err := h.repos.Evaluations.ListForListings(ctx, []string{ownedListingID})
		require.NoError(t, err)
		require.Len(t, evals, 1)
		assert.Equal(t, billing.EvaluationPurchased, evals[0].Status)
		assert.Equal(t, int64(9900), evals[0].AmountCents)
	})

	t.Run("unpaid session waits for async success", func(t *testing.T) {
		h := newHarness()
		out, err := h.rec.Handle(ctx, evaluationCheckout("evt_1", "cs_1", "unpaid"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, out)
		assert.Zero(t, h.store.EvaluationCount())

		async := evaluationCheckout("evt_2", "cs_1", "paid")
		async.Type = stripe.EventCheckoutAsyncPaymentPaid
		_, err = h.rec.Handle(ctx, async)
		require.NoError(t, err)
		assert.Equal(t, 1, h.store.EvaluationCount())
	})
}

func TestReconcilerInvoices(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, _, err := h.repos.Customers.InsertIfAbsent(ctx, billing.CustomerMapping{UserID: ownerID, ExternalCustomerID: "cus_owner"})
	require.NoError(t, err)

	inv := &stripe.Invoice{ID: "in_1", CustomerID: "cus_owner", SubscriptionID: "sub_1", AmountDue: 4900, AmountPaid: 4900, Currency: "usd"}
	_, err = h.rec.Handle(ctx, stripe.Event{ID: "evt_f", Type: stripe.EventInvoicePaymentFailed, Created: 100, Invoice: inv})
	require.NoError(t, err)
	_, err = h.rec.Handle(ctx, stripe.Event{ID: "evt_p", Type: stripe.EventInvoicePaid, Created: 200, Invoice: inv})
	require.NoError(t, err)
	_, err = h.rec.Handle(ctx, stripe.Event{ID: "evt_f2", Type: stripe.EventInvoicePaymentFailed, Created: 300, Invoice: inv})
	require.NoError(t, err)

	payments, err := h.repos.Payments.ListByUser(ctx, ownerID, 10)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, billing.PaymentStatusPaid, payments[0].Status)
	assert.Equal(t, int64(4900), payments[0].AmountCents)

	out, err := h.rec.Handle(ctx, stripe.Event{ID: "evt_x", Type: stripe.EventInvoicePaid, Invoice: &stripe.Invoice{ID: "in_2", CustomerID: "cus_unknown"}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)
}

func TestReconcilerFailureIsRetried(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	// The provider does not know the subscription yet.
	ev := stripe.Event{
		ID: "evt_c", Type: stripe.EventCheckoutCompleted, Created: 100,
		Session: &stripe.CheckoutSession{ID: "cs_1", Mode: stripe.ModeSubscription, SubscriptionID: "sub_late", ClientReferenceID: "7"},
	}

	_, err := h.rec.Handle(ctx, ev)
	require.Error(t, err)
	rec, ok := h.store.Event("evt_c")
	require.True(t, ok)
	assert.Nil(t, rec.ProcessedAt)
	assert.NotEmpty(t, rec.ProcessingError)

	h.provider.subscriptions["sub_late"] = snapshot("sub_late", "active", nil)
	out, err := h.rec.Handle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)
}

func TestReconcilerIgnoresUnknownTypes(t *testing.T) {
	h := newHarness()
	out, err := h.rec.Handle(context.Background(), stripe.Event{ID: "evt_u", Type: "customer.created"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)
}
