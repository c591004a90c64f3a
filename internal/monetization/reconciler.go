package monetization

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/infra/metrics"
	"dealflow-api/internal/infra/stripe"
	"dealflow-api/internal/repository"
)

// Outcome tells the webhook handler what happened to an event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStale     Outcome = "stale"
	OutcomeIgnored   Outcome = "ignored"
)

const maxSwapAttempts = 5

// errUnattributable marks provider objects that cannot be tied to a user or
// violate the listing ownership rule. They are acknowledged, not retried.
var errUnattributable = errors.New("unattributable")

type ReconcilerDeps struct {
	Events        repository.WebhookEvents
	Subscriptions repository.Subscriptions
	Customers     repository.Customers
	Evaluations   repository.Evaluations
	Payments      repository.Payments
	Listings      repository.Listings
	Whitelist     *plans.Whitelist
	Provider      PaymentProvider
	Metrics       metrics.Recorder
	Log           zerolog.Logger
}

// Reconciler applies verified provider events to local state. It is the
// only writer of Subscription rows.
type Reconciler struct {
	ReconcilerDeps
}

func NewReconciler(deps ReconcilerDeps) *Reconciler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	return &Reconciler{ReconcilerDeps: deps}
}

// Handle records the event id first so redeliveries are no-ops. A returned
// error means the provider should redeliver.
func (r *Reconciler) Handle(ctx context.Context, ev stripe.Event) (Outcome, error) {
	log := r.Log.With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()

	done, err := r.Events.Begin(ctx, &billing.WebhookEvent{
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		EventCreatedAt:  ev.Created,
	})
	if err != nil {
		r.Metrics.WebhookEvent(ev.Type, "error")
		return "", fmt.Errorf("record event: %w", err)
	}
	if done {
		log.Debug().Msg("event already processed")
		r.Metrics.WebhookEvent(ev.Type, string(OutcomeDuplicate))
		return OutcomeDuplicate, nil
	}

	outcome, procErr := r.dispatch(ctx, log, ev)
	if ferr := r.Events.Finish(ctx, ev.ID, procErr); ferr != nil {
		log.Error().Err(ferr).Msg("could not finish webhook event record")
		if procErr == nil {
			procErr = ferr
		}
	}
	if procErr != nil {
		log.Error().Err(procErr).Msg("webhook processing failed")
		r.Metrics.WebhookEvent(ev.Type, "error")
		return "", procErr
	}

	r.Metrics.WebhookEvent(ev.Type, string(outcome))
	return outcome, nil
}

func (r *Reconciler) dispatch(ctx context.Context, log zerolog.Logger, ev stripe.Event) (Outcome, error) {
	switch ev.Type {
	case stripe.EventCheckoutCompleted, stripe.EventCheckoutAsyncPaymentPaid:
		if ev.Session == nil {
			return "", billing.Invalid("checkout event without session")
		}
		return r.checkoutCompleted(ctx, log, ev)

	case stripe.EventSubscriptionCreated, stripe.EventSubscriptionUpdated, stripe.EventSubscriptionDeleted:
		if ev.Subscription == nil {
			return "", billing.Invalid("subscription event without subscription")
		}
		return r.applySubscription(ctx, log, *ev.Subscription, ev.Created, ev.Type == stripe.EventSubscriptionDeleted, 0)

	case stripe.EventInvoicePaid, stripe.EventInvoicePaymentFailed:
		if ev.Invoice == nil {
			return "", billing.Invalid("invoice event without invoice")
		}
		return r.invoice(ctx, log, ev)
	}

	log.Debug().Msg("event type ignored")
	return OutcomeIgnored, nil
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, log zerolog.Logger, ev stripe.Event) (Outcome, error) {
	s := ev.Session
	hint := parseUserID(s.Metadata[MetaUserID])
	if hint == 0 {
		hint = parseUserID(s.ClientReferenceID)
	}

	switch s.Mode {
	case stripe.ModeSubscription:
		if s.SubscriptionID == "" {
			return "", billing.Invalid("subscription checkout without subscription")
		}
		sub, err := r.Provider.GetSubscription(ctx, s.SubscriptionID)
		if err != nil {
			return "", err
		}
		return r.applySubscription(ctx, log, sub, ev.Created, false, hint)

	case stripe.ModePayment:
		if billing.Purpose(s.Metadata[MetaPurpose]) != billing.PurposeEvaluation {
			log.Debug().Str("session_id", s.ID).Msg("payment checkout without evaluation purpose")
			return OutcomeIgnored, nil
		}
		if !stripe.IsPaid(s.PaymentStatus) {
			// Delayed payment methods complete later with async_payment_succeeded.
			log.Info().Str("session_id", s.ID).Str("payment_status", s.PaymentStatus).Msg("evaluation checkout not paid yet")
			return OutcomeIgnored, nil
		}
		return r.evaluationPurchased(ctx, log, ev, hint)
	}
	return OutcomeIgnored, nil
}

func (r *Reconciler) evaluationPurchased(ctx context.Context, log zerolog.Logger, ev stripe.Event, userID uint) (Outcome, error) {
	s := ev.Session
	listingID := s.Metadata[MetaListingID]
	if userID == 0 || listingID == "" {
		log.Warn().Str("session_id", s.ID).Msg("evaluation checkout missing attribution")
		return OutcomeIgnored, nil
	}

	created, err := r.Evaluations.InsertIfAbsent(ctx, &billing.EvaluationPurchase{
		ListingID:         listingID,
		UserID:            userID,
		Status:            billing.EvaluationPurchased,
		CheckoutSessionID: s.ID,
		ProviderEventID:   ev.ID,
		AmountCents:       s.AmountTotal,
	})
	if err != nil {
		return "", fmt.Errorf("store evaluation purchase: %w", err)
	}
	if !created {
		return OutcomeDuplicate, nil
	}
	log.Info().Uint("user_id", userID).Str("listing_id", listingID).Msg("evaluation purchased")
	return OutcomeProcessed, nil
}

// applySubscription upserts the mirror row. Updates go through a revision
// compare-and-swap and are dropped when older than what is stored or when
// they would leave a terminal status.
func (r *Reconciler) applySubscription(ctx context.Context, log zerolog.Logger, snap stripe.Subscription, eventAt int64, deleted bool, hint uint) (Outcome, error) {
	if snap.ID == "" {
		return "", billing.Invalid("subscription without id")
	}
	log = log.With().Str("subscription_id", snap.ID).Logger()

	status := stripe.NormalizeStatus(snap.Status)
	if deleted {
		status = billing.StatusCanceled
	}

	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		cur, err := r.Subscriptions.GetByExternalID(ctx, snap.ID)
		if errors.Is(err, billing.ErrNotFound) {
			row, aerr := r.attribute(ctx, snap, hint)
			if errors.Is(aerr, errUnattributable) {
				log.Warn().Err(aerr).Msg("subscription not attributable, ignoring")
				return OutcomeIgnored, nil
			}
			if aerr != nil {
				return "", aerr
			}
			fill(&row, snap, status, eventAt)
			created, err := r.Subscriptions.Insert(ctx, &row)
			if err != nil {
				return "", fmt.Errorf("insert subscription: %w", err)
			}
			if created {
				log.Info().Uint("user_id", row.UserID).Str("purpose", string(row.Purpose)).
					Str("status", string(status)).Msg("subscription stored")
				return OutcomeProcessed, nil
			}
			continue
		}
		if err != nil {
			return "", fmt.Errorf("load subscription: %w", err)
		}

		if !billing.ShouldApply(cur.Status, cur.SourceEventAt, status, eventAt) {
			log.Debug().Str("stored_status", string(cur.Status)).Int64("stored_at", cur.SourceEventAt).
				Str("incoming_status", string(status)).Int64("incoming_at", eventAt).Msg("stale subscription event discarded")
			return OutcomeStale, nil
		}

		next := cur
		fill(&next, snap, status, eventAt)
		ok, err := r.Subscriptions.CompareAndSwap(ctx, &next, cur.Revision)
		if err != nil {
			return "", fmt.Errorf("update subscription: %w", err)
		}
		if ok {
			log.Info().Uint("user_id", next.UserID).Str("from", string(cur.Status)).
				Str("to", string(status)).Msg("subscription updated")
			return OutcomeProcessed, nil
		}
	}
	return "", fmt.Errorf("subscription %s: %w: too many concurrent updates", snap.ID, billing.ErrConflict)
}

// fill copies the provider-owned fields. User, purpose and listing are fixed
// at creation.
func fill(row *billing.Subscription, snap stripe.Subscription, status billing.Status, eventAt int64) {
	row.ExternalSubscriptionID = snap.ID
	if snap.CustomerID != "" {
		row.ExternalCustomerID = snap.CustomerID
	}
	if snap.Price.ID != "" {
		row.PriceID = snap.Price.ID
		row.PriceLabel = snap.Price.Label()
		row.PriceMetadata = snap.Price.Metadata
	}
	row.Status = status
	row.CurrentPeriodStart = snap.CurrentPeriodStart
	row.CurrentPeriodEnd = snap.CurrentPeriodEnd
	row.CancelAtPeriodEnd = snap.CancelAtPeriodEnd
	row.SourceEventAt = eventAt
}

// attribute decides user, purpose and listing for a subscription seen for
// the first time. Metadata written at checkout comes first; the customer
// mapping and the price whitelist are the fallbacks.
func (r *Reconciler) attribute(ctx context.Context, snap stripe.Subscription, hint uint) (billing.Subscription, error) {
	userID := parseUserID(snap.Metadata[MetaUserID])
	if userID == 0 {
		userID = hint
	}

	if snap.CustomerID != "" {
		m, err := r.Customers.GetByExternalID(ctx, snap.CustomerID)
		switch {
		case err == nil:
			if userID != 0 && m.UserID != userID {
				return billing.Subscription{}, fmt.Errorf("%w: metadata user %d but customer belongs to %d", errUnattributable, userID, m.UserID)
			}
			userID = m.UserID
		case !errors.Is(err, billing.ErrNotFound):
			return billing.Subscription{}, fmt.Errorf("load customer mapping: %w", err)
		}
	}
	if userID == 0 {
		return billing.Subscription{}, fmt.Errorf("%w: no user", errUnattributable)
	}

	listingID := strings.TrimSpace(snap.Metadata[MetaListingID])
	purpose := billing.Purpose(snap.Metadata[MetaPurpose])
	if !purpose.Valid() || purpose == billing.PurposeEvaluation {
		p, ok := r.Whitelist.PurposeOf(snap.Price.ID)
		if !ok || p == billing.PurposeEvaluation {
			return billing.Subscription{}, fmt.Errorf("%w: unknown purpose for price %q", errUnattributable, snap.Price.ID)
		}
		purpose = p
	}

	row := billing.Subscription{UserID: userID, Purpose: purpose}
	if !purpose.ListingScoped() {
		return row, nil
	}

	if listingID == "" {
		return billing.Subscription{}, fmt.Errorf("%w: %s without listing", errUnattributable, purpose)
	}
	l, err := r.Listings.GetByID(ctx, listingID)
	if errors.Is(err, billing.ErrNotFound) {
		return billing.Subscription{}, fmt.Errorf("%w: listing %s not found", errUnattributable, listingID)
	}
	if err != nil {
		return billing.Subscription{}, fmt.Errorf("load listing: %w", err)
	}
	if l.OwnerID != userID {
		return billing.Subscription{}, fmt.Errorf("%w: listing %s not owned by user %d", errUnattributable, listingID, userID)
	}
	row.ListingID = &listingID
	return row, nil
}

func (r *Reconciler) invoice(ctx context.Context, log zerolog.Logger, ev stripe.Event) (Outcome, error) {
	in := ev.Invoice
	if in.ID == "" || in.CustomerID == "" {
		return OutcomeIgnored, nil
	}
	m, err := r.Customers.GetByExternalID(ctx, in.CustomerID)
	if errors.Is(err, billing.ErrNotFound) {
		log.Warn().Str("customer_id", in.CustomerID).Msg("invoice for unknown customer")
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("load customer mapping: %w", err)
	}

	p := &billing.Payment{
		UserID:    m.UserID,
		InvoiceID: in.ID,
		Currency:  in.Currency,
	}
	if ev.Type == stripe.EventInvoicePaid {
		p.Status = billing.PaymentStatusPaid
		p.AmountCents = in.AmountPaid
	} else {
		p.Status = billing.PaymentStatusFailed
		p.AmountCents = in.AmountDue
	}
	if in.SubscriptionID != "" {
		p.ExternalSubscriptionID = &in.SubscriptionID
	}
	if in.HostedURL != "" {
		p.ReceiptURL = &in.HostedURL
	}
	if err := r.Payments.UpsertByInvoice(ctx, p); err != nil {
		return "", fmt.Errorf("store payment: %w", err)
	}
	return OutcomeProcessed, nil
}

func parseUserID(s string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}
