package monetization

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/access"
	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/domain/promotion"
	"dealflow-api/internal/domain/users"
	"dealflow-api/internal/infra/metrics"
	"dealflow-api/internal/infra/stripe"
	"dealflow-api/internal/repository"
)

const (
	maxQuantity       = 100
	maxMetadataKeys   = 20
	maxMetadataKeyLen = 40
	maxMetadataValLen = 500
)

// Metadata keys written on every session; callers cannot override them.
const (
	MetaUserID    = "user_id"
	MetaPurpose   = "purpose"
	MetaListingID = "listing_id"
)

type CheckoutRequest struct {
	UserID     uint
	PriceID    string
	Quantity   int64
	Purpose    string
	ListingID  string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type EvaluationCheckoutRequest struct {
	UserID     uint
	ListingID  string
	SuccessURL string
	CancelURL  string
}

type CheckoutResult struct {
	URL       string          `json:"url"`
	SessionID string          `json:"session_id"`
	Purpose   billing.Purpose `json:"purpose"`
	PriceID   string          `json:"price_id"`
}

type CheckoutDeps struct {
	Users         repository.Users
	Listings      repository.Listings
	Subscriptions repository.Subscriptions
	Evaluations   repository.Evaluations
	Ledger        *CustomerLedger
	Pricer        *EvaluationPricer
	Whitelist     *plans.Whitelist
	Catalog       PriceCatalog
	Provider      PaymentProvider
	Metrics       metrics.Recorder
	Log           zerolog.Logger
	// AppURL is the only origin redirects may point at.
	AppURL string
}

// CheckoutOrchestrator validates purchase requests and opens provider
// checkout sessions. Nothing reaches the provider until every check passed.
type CheckoutOrchestrator struct {
	CheckoutDeps
	now func() time.Time
}

func NewCheckoutOrchestrator(deps CheckoutDeps) *CheckoutOrchestrator {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	deps.AppURL = strings.TrimRight(deps.AppURL, "/")
	return &CheckoutOrchestrator{CheckoutDeps: deps, now: time.Now}
}

// CreateCheckout opens a subscription checkout for a membership, listing
// promotion or listing plan.
func (o *CheckoutOrchestrator) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	res, err := o.createCheckout(ctx, req)
	o.Metrics.CheckoutSession(string(purposeLabel(res.Purpose, req.Purpose)), resultLabel(err))
	return res, err
}

func (o *CheckoutOrchestrator) createCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	u, err := o.loadUser(ctx, req.UserID)
	if err != nil {
		return CheckoutResult{}, err
	}

	req.PriceID = strings.TrimSpace(req.PriceID)
	if req.PriceID == "" {
		return CheckoutResult{}, billing.Invalid("Missing priceId")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		return CheckoutResult{}, billing.Invalid("Invalid quantity")
	}

	purpose, err := billing.ResolveCheckoutPurpose(req.Purpose, req.ListingID)
	if err != nil {
		return CheckoutResult{}, err
	}
	res := CheckoutResult{Purpose: purpose, PriceID: req.PriceID}
	listingID := strings.TrimSpace(req.ListingID)

	if purpose.ListingScoped() {
		if err := o.checkOwnership(ctx, u.ID, listingID); err != nil {
			return res, err
		}
	}

	if err := o.checkPrice(ctx, purpose, req.PriceID); err != nil {
		return res, err
	}

	if err := o.checkDuplicate(ctx, u, purpose, listingID); err != nil {
		return res, err
	}

	successURL, cancelURL, err := o.redirects(req.SuccessURL, req.CancelURL)
	if err != nil {
		return res, err
	}
	extra, err := cleanMetadata(req.Metadata)
	if err != nil {
		return res, err
	}

	customerID, err := o.Ledger.EnsureCustomer(ctx, u)
	if err != nil {
		return res, err
	}

	session, err := o.Provider.CreateCheckoutSession(ctx, stripe.SessionInput{
		Mode:              stripe.ModeSubscription,
		CustomerID:        customerID,
		PriceID:           req.PriceID,
		Quantity:          req.Quantity,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		ClientReferenceID: userRef(u.ID),
		Metadata:          attribution(extra, u.ID, purpose, listingID),
		IdempotencyKey:    CheckoutKey(u.ID, req.PriceID, req.Quantity, listingID, purpose),
	})
	if err != nil {
		return res, err
	}

	o.Log.Info().Uint("user_id", u.ID).Str("purpose", string(purpose)).
		Str("listing_id", listingID).Str("session_id", session.ID).Msg("checkout session created")

	res.URL = session.URL
	res.SessionID = session.ID
	return res, nil
}

// CreateEvaluationCheckout opens a one-off payment checkout for a
// professional evaluation of a listing the user owns.
func (o *CheckoutOrchestrator) CreateEvaluationCheckout(ctx context.Context, req EvaluationCheckoutRequest) (CheckoutResult, error) {
	res, err := o.createEvaluationCheckout(ctx, req)
	o.Metrics.CheckoutSession(string(billing.PurposeEvaluation), resultLabel(err))
	return res, err
}

func (o *CheckoutOrchestrator) createEvaluationCheckout(ctx context.Context, req EvaluationCheckoutRequest) (CheckoutResult, error) {
	u, err := o.loadUser(ctx, req.UserID)
	if err != nil {
		return CheckoutResult{}, err
	}

	listingID := strings.TrimSpace(req.ListingID)
	if listingID == "" {
		return CheckoutResult{}, billing.Invalid("Missing listingId")
	}
	res := CheckoutResult{Purpose: billing.PurposeEvaluation}

	if err := o.checkOwnership(ctx, u.ID, listingID); err != nil {
		return res, err
	}

	evals, err := o.Evaluations.ListForListings(ctx, []string{listingID})
	if err != nil {
		return res, fmt.Errorf("load evaluations: %w", err)
	}
	for _, e := range evals {
		if e.Status.Open() {
			return res, &billing.ConflictError{Reason: "Evaluation already in progress"}
		}
	}

	priceID, err := o.Pricer.PickEvaluationPrice(ctx, u.ID)
	if err != nil {
		return res, err
	}
	res.PriceID = priceID
	if err := o.checkPrice(ctx, billing.PurposeEvaluation, priceID); err != nil {
		return res, err
	}

	successURL, cancelURL, err := o.redirects(req.SuccessURL, req.CancelURL)
	if err != nil {
		return res, err
	}

	customerID, err := o.Ledger.EnsureCustomer(ctx, u)
	if err != nil {
		return res, err
	}

	session, err := o.Provider.CreateCheckoutSession(ctx, stripe.SessionInput{
		Mode:              stripe.ModePayment,
		CustomerID:        customerID,
		PriceID:           priceID,
		Quantity:          1,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		ClientReferenceID: userRef(u.ID),
		Metadata:          attribution(nil, u.ID, billing.PurposeEvaluation, listingID),
		// The provider keeps keys for 24h: a second evaluation of the same
		// listing at the same price inside that window gets the first
		// session back.
		IdempotencyKey:    CheckoutKey(u.ID, priceID, 1, listingID, billing.PurposeEvaluation),
	})
	if err != nil {
		return res, err
	}

	o.Log.Info().Uint("user_id", u.ID).Str("listing_id", listingID).
		Str("price_id", priceID).Str("session_id", session.ID).Msg("evaluation checkout created")

	res.URL = session.URL
	res.SessionID = session.ID
	return res, nil
}

func (o *CheckoutOrchestrator) loadUser(ctx context.Context, userID uint) (users.User, error) {
	if userID == 0 {
		return users.User{}, billing.ErrUnauthenticated
	}
	u, err := o.Users.GetByID(ctx, userID)
	if errors.Is(err, billing.ErrNotFound) {
		return users.User{}, billing.ErrUnauthenticated
	}
	if err != nil {
		return users.User{}, fmt.Errorf("load user: %w", err)
	}
	if !u.IsVerified {
		return users.User{}, fmt.Errorf("%w: email not verified", billing.ErrForbidden)
	}
	return u, nil
}

// checkOwnership treats a missing listing like someone else's.
func (o *CheckoutOrchestrator) checkOwnership(ctx context.Context, userID uint, listingID string) error {
	l, err := o.Listings.GetByID(ctx, listingID)
	if errors.Is(err, billing.ErrNotFound) {
		o.Log.Warn().Uint("user_id", userID).Str("listing_id", listingID).Msg("checkout for unknown listing")
		return billing.ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("load listing: %w", err)
	}
	if l.OwnerID != userID {
		o.Log.Warn().Uint("user_id", userID).Str("listing_id", listingID).Msg("checkout for listing owned by someone else")
		return billing.ErrForbidden
	}
	return nil
}

// checkPrice enforces the whitelist first, then the cadence reported by the
// provider.
func (o *CheckoutOrchestrator) checkPrice(ctx context.Context, purpose billing.Purpose, priceID string) error {
	if !o.Whitelist.Allows(purpose, priceID) {
		o.Log.Warn().Str("purpose", string(purpose)).Str("price_id", priceID).Msg("price not whitelisted for purpose")
		return billing.ErrInvalidPrice
	}
	price, err := o.Catalog.GetPrice(ctx, priceID)
	if errors.Is(err, billing.ErrNotFound) {
		return billing.ErrInvalidPrice
	}
	if err != nil {
		return err
	}
	if !price.Active {
		return billing.ErrInvalidPrice
	}
	if price.Cadence() != purpose.Cadence() {
		return billing.ErrInvalidCadence
	}
	return nil
}

// checkDuplicate stops paying twice for something already live.
func (o *CheckoutOrchestrator) checkDuplicate(ctx context.Context, u users.User, purpose billing.Purpose, listingID string) error {
	switch purpose {
	case billing.PurposeBaseMembership:
		subs, err := o.Subscriptions.ListByUser(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("load subscriptions: %w", err)
		}
		if access.Evaluate(u, subs).Entitled {
			return &billing.ConflictError{Reason: "Membership already active"}
		}
	case billing.PurposeListingPromo:
		promos, err := o.Subscriptions.ListPromotionsForListings(ctx, []string{listingID})
		if err != nil {
			return fmt.Errorf("load promotions: %w", err)
		}
		if promotion.Project(o.now(), []string{listingID}, promos, nil).IsBoosted(listingID) {
			return &billing.ConflictError{Reason: "Listing already boosted"}
		}
	}
	return nil
}

// redirects defaults to app pages and only accepts caller URLs on the app
// origin.
func (o *CheckoutOrchestrator) redirects(success, cancel string) (string, string, error) {
	if success == "" {
		success = o.AppURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"
	} else if !o.sameOrigin(success) {
		return "", "", billing.Invalid("Invalid successUrl")
	}
	if cancel == "" {
		cancel = o.AppURL + "/billing/canceled"
	} else if !o.sameOrigin(cancel) {
		return "", "", billing.Invalid("Invalid cancelUrl")
	}
	return success, cancel, nil
}

func (o *CheckoutOrchestrator) sameOrigin(raw string) bool {
	app, err := url.Parse(o.AppURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == app.Scheme && u.Host == app.Host
}

func cleanMetadata(in map[string]string) (map[string]string, error) {
	if len(in) > maxMetadataKeys {
		return nil, billing.Invalid("Too many metadata keys")
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.TrimSpace(k)
		if k == "" || len(k) > maxMetadataKeyLen || len(v) > maxMetadataValLen {
			return nil, billing.Invalid("Invalid metadata")
		}
		out[k] = v
	}
	return out, nil
}

// attribution merges caller metadata with the reserved attribution keys,
// which always win.
func attribution(extra map[string]string, userID uint, purpose billing.Purpose, listingID string) map[string]string {
	md := make(map[string]string, len(extra)+3)
	for k, v := range extra {
		md[k] = v
	}
	md[MetaUserID] = userRef(userID)
	md[MetaPurpose] = string(purpose)
	delete(md, MetaListingID)
	if listingID != "" {
		md[MetaListingID] = listingID
	}
	return md
}

func userRef(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func purposeLabel(resolved billing.Purpose, requested string) billing.Purpose {
	if resolved != "" {
		return resolved
	}
	if p := billing.Purpose(requested); p.Valid() {
		return p
	}
	return "unknown"
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, billing.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, billing.ErrConflict):
		return "conflict"
	case errors.Is(err, billing.ErrForbidden), errors.Is(err, billing.ErrUnauthenticated):
		return "denied"
	case errors.Is(err, billing.ErrInvalidInput), errors.Is(err, billing.ErrInvalidPrice), errors.Is(err, billing.ErrInvalidCadence):
		return "rejected"
	default:
		return "error"
	}
}
