package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/plans"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		SecretKey: "sk_test_123",
		Timeout:   2 * time.Second,
		BaseURL:   srv.URL,
		Logger:    zerolog.Nop(),
	})
}

func TestCreateCheckoutSessionSendsAttribution(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "checkout_abc", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "cus_1", r.PostForm.Get("customer"))
		assert.Equal(t, "price_boost", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "listing_promo", r.PostForm.Get("metadata[purpose]"))
		assert.Equal(t, "l1", r.PostForm.Get("subscription_data[metadata][listing_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout.test/cs_1","mode":"subscription"}`))
	})

	s, err := c.CreateCheckoutSession(context.Background(), SessionInput{
		Mode:           ModeSubscription,
		CustomerID:     "cus_1",
		PriceID:        "price_boost",
		Quantity:       2,
		SuccessURL:     "https://app.test/ok",
		CancelURL:      "https://app.test/cancel",
		Metadata:       map[string]string{"user_id": "7", "purpose": "listing_promo", "listing_id": "l1"},
		IdempotencyKey: "checkout_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	assert.Equal(t, "https://checkout.test/cs_1", s.URL)
}

func TestProviderErrorsAreClassified(t *testing.T) {
	var status atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		switch code {
		case http.StatusNotFound:
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price"}}`))
		case http.StatusBadRequest:
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad"}}`))
		default:
			_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
		}
	})

	status.Store(http.StatusNotFound)
	_, err := c.GetPrice(context.Background(), "price_gone")
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrUpstream)
	assert.ErrorIs(t, err, billing.ErrNotFound)
	assert.False(t, billing.IsRetryable(err))

	status.Store(http.StatusBadRequest)
	_, err = c.CreatePortalSession(context.Background(), "cus_1", "https://app.test")
	var ue *billing.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "portal.create", ue.Op)
	assert.False(t, ue.Retryable)

	status.Store(http.StatusInternalServerError)
	_, err = c.GetSubscription(context.Background(), "sub_1")
	assert.True(t, billing.IsRetryable(err))
}

type countingSource struct {
	calls atomic.Int32
}

func (s *countingSource) GetPrice(ctx context.Context, id string) (plans.Price, error) {
	s.calls.Add(1)
	return plans.Price{ID: id, Recurring: true}, nil
}

func TestCatalogCaches(t *testing.T) {
	src := &countingSource{}
	cat := NewCatalog(src, 10, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := cat.GetPrice(context.Background(), "price_a")
		require.NoError(t, err)
		assert.Equal(t, "price_a", p.ID)
	}
	assert.Equal(t, int32(1), src.calls.Load())

	cat.Invalidate("price_a")
	_, err := cat.GetPrice(context.Background(), "price_a")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

// gatedSource blocks every lookup until release is closed and fails on a
// cancelled context like a real HTTP call would.
type gatedSource struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (s *gatedSource) GetPrice(ctx context.Context, id string) (plans.Price, error) {
	if s.calls.Add(1) == 1 {
		close(s.entered)
	}
	<-s.release
	if err := ctx.Err(); err != nil {
		return plans.Price{}, err
	}
	return plans.Price{ID: id, Active: true}, nil
}

func TestCatalogLookupSurvivesCancelledStarter(t *testing.T) {
	src := &gatedSource{entered: make(chan struct{}), release: make(chan struct{})}
	cat := NewCatalog(src, 10, time.Minute)

	starterCtx, cancel := context.WithCancel(context.Background())
	starterErr := make(chan error, 1)
	go func() {
		_, err := cat.GetPrice(starterCtx, "price_a")
		starterErr <- err
	}()
	<-src.entered

	type result struct {
		p   plans.Price
		err error
	}
	waiter := make(chan result, 1)
	go func() {
		p, err := cat.GetPrice(context.Background(), "price_a")
		waiter <- result{p, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-starterErr, context.Canceled)
	close(src.release)

	got := <-waiter
	require.NoError(t, got.err)
	assert.Equal(t, "price_a", got.p.ID)
}
