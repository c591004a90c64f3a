package stripe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	stripeapi "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"

	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/infra/metrics"
)

type Options struct {
	SecretKey string
	// Timeout bounds every provider call, including stripe-go's own retries.
	Timeout           time.Duration
	MaxNetworkRetries int64
	// BaseURL overrides the API endpoint; tests point it at httptest.
	BaseURL string
	Logger  zerolog.Logger
	Metrics metrics.Recorder
}

// Client is the injected payment-provider gateway. No package-level key or
// client is ever used.
type Client struct {
	api     *client.API
	timeout time.Duration
	log     zerolog.Logger
	metrics metrics.Recorder
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}

	cfg := &stripeapi.BackendConfig{
		HTTPClient:        &http.Client{Timeout: opts.Timeout},
		MaxNetworkRetries: stripeapi.Int64(opts.MaxNetworkRetries),
		LeveledLogger:     leveledLogger{opts.Logger},
	}
	if opts.BaseURL != "" {
		cfg.URL = stripeapi.String(opts.BaseURL)
	}

	backends := &stripeapi.Backends{
		API:     stripeapi.GetBackendWithConfig(stripeapi.APIBackend, cfg),
		Connect: stripeapi.GetBackendWithConfig(stripeapi.ConnectBackend, cfg),
		Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, cfg),
	}

	return &Client{
		api:     client.New(opts.SecretKey, backends),
		timeout: opts.Timeout,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	result := "ok"
	if err != nil {
		result = "error"
		c.log.Error().Err(err).Str("op", op).Msg("payment provider call failed")
	}
	c.metrics.ProviderCall(op, result, time.Since(start))
	return wrapErr(op, err)
}

// CreateCustomer uses idempotencyKey so a retried first call cannot create
// a second customer at the provider.
func (c *Client) CreateCustomer(ctx context.Context, userID uint, email, idempotencyKey string) (string, error) {
	var id string
	err := c.call(ctx, "customer.create", func(ctx context.Context) error {
		params := &stripeapi.CustomerParams{}
		if email != "" {
			params.Email = stripeapi.String(email)
		}
		params.Context = ctx
		params.AddMetadata("user_id", strconv.FormatUint(uint64(userID), 10))
		if idempotencyKey != "" {
			params.SetIdempotencyKey(idempotencyKey)
		}
		cus, err := c.api.Customers.New(params)
		if err != nil {
			return err
		}
		id = cus.ID
		return nil
	})
	return id, err
}

func (c *Client) DeleteCustomer(ctx context.Context, customerID string) error {
	return c.call(ctx, "customer.delete", func(ctx context.Context) error {
		params := &stripeapi.CustomerParams{}
		params.Context = ctx
		_, err := c.api.Customers.Del(customerID, params)
		return err
	})
}

func (c *Client) GetPrice(ctx context.Context, priceID string) (plans.Price, error) {
	var out plans.Price
	err := c.call(ctx, "price.get", func(ctx context.Context) error {
		params := &stripeapi.PriceParams{}
		params.Context = ctx
		params.AddExpand("product")
		p, err := c.api.Prices.Get(priceID, params)
		if err != nil {
			return err
		}
		out = toPrice(p)
		return nil
	})
	return out, err
}

func (c *Client) CreateCheckoutSession(ctx context.Context, in SessionInput) (CheckoutSession, error) {
	var out CheckoutSession
	err := c.call(ctx, "checkout.create", func(ctx context.Context) error {
		params := &stripeapi.CheckoutSessionParams{
			Mode:       stripeapi.String(in.Mode),
			SuccessURL: stripeapi.String(in.SuccessURL),
			CancelURL:  stripeapi.String(in.CancelURL),
			LineItems: []*stripeapi.CheckoutSessionLineItemParams{
				{Price: stripeapi.String(in.PriceID), Quantity: stripeapi.Int64(in.Quantity)},
			},
		}
		params.Context = ctx
		if in.CustomerID != "" {
			params.Customer = stripeapi.String(in.CustomerID)
		}
		if in.ClientReferenceID != "" {
			params.ClientReferenceID = stripeapi.String(in.ClientReferenceID)
		}
		for k, v := range in.Metadata {
			params.AddMetadata(k, v)
		}

		// The resulting subscription or payment carries the same attribution
		// so later events need no lookup.
		switch in.Mode {
		case ModeSubscription:
			params.SubscriptionData = &stripeapi.CheckoutSessionSubscriptionDataParams{Metadata: copyMap(in.Metadata)}
		case ModePayment:
			params.PaymentIntentData = &stripeapi.CheckoutSessionPaymentIntentDataParams{Metadata: copyMap(in.Metadata)}
		}
		if in.IdempotencyKey != "" {
			params.SetIdempotencyKey(in.IdempotencyKey)
		}

		s, err := c.api.CheckoutSessions.New(params)
		if err != nil {
			return err
		}
		out = toCheckoutSession(s)
		return nil
	})
	return out, err
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (Subscription, error) {
	var out Subscription
	err := c.call(ctx, "subscription.get", func(ctx context.Context) error {
		params := &stripeapi.SubscriptionParams{}
		params.Context = ctx
		params.AddExpand("items.data.price.product")
		s, err := c.api.Subscriptions.Get(subscriptionID, params)
		if err != nil {
			return err
		}
		out = toSubscription(s)
		return nil
	})
	return out, err
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	var url string
	err := c.call(ctx, "portal.create", func(ctx context.Context) error {
		params := &stripeapi.BillingPortalSessionParams{
			Customer:  stripeapi.String(customerID),
			ReturnURL: stripeapi.String(returnURL),
		}
		params.Context = ctx
		s, err := c.api.BillingPortalSessions.New(params)
		if err != nil {
			return err
		}
		url = s.URL
		return nil
	})
	return url, err
}

func copyMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// leveledLogger routes stripe-go's own logging into zerolog.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug().Msg(fmt.Sprintf(format, v...))
}

func (l leveledLogger) Infof(format string, v ...interface{}) {
	l.log.Debug().Msg(fmt.Sprintf(format, v...))
}

func (l leveledLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn().Msg(fmt.Sprintf(format, v...))
}

func (l leveledLogger) Errorf(format string, v ...interface{}) {
	l.log.Error().Msg(fmt.Sprintf(format, v...))
}
