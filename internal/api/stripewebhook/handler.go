package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/infra/metrics"
	"dealflow-api/internal/infra/stripe"
	"dealflow-api/internal/monetization"
)

const maxBodyBytes = 65536

// EventHandler applies a verified event.
type EventHandler interface {
	Handle(ctx context.Context, ev stripe.Event) (monetization.Outcome, error)
}

type Handler struct {
	secret  string
	events  EventHandler
	log     zerolog.Logger
	metrics metrics.Recorder
}

func NewHandler(secret string, events EventHandler, log zerolog.Logger, m metrics.Recorder) *Handler {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Handler{secret: secret, events: events, log: log, metrics: m}
}

// StripeWebhook verifies the signature over the raw body before anything
// else. Unverifiable or malformed payloads get 400 and change nothing;
// processing failures get 500 so the provider redelivers.
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
		return
	}

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	ev, err := stripe.ParseEvent(payload, c.GetHeader("Stripe-Signature"), h.secret)
	if errors.Is(err, billing.ErrSignatureInvalid) {
		h.log.Warn().Err(err).Str("ip", c.ClientIP()).Msg("stripe signature verification failed")
		h.metrics.WebhookEvent("unknown", "signature_invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Msg("malformed stripe event")
		h.metrics.WebhookEvent("unknown", "malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event"})
		return
	}

	outcome, err := h.events.Handle(c.Request.Context(), ev)
	if err != nil {
		// The reconciler already logged with event context.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
