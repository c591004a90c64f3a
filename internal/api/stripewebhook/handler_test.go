package stripewebhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow-api/internal/infra/stripe"
	"dealflow-api/internal/monetization"
)

const secret = "whsec_test"

type recordingHandler struct {
	events  []stripe.Event
	outcome monetization.Outcome
	err     error
}

func (r *recordingHandler) Handle(ctx context.Context, ev stripe.Event) (monetization.Outcome, error) {
	r.events = append(r.events, ev)
	return r.outcome, r.err
}

func sign(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func serve(h *Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.StripeWebhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const subscriptionDeleted = `{
  "id": "evt_1",
  "object": "event",
  "type": "customer.subscription.deleted",
  "created": 1700000000,
  "data": {"object": {"id": "sub_1", "object": "subscription", "status": "canceled", "customer": "cus_1"}}
}`

func TestStripeWebhookProcessesVerifiedEvent(t *testing.T) {
	rec := &recordingHandler{outcome: monetization.OutcomeProcessed}
	payload := []byte(subscriptionDeleted)

	w := serve(NewHandler(secret, rec, zerolog.Nop(), nil), payload, sign(payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"processed"}`, w.Body.String())
	require.Len(t, rec.events, 1)
	assert.Equal(t, "evt_1", rec.events[0].ID)
	require.NotNil(t, rec.events[0].Subscription)
	assert.Equal(t, "sub_1", rec.events[0].Subscription.ID)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	rec := &recordingHandler{}
	payload := []byte(subscriptionDeleted)

	for name, sig := range map[string]string{
		"missing":  "",
		"garbage":  "t=1,v1=deadbeef",
		"tampered": sign([]byte(`{"id":"evt_other"}`)),
	} {
		t.Run(name, func(t *testing.T) {
			w := serve(NewHandler(secret, rec, zerolog.Nop(), nil), payload, sig)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, rec.events)
}

func TestStripeWebhookProcessingFailure(t *testing.T) {
	rec := &recordingHandler{err: errors.New("db down")}
	payload := []byte(subscriptionDeleted)

	w := serve(NewHandler(secret, rec, zerolog.Nop(), nil), payload, sign(payload))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStripeWebhookUnknownTypeIsAcknowledged(t *testing.T) {
	rec := &recordingHandler{outcome: monetization.OutcomeIgnored}
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","created":1700000000,"data":{"object":{"id":"cus_1","object":"customer"}}}`)

	w := serve(NewHandler(secret, rec, zerolog.Nop(), nil), payload, sign(payload))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ignored"}`, w.Body.String())
}

func TestStripeWebhookWithoutSecret(t *testing.T) {
	payload := []byte(subscriptionDeleted)
	w := serve(NewHandler("", &recordingHandler{}, zerolog.Nop(), nil), payload, sign(payload))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStripeWebhookMalformedObject(t *testing.T) {
	rec := &recordingHandler{}
	payload := []byte(`{"id":"evt_3","object":"event","type":"customer.subscription.updated","created":1700000000,"data":{"object":{"id":"sub_1","object":"subscription","current_period_end":"soon"}}}`)

	w := serve(NewHandler(secret, rec, zerolog.Nop(), nil), payload, sign(payload))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.events)
}
