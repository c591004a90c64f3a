package stripe

import (
	"encoding/json"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"

	"dealflow-api/internal/domain/billing"
)

// ParseEvent verifies the signature header against secret before decoding
// anything. Unknown event types come back with no object set.
func ParseEvent(payload []byte, header, secret string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, header, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", billing.ErrSignatureInvalid, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type), Created: ev.Created}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncPaymentPaid:
		var s stripeapi.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return Event{}, billing.Invalid("malformed checkout session")
		}
		cs := toCheckoutSession(&s)
		out.Session = &cs

	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var s stripeapi.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return Event{}, billing.Invalid("malformed subscription")
		}
		sub := toSubscription(&s)
		out.Subscription = &sub

	case EventInvoicePaid, EventInvoicePaymentFailed:
		var in stripeapi.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &in); err != nil {
			return Event{}, billing.Invalid("malformed invoice")
		}
		inv := toInvoice(&in)
		out.Invoice = &inv
	}
	return out, nil
}
