package stripe

import (
	"time"

	stripeapi "github.com/stripe/stripe-go/v75"

	"dealflow-api/internal/domain/plans"
)

func toPrice(p *stripeapi.Price) plans.Price {
	if p == nil {
		return plans.Price{}
	}
	out := plans.Price{
		ID:         p.ID,
		Active:     p.Active,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
		Nickname:   p.Nickname,
		LookupKey:  p.LookupKey,
		Metadata:   p.Metadata,
		Recurring:  p.Type == stripeapi.PriceTypeRecurring,
	}
	if p.Recurring != nil {
		out.Recurring = true
		out.Interval = string(p.Recurring.Interval)
	}
	if p.Product != nil {
		out.ProductName = p.Product.Name
	}
	return out
}

func toSubscription(s *stripeapi.Subscription) Subscription {
	out := Subscription{
		ID:                 s.ID,
		Status:             string(s.Status),
		Metadata:           s.Metadata,
		CurrentPeriodStart: unixPtr(s.CurrentPeriodStart),
		CurrentPeriodEnd:   unixPtr(s.CurrentPeriodEnd),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0] != nil {
		item := s.Items.Data[0]
		out.Price = toPrice(item.Price)
		out.Quantity = item.Quantity
	}
	return out
}

func toCheckoutSession(s *stripeapi.CheckoutSession) CheckoutSession {
	out := CheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		Mode:              string(s.Mode),
		PaymentStatus:     string(s.PaymentStatus),
		ClientReferenceID: s.ClientReferenceID,
		AmountTotal:       s.AmountTotal,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	return out
}

func toInvoice(in *stripeapi.Invoice) Invoice {
	out := Invoice{
		ID:         in.ID,
		AmountPaid: in.AmountPaid,
		AmountDue:  in.AmountDue,
		Currency:   string(in.Currency),
		HostedURL:  in.HostedInvoiceURL,
	}
	if in.Customer != nil {
		out.CustomerID = in.Customer.ID
	}
	if in.Subscription != nil {
		out.SubscriptionID = in.Subscription.ID
	}
	return out
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
