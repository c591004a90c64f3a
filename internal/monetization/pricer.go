package monetization

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/plans"
	"dealflow-api/internal/repository"
)

// EvaluationPricer picks the member or public price for a one-off
// evaluation.
type EvaluationPricer struct {
	subs        repository.Subscriptions
	catalog     PriceCatalog
	memberPrice string
	publicPrice string
	log         zerolog.Logger
}

func NewEvaluationPricer(subs repository.Subscriptions, catalog PriceCatalog, memberPrice, publicPrice string, log zerolog.Logger) *EvaluationPricer {
	return &EvaluationPricer{
		subs:        subs,
		catalog:     catalog,
		memberPrice: memberPrice,
		publicPrice: publicPrice,
		log:         log,
	}
}

// PickEvaluationPrice reads the user's subscriptions once. A read failure is
// returned rather than silently charging the public price.
func (p *EvaluationPricer) PickEvaluationPrice(ctx context.Context, userID uint) (string, error) {
	subs, err := p.subs.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load subscriptions: %w", err)
	}
	return pickEvaluationPrice(subs, p.memberPrice, p.publicPrice, func(s billing.Subscription) string {
		return p.audience(ctx, s)
	}), nil
}

// pickEvaluationPrice grants the member price only for an active (not
// trialing) base membership sold to businesses.
func pickEvaluationPrice(subs []billing.Subscription, member, public string, audience func(billing.Subscription) string) string {
	if member == "" {
		return public
	}
	for _, s := range subs {
		if s.Purpose != billing.PurposeBaseMembership || s.Status != billing.StatusActive {
			continue
		}
		if audience(s) == plans.AudienceBusiness {
			return member
		}
	}
	return public
}

// audience classifies from the metadata stored with the row and only asks
// the catalog when the row has nothing to go on.
func (p *EvaluationPricer) audience(ctx context.Context, s billing.Subscription) string {
	if a := plans.Audience(s.PriceMetadata, s.PriceLabel); a != plans.AudienceUnknown {
		return a
	}
	if p.catalog == nil {
		return plans.AudienceUnknown
	}
	price, err := p.catalog.GetPrice(ctx, s.PriceID)
	if err != nil {
		p.log.Warn().Err(err).Str("price_id", s.PriceID).Msg("price lookup failed, using public evaluation price")
		return plans.AudienceUnknown
	}
	return plans.Audience(price.Metadata, price.Label(), price.ProductName)
}
