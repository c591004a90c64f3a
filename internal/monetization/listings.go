package monetization

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/access"
	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/repository"
)

// Publisher activates listings behind the plan-limit gate.
type Publisher struct {
	listings repository.Listings
	subs     repository.Subscriptions
	gate     access.PublishGate
	log      zerolog.Logger
}

func NewPublisher(l repository.Listings, subs repository.Subscriptions, gate access.PublishGate, log zerolog.Logger) *Publisher {
	return &Publisher{listings: l, subs: subs, gate: gate, log: log}
}

func (p *Publisher) Publish(ctx context.Context, userID uint, listingID string) error {
	l, err := p.listings.GetByID(ctx, listingID)
	if errors.Is(err, billing.ErrNotFound) {
		return billing.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load listing: %w", err)
	}
	if l.OwnerID != userID {
		p.log.Warn().Uint("user_id", userID).Str("listing_id", listingID).Msg("publish of listing owned by someone else")
		return billing.ErrForbidden
	}
	if l.IsActive {
		return nil
	}

	if p.gate.Enforce {
		active, err := p.listings.CountActiveByOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("count active listings: %w", err)
		}
		subs, err := p.subs.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("load subscriptions: %w", err)
		}
		if err := p.gate.Check(int(active), subs); err != nil {
			return err
		}
	}

	if err := p.listings.Publish(ctx, listingID); err != nil {
		return fmt.Errorf("publish listing: %w", err)
	}
	p.log.Info().Uint("user_id", userID).Str("listing_id", listingID).Msg("listing published")
	return nil
}
