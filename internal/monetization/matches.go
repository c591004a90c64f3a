package monetization

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/listings"
	"dealflow-api/internal/domain/matching"
	"dealflow-api/internal/repository"
)

// Matcher loads candidate snapshots and runs the matching engine. Reads that
// fail produce an empty result; matching sits on the dashboard hot path.
type Matcher struct {
	listings  repository.Listings
	investors repository.Investors
	log       zerolog.Logger
}

func NewMatcher(l repository.Listings, inv repository.Investors, log zerolog.Logger) *Matcher {
	return &Matcher{listings: l, investors: inv, log: log}
}

// InvestorsForOwner matches published investors against the owner's listings.
func (m *Matcher) InvestorsForOwner(ctx context.Context, ownerID uint) []matching.Match[listings.InvestorProfile] {
	owned, err := m.listings.ListByOwner(ctx, ownerID)
	if err != nil {
		m.log.Error().Err(err).Uint("user_id", ownerID).Msg("load owner listings for matching")
		return []matching.Match[listings.InvestorProfile]{}
	}
	candidates, err := m.investors.ListPublished(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("load investors for matching")
		return []matching.Match[listings.InvestorProfile]{}
	}
	return matching.MatchInvestors(owned, candidates)
}

// ListingsForInvestor matches active listings against the caller's profile.
// A user without an investor profile gets the newest active listings.
func (m *Matcher) ListingsForInvestor(ctx context.Context, userID uint) []matching.Match[listings.BusinessListing] {
	profile, err := m.investors.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, billing.ErrNotFound) {
		m.log.Error().Err(err).Uint("user_id", userID).Msg("load investor profile for matching")
		return []matching.Match[listings.BusinessListing]{}
	}
	candidates, err := m.listings.ListActive(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("load listings for matching")
		return []matching.Match[listings.BusinessListing]{}
	}
	return matching.MatchListings(candidates, profile)
}
