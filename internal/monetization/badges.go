package monetization

import (
	"context"
	"fmt"
	"time"

	"dealflow-api/internal/domain/promotion"
	"dealflow-api/internal/repository"
)

// MaxBadgeIDs bounds one badge lookup.
const MaxBadgeIDs = 100

// BadgeResolver batches the two reads behind listing badges.
type BadgeResolver struct {
	subs        repository.Subscriptions
	evaluations repository.Evaluations
	now         func() time.Time
}

func NewBadgeResolver(subs repository.Subscriptions, evaluations repository.Evaluations) *BadgeResolver {
	return &BadgeResolver{subs: subs, evaluations: evaluations, now: time.Now}
}

func (r *BadgeResolver) Badges(ctx context.Context, listingIDs []string) (promotion.Badges, error) {
	ids := dedupe(listingIDs)
	if len(ids) == 0 {
		return promotion.Project(r.now(), nil, nil, nil), nil
	}
	if len(ids) > MaxBadgeIDs {
		ids = ids[:MaxBadgeIDs]
	}

	promos, err := r.subs.ListPromotionsForListings(ctx, ids)
	if err != nil {
		return promotion.Badges{}, fmt.Errorf("load promotions: %w", err)
	}
	evals, err := r.evaluations.ListForListings(ctx, ids)
	if err != nil {
		return promotion.Badges{}, fmt.Errorf("load evaluations: %w", err)
	}
	return promotion.Project(r.now(), ids, promos, evals), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
