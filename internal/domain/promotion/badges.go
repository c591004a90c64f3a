package promotion

import (
	"time"

	"dealflow-api/internal/domain/billing"
)

// Badges is the per-listing projection rendered next to listing cards.
type Badges struct {
	Boosted          map[string]bool                     `json:"boosted"`
	EvaluationStatus map[string]billing.EvaluationStatus `json:"evaluation_status"`
}

// Project builds badges for ids from already-fetched rows. Rows for other
// listings are ignored.
func Project(now time.Time, ids []string, promos []billing.Subscription, evals []billing.EvaluationPurchase) Badges {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	out := Badges{
		Boosted:          map[string]bool{},
		EvaluationStatus: map[string]billing.EvaluationStatus{},
	}

	for _, s := range promos {
		if s.Purpose != billing.PurposeListingPromo || s.ListingID == nil {
			continue
		}
		if _, ok := wanted[*s.ListingID]; !ok {
			continue
		}
		// A row past its period end is not a boost even if still marked active.
		if s.ActiveAt(now) {
			out.Boosted[*s.ListingID] = true
		}
	}

	latest := map[string]billing.EvaluationPurchase{}
	for _, e := range evals {
		if _, ok := wanted[e.ListingID]; !ok {
			continue
		}
		cur, seen := latest[e.ListingID]
		if !seen || e.CreatedAt.After(cur.CreatedAt) ||
			(e.CreatedAt.Equal(cur.CreatedAt) && e.ID > cur.ID) {
			latest[e.ListingID] = e
		}
	}
	for id, e := range latest {
		out.EvaluationStatus[id] = e.Status
	}
	return out
}

func (b Badges) IsBoosted(listingID string) bool {
	return b.Boosted[listingID]
}
