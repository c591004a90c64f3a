package plans

import (
	"sort"
	"strings"

	"dealflow-api/internal/domain/billing"
)

// Whitelist is the deployment-configured set of price ids a purpose may be
// bought with. It never takes input from requests.
type Whitelist struct {
	byPurpose map[billing.Purpose]map[string]struct{}
}

func NewWhitelist(prices map[billing.Purpose][]string) *Whitelist {
	w := &Whitelist{byPurpose: make(map[billing.Purpose]map[string]struct{}, len(prices))}
	for purpose, ids := range prices {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				set[id] = struct{}{}
			}
		}
		w.byPurpose[purpose] = set
	}
	return w
}

// AllowedPrices returns the sorted price ids for purpose.
func (w *Whitelist) AllowedPrices(purpose billing.Purpose) []string {
	set := w.byPurpose[purpose]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (w *Whitelist) Allows(purpose billing.Purpose, priceID string) bool {
	_, ok := w.byPurpose[purpose][priceID]
	return ok
}

// PurposeOf finds the single purpose a price is whitelisted for. A price
// listed under more than one purpose is ambiguous and reported as unknown.
func (w *Whitelist) PurposeOf(priceID string) (billing.Purpose, bool) {
	var found billing.Purpose
	n := 0
	for purpose, set := range w.byPurpose {
		if _, ok := set[priceID]; ok {
			found = purpose
			n++
		}
	}
	if n != 1 {
		return "", false
	}
	return found, true
}

// Purposes returns the configured purposes in a stable order.
func (w *Whitelist) Purposes() []billing.Purpose {
	out := make([]billing.Purpose, 0, len(w.byPurpose))
	for p := range w.byPurpose {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
