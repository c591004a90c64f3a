package matching

import (
	"sort"
	"strings"
	"time"

	"dealflow-api/internal/domain/listings"
)

// Limit caps every match list.
const Limit = 4

type Source string

const (
	SourceMatched Source = "matched"
	SourceNewest  Source = "newest"
)

const (
	industryWeight = 5
	ebitdaWeight   = 3
	cashFlowWeight = 2
)

// Match is an ephemeral ranking entry; it is never stored.
type Match[T any] struct {
	Candidate T      `json:"candidate"`
	Score     int    `json:"score"`
	Source    Source `json:"source"`
}

// MatchInvestors ranks published investor profiles against a business's
// listings. When nobody scores, the newest published investors are returned
// tagged SourceNewest so the caller can word the result differently.
func MatchInvestors(owned []listings.BusinessListing, candidates []listings.InvestorProfile) []Match[listings.InvestorProfile] {
	pool := make([]listings.InvestorProfile, 0, len(candidates))
	for _, c := range candidates {
		if c.IsPublished() {
			pool = append(pool, c)
		}
	}

	scored := make([]Match[listings.InvestorProfile], 0, len(pool))
	for _, c := range pool {
		if s := scoreInvestor(owned, c); s > 0 {
			scored = append(scored, Match[listings.InvestorProfile]{Candidate: c, Score: s, Source: SourceMatched})
		}
	}

	if len(scored) > 0 {
		sort.SliceStable(scored, func(i, j int) bool {
			a, b := scored[i], scored[j]
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			return newerFirst(a.Candidate.CreatedAt, b.Candidate.CreatedAt, a.Candidate.ID, b.Candidate.ID)
		})
		return truncate(scored)
	}

	sortInvestorsNewest(pool)
	out := make([]Match[listings.InvestorProfile], 0, Limit)
	for _, c := range pool {
		out = append(out, Match[listings.InvestorProfile]{Candidate: c, Source: SourceNewest})
	}
	return truncate(out)
}

// scoreInvestor adds each rule at most once, whichever listing triggers it.
// Annual revenue is compared with the target cash flow on purpose: the
// listing form has no cash-flow field and revenue is the agreed proxy.
func scoreInvestor(owned []listings.BusinessListing, c listings.InvestorProfile) int {
	var industry, ebitda, cashFlow bool
	for _, l := range owned {
		if !industry && investorWantsIndustry(c, l.Industry) {
			industry = true
		}
		if !ebitda && overlaps(l.EBITDARange, c.TargetEBITDA) {
			ebitda = true
		}
		if !cashFlow && overlaps(l.AnnualRevenueRange, c.TargetCashFlow) {
			cashFlow = true
		}
	}

	score := 0
	if industry {
		score += industryWeight
	}
	if ebitda {
		score += ebitdaWeight
	}
	if cashFlow {
		score += cashFlowWeight
	}
	return score
}

// MatchListings picks active listings for an investor. Unlike the investor
// side there is no weighted score: industry is a hard filter ranked by
// recency, and with no industry hit the whole active pool is ranked instead.
func MatchListings(candidates []listings.BusinessListing, profile listings.InvestorProfile) []Match[listings.BusinessListing] {
	pool := make([]listings.BusinessListing, 0, len(candidates))
	for _, l := range candidates {
		if l.IsActive {
			pool = append(pool, l)
		}
	}

	preferred := make([]listings.BusinessListing, 0, len(pool))
	for _, l := range pool {
		if investorWantsIndustry(profile, l.Industry) {
			preferred = append(preferred, l)
		}
	}

	src := SourceMatched
	if len(preferred) == 0 {
		preferred = pool
		src = SourceNewest
	}

	sort.SliceStable(preferred, func(i, j int) bool {
		return newerFirst(preferred[i].CreatedAt, preferred[j].CreatedAt, preferred[i].ID, preferred[j].ID)
	})

	out := make([]Match[listings.BusinessListing], 0, Limit)
	for _, l := range preferred {
		out = append(out, Match[listings.BusinessListing]{Candidate: l, Source: src})
	}
	return truncate(out)
}

func investorWantsIndustry(p listings.InvestorProfile, industry string) bool {
	industry = normalize(industry)
	if industry == "" {
		return false
	}
	if normalize(p.PrimaryIndustry) == industry {
		return true
	}
	for _, extra := range p.AdditionalIndustries {
		if normalize(extra) == industry {
			return true
		}
	}
	return false
}

// overlaps is a bidirectional substring test on normalized range labels.
func overlaps(a, b string) bool {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func newerFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID < bID
}

func sortInvestorsNewest(pool []listings.InvestorProfile) {
	sort.SliceStable(pool, func(i, j int) bool {
		return newerFirst(pool[i].CreatedAt, pool[j].CreatedAt, pool[i].ID, pool[j].ID)
	})
}

func truncate[T any](in []Match[T]) []Match[T] {
	if len(in) > Limit {
		return in[:Limit]
	}
	return in
}
