package billing

import "strings"

type Purpose string

const (
	PurposeBaseMembership Purpose = "base_membership"
	PurposeListingPromo   Purpose = "listing_promo"
	PurposeListingPlan    Purpose = "listing_plan"
	PurposeEvaluation     Purpose = "evaluation"
)

// Cadence is the billing cadence a price must have for a purpose.
type Cadence string

const (
	CadenceRecurring Cadence = "recurring"
	CadenceOneTime   Cadence = "one_time"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeBaseMembership, PurposeListingPromo, PurposeListingPlan, PurposeEvaluation:
		return true
	}
	return false
}

// ListingScoped purposes are bought for one listing and need a listing id.
func (p Purpose) ListingScoped() bool {
	return p == PurposeListingPromo || p == PurposeListingPlan || p == PurposeEvaluation
}

func (p Purpose) Cadence() Cadence {
	if p == PurposeEvaluation {
		return CadenceOneTime
	}
	return CadenceRecurring
}

// ResolveCheckoutPurpose picks the purpose of a subscription checkout.
// An explicit purpose wins; otherwise a listing id means a listing promotion
// and no listing id means the base membership. One-off evaluations have their
// own checkout path and are rejected here.
func ResolveCheckoutPurpose(explicit, listingID string) (Purpose, error) {
	explicit = strings.TrimSpace(explicit)
	listingID = strings.TrimSpace(listingID)

	var p Purpose
	switch {
	case explicit != "":
		p = Purpose(strings.ToLower(explicit))
		if !p.Valid() || p == PurposeEvaluation {
			return "", Invalid("Invalid purpose")
		}
	case listingID != "":
		p = PurposeListingPromo
	default:
		p = PurposeBaseMembership
	}

	if p.ListingScoped() && listingID == "" {
		return "", Invalid("Missing listingId")
	}
	if !p.ListingScoped() && listingID != "" {
		return "", Invalid("listingId not allowed for purpose")
	}
	return p, nil
}
