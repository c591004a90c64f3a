package plans

import "strings"

// Audience constants
const (
	AudienceUnknown  = "unknown"
	AudienceBusiness = "business"
	AudienceInvestor = "investor"
)

// Audience returns which side of the marketplace a price is sold to.
// Priority:
// 1. Explicit metadata tag (user_type, audience, then purpose)
// 2. Fallback inference from the price/product naming convention
func Audience(metadata map[string]string, names ...string) string {
	for _, key := range []string{"user_type", "audience", "purpose"} {
		if a := audienceFromToken(metadata[key]); a != AudienceUnknown {
			return a
		}
	}

	for _, n := range names {
		if a := inferAudienceFromName(n); a != AudienceUnknown {
			return a
		}
	}
	return AudienceUnknown
}

func audienceFromToken(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "business", "business_platform", "business_membership", "seller":
		return AudienceBusiness
	case "investor", "investor_platform", "investor_membership", "buyer":
		return AudienceInvestor
	}
	return AudienceUnknown
}

// inferAudienceFromName exists for prices created before metadata tags.
func inferAudienceFromName(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "business"), strings.Contains(n, "seller"):
		return AudienceBusiness
	case strings.Contains(n, "investor"), strings.Contains(n, "buyer"):
		return AudienceInvestor
	}
	return AudienceUnknown
}
