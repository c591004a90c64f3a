package access

import (
	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/users"
)

// Evaluate derives the entitlement from the user's profile and subscription
// snapshot. The role always comes from the profile, never from price metadata.
func Evaluate(u users.User, subs []billing.Subscription) Entitlement {
	ent := Entitlement{
		Unverified: !u.IsVerified,
		Role:       u.MarketplaceRole(),
	}

	membership, ok := Membership(subs)
	if !ok {
		return ent
	}
	ent.Status = membership.Status
	ent.CurrentPeriodEnd = membership.CurrentPeriodEnd
	ent.Entitled = membership.Status.Entitling()
	return ent
}

// Membership picks the base membership row the gate is decided on. An
// entitling row wins; among equals the latest period end wins. Several live
// rows should not exist but are tolerated.
func Membership(subs []billing.Subscription) (billing.Subscription, bool) {
	var best billing.Subscription
	found := false
	for _, s := range subs {
		if s.Purpose != billing.PurposeBaseMembership {
			continue
		}
		if !found || better(s, best) {
			best = s
			found = true
		}
	}
	return best, found
}

func better(a, b billing.Subscription) bool {
	if a.Status.Entitling() != b.Status.Entitling() {
		return a.Status.Entitling()
	}
	if a.PeriodEndUnix() != b.PeriodEndUnix() {
		return a.PeriodEndUnix() > b.PeriodEndUnix()
	}
	return a.ExternalSubscriptionID > b.ExternalSubscriptionID
}
