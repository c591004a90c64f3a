package access

import "dealflow-api/internal/domain/billing"

// PublishGate limits how many listings a business may keep active.
// Enforce is a deployment flag; when false every publish is allowed.
type PublishGate struct {
	Enforce       bool
	BaseAllowance int
}

// Allowance is the number of active listings the subscriptions pay for.
func (g PublishGate) Allowance(subs []billing.Subscription) int {
	n := g.BaseAllowance
	for _, s := range subs {
		if s.Purpose == billing.PurposeListingPlan && s.Status.Entitling() {
			n++
		}
	}
	return n
}

// Check is called before a listing goes from inactive to active.
func (g PublishGate) Check(activeListings int, subs []billing.Subscription) error {
	if !g.Enforce {
		return nil
	}
	if activeListings+1 > g.Allowance(subs) {
		return billing.ErrPlanLimit
	}
	return nil
}
