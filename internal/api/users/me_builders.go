package users

import (
	"time"

	"dealflow-api/internal/domain/access"
	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/users"
)

func BuildUserDTO(u users.User) UserDTO {
	var role *string
	if r := u.MarketplaceRole(); r != nil {
		s := string(*r)
		role = &s
	} else if users.NormalizeRole(string(u.Role)) == users.RoleAdmin {
		s := string(users.RoleAdmin)
		role = &s
	}
	return UserDTO{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       role,
		IsVerified: u.IsVerified,
	}
}

func BuildSubscriptionDTO(s billing.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		Purpose:              string(s.Purpose),
		ListingID:            s.ListingID,
		Status:               string(s.Status),
		PriceID:              s.PriceID,
		CurrentPeriodEnd:     s.CurrentPeriodEnd,
		CancelAtPeriodEnd:    s.CancelAtPeriodEnd,
		StripeSubscriptionID: s.ExternalSubscriptionID,
	}
}

// BuildBillingDTO shows the membership the entitlement is decided on and
// every live listing-scoped subscription.
func BuildBillingDTO(now time.Time, subs []billing.Subscription) BillingDTO {
	out := BillingDTO{Listings: []SubscriptionDTO{}}
	if m, ok := access.Membership(subs); ok {
		dto := BuildSubscriptionDTO(m)
		out.Membership = &dto
		if m.Status == billing.StatusTrialing {
			out.Trial = BuildTrialDTO(now, m.CurrentPeriodEnd)
		}
	}
	for _, s := range subs {
		if s.Purpose.ListingScoped() && !s.Status.Terminal() {
			out.Listings = append(out.Listings, BuildSubscriptionDTO(s))
		}
	}
	return out
}

func BuildTrialDTO(now time.Time, end *time.Time) *TrialDTO {
	if end == nil {
		return nil
	}

	d := 0
	if now.Before(*end) {
		d = int(end.Sub(now).Hours() / 24)
	}
	return &TrialDTO{
		EndsAt:   end,
		DaysLeft: &d,
	}
}

// BuildAccessDTO flags a pending state when the user has a subscription row
// still waiting for its first payment.
func BuildAccessDTO(ent access.Entitlement, subs []billing.Subscription) AccessDTO {
	pending := false
	if !ent.Entitled {
		for _, s := range subs {
			if s.Purpose == billing.PurposeBaseMembership && s.Status == billing.StatusIncomplete {
				pending = true
				break
			}
		}
	}
	return AccessDTO{
		Entitled:   ent.Entitled,
		Unverified: ent.Unverified,
		Pending:    pending,
		Degraded:   ent.Degraded,
	}
}
