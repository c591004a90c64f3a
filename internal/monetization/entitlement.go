package monetization

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/access"
	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/infra/metrics"
	"dealflow-api/internal/repository"
)

// Entitlements evaluates the gate for a user from the stored state.
type Entitlements struct {
	users   repository.Users
	subs    repository.Subscriptions
	metrics metrics.Recorder
	log     zerolog.Logger
}

func NewEntitlements(u repository.Users, subs repository.Subscriptions, m metrics.Recorder, log zerolog.Logger) *Entitlements {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Entitlements{users: u, subs: subs, metrics: m, log: log}
}

// Evaluate fails closed: on any read error the returned entitlement denies
// access and is marked degraded, and the error is returned for logging.
func (e *Entitlements) Evaluate(ctx context.Context, userID uint) (access.Entitlement, error) {
	u, err := e.users.GetByID(ctx, userID)
	if errors.Is(err, billing.ErrNotFound) {
		// A token for a user without a profile row: nothing to be entitled to.
		e.metrics.EntitlementEvaluation("denied")
		return access.Entitlement{}, nil
	}
	if err != nil {
		e.metrics.EntitlementEvaluation("error")
		return access.Closed(), fmt.Errorf("entitlement: %w", err)
	}
	subs, err := e.subs.ListByUser(ctx, userID)
	if err != nil {
		e.metrics.EntitlementEvaluation("error")
		e.log.Error().Err(err).Uint("user_id", userID).Msg("subscription read failed, denying entitlement")
		return access.Closed(), fmt.Errorf("entitlement: %w", err)
	}

	ent := access.Evaluate(u, subs)
	switch {
	case ent.Unverified:
		e.metrics.EntitlementEvaluation("unverified")
	case ent.Entitled:
		e.metrics.EntitlementEvaluation("entitled")
	default:
		e.metrics.EntitlementEvaluation("denied")
	}
	return ent, nil
}
