package monetization

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/users"
	"dealflow-api/internal/repository"
)

// CustomerLedger maps a user to exactly one provider customer.
type CustomerLedger struct {
	customers repository.Customers
	provider  PaymentProvider
	log       zerolog.Logger
	group     singleflight.Group
}

func NewCustomerLedger(customers repository.Customers, provider PaymentProvider, log zerolog.Logger) *CustomerLedger {
	return &CustomerLedger{customers: customers, provider: provider, log: log}
}

// EnsureCustomer returns the user's provider customer id, creating it on
// first use. Concurrent first calls in this process share one attempt;
// across processes the unique user_id index decides the winner and the
// loser's customer is deleted.
func (l *CustomerLedger) EnsureCustomer(ctx context.Context, u users.User) (string, error) {
	if m, err := l.customers.GetByUserID(ctx, u.ID); err == nil {
		return m.ExternalCustomerID, nil
	} else if !errors.Is(err, billing.ErrNotFound) {
		return "", fmt.Errorf("ensure customer: %w", err)
	}

	// The shared attempt must outlive any single caller; each caller still
	// stops waiting when its own context ends. Provider calls keep their own
	// timeout.
	shared := context.WithoutCancel(ctx)
	key := strconv.FormatUint(uint64(u.ID), 10)
	ch := l.group.DoChan(key, func() (any, error) {
		return l.create(shared, u)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (l *CustomerLedger) create(ctx context.Context, u users.User) (string, error) {
	// The key makes provider retries return the same customer.
	created, err := l.provider.CreateCustomer(ctx, u.ID, u.Email, "customer_"+strconv.FormatUint(uint64(u.ID), 10))
	if err != nil {
		return "", err
	}

	stored, inserted, err := l.customers.InsertIfAbsent(ctx, billing.CustomerMapping{
		UserID:             u.ID,
		ExternalCustomerID: created,
		Email:              u.Email,
	})
	if err != nil {
		return "", fmt.Errorf("store customer mapping: %w", err)
	}
	if !inserted && stored.ExternalCustomerID != created {
		if derr := l.provider.DeleteCustomer(ctx, created); derr != nil {
			l.log.Warn().Err(derr).Uint("user_id", u.ID).Str("customer_id", created).
				Msg("could not delete unused customer after losing insert race")
		}
	}
	return stored.ExternalCustomerID, nil
}
