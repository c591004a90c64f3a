package monetization

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/repository"
)

// EvaluationDesk lets the valuation provider move purchases forward.
type EvaluationDesk struct {
	evaluations repository.Evaluations
	log         zerolog.Logger
}

func NewEvaluationDesk(e repository.Evaluations, log zerolog.Logger) *EvaluationDesk {
	return &EvaluationDesk{evaluations: e, log: log}
}

func (d *EvaluationDesk) Advance(ctx context.Context, id string, to billing.EvaluationStatus) (billing.EvaluationPurchase, error) {
	cur, err := d.evaluations.GetByID(ctx, id)
	if err != nil {
		return billing.EvaluationPurchase{}, err
	}
	if cur.Status == to {
		return cur, nil
	}
	if !cur.Status.CanAdvance(to) {
		return billing.EvaluationPurchase{}, &billing.ConflictError{
			Reason: fmt.Sprintf("Cannot move evaluation from %s to %s", cur.Status, to),
		}
	}
	ok, err := d.evaluations.UpdateStatus(ctx, id, cur.Status, to)
	if err != nil {
		return billing.EvaluationPurchase{}, fmt.Errorf("update evaluation: %w", err)
	}
	if !ok {
		return billing.EvaluationPurchase{}, &billing.ConflictError{Reason: "Evaluation changed concurrently"}
	}
	d.log.Info().Str("evaluation_id", id).Str("from", string(cur.Status)).Str("to", string(to)).Msg("evaluation advanced")
	cur.Status = to
	return cur, nil
}
