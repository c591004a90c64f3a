package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dealflow-api/internal/domain/billing"
)

type gormCustomers struct {
	db *gorm.DB
}

func (r *gormCustomers) GetByUserID(ctx context.Context, userID uint) (billing.CustomerMapping, error) {
	var m billing.CustomerMapping
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		return billing.CustomerMapping{}, notFound(err, "load customer mapping")
	}
	return m, nil
}

func (r *gormCustomers) GetByExternalID(ctx context.Context, externalID string) (billing.CustomerMapping, error) {
	var m billing.CustomerMapping
	if err := r.db.WithContext(ctx).Where("external_customer_id = ?", externalID).First(&m).Error; err != nil {
		return billing.CustomerMapping{}, notFound(err, "load customer mapping")
	}
	return m, nil
}

// InsertIfAbsent relies on the unique user_id index; the loser of a race
// re-reads the winner's row.
func (r *gormCustomers) InsertIfAbsent(ctx context.Context, m billing.CustomerMapping) (billing.CustomerMapping, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return billing.CustomerMapping{}, false, res.Error
	}
	if res.RowsAffected == 1 {
		return m, true, nil
	}
	existing, err := r.GetByUserID(ctx, m.UserID)
	if err != nil {
		return billing.CustomerMapping{}, false, err
	}
	return existing, false, nil
}

type gormSubscriptions struct {
	db *gorm.DB
}

func (r *gormSubscriptions) GetByExternalID(ctx context.Context, externalID string) (billing.Subscription, error) {
	var s billing.Subscription
	if err := r.db.WithContext(ctx).Where("external_subscription_id = ?", externalID).First(&s).Error; err != nil {
		return billing.Subscription{}, notFound(err, "load subscription")
	}
	return s, nil
}

func (r *gormSubscriptions) ListByUser(ctx context.Context, userID uint) ([]billing.Subscription, error) {
	var out []billing.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *gormSubscriptions) ListPromotionsForListings(ctx context.Context, listingIDs []string) ([]billing.Subscription, error) {
	if len(listingIDs) == 0 {
		return nil, nil
	}
	var out []billing.Subscription
	err := r.db.WithContext(ctx).
		Where("purpose = ? AND listing_id IN ?", billing.PurposeListingPromo, listingIDs).
		Find(&out).Error
	return out, err
}

func (r *gormSubscriptions) Insert(ctx context.Context, s *billing.Subscription) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(s)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CompareAndSwap is a conditional UPDATE on (external id, revision).
func (r *gormSubscriptions) CompareAndSwap(ctx context.Context, s *billing.Subscription, expected int64) (bool, error) {
	next := *s
	next.Revision = expected + 1
	res := r.db.WithContext(ctx).Model(&billing.Subscription{}).
		Select("*").Omit("id", "created_at", "external_subscription_id").
		Where("external_subscription_id = ? AND revision = ?", s.ExternalSubscriptionID, expected).
		Updates(&next)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	s.Revision = next.Revision
	s.UpdatedAt = next.UpdatedAt
	return true, nil
}

type gormEvaluations struct {
	db *gorm.DB
}

func (r *gormEvaluations) GetByID(ctx context.Context, id string) (billing.EvaluationPurchase, error) {
	var e billing.EvaluationPurchase
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return billing.EvaluationPurchase{}, notFound(err, "load evaluation")
	}
	return e, nil
}

func (r *gormEvaluations) InsertIfAbsent(ctx context.Context, e *billing.EvaluationPurchase) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormEvaluations) ListForListings(ctx context.Context, listingIDs []string) ([]billing.EvaluationPurchase, error) {
	if len(listingIDs) == 0 {
		return nil, nil
	}
	var out []billing.EvaluationPurchase
	err := r.db.WithContext(ctx).
		Where("listing_id IN ?", listingIDs).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *gormEvaluations) UpdateStatus(ctx context.Context, id string, from, to billing.EvaluationStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&billing.EvaluationPurchase{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type gormWebhookEvents struct {
	db *gorm.DB
}

func (r *gormWebhookEvents) Begin(ctx context.Context, ev *billing.WebhookEvent) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return false, nil
	}
	var existing billing.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider_event_id = ?", ev.ProviderEventID).
		First(&existing).Error; err != nil {
		return false, notFound(err, "load webhook event")
	}
	*ev = existing
	return existing.ProcessedAt != nil, nil
}

func (r *gormWebhookEvents) Finish(ctx context.Context, providerEventID string, procErr error) error {
	updates := map[string]any{"processing_error": ""}
	if procErr != nil {
		updates["processing_error"] = procErr.Error()
	} else {
		updates["processed_at"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&billing.WebhookEvent{}).
		Where("provider_event_id = ?", providerEventID).
		Updates(updates).Error
}

type gormPayments struct {
	db *gorm.DB
}

func (r *gormPayments) UpsertByInvoice(ctx context.Context, p *billing.Payment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "amount_cents", "currency", "receipt_url", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Neq{Column: clause.Column{Table: "payments", Name: "status"}, Value: billing.PaymentStatusPaid},
		}},
	}).Create(p).Error
}

func (r *gormPayments) ListByUser(ctx context.Context, userID uint, limit int) ([]billing.Payment, error) {
	var out []billing.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *gormPayments) ListAll(ctx context.Context, limit int) ([]billing.Payment, error) {
	var out []billing.Payment
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
