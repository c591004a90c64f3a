package repository

import (
	"context"

	"gorm.io/gorm"

	"dealflow-api/internal/domain/listings"
	"dealflow-api/internal/domain/users"
)

type gormUsers struct {
	db *gorm.DB
}

func (r *gormUsers) GetByID(ctx context.Context, id uint) (users.User, error) {
	var u users.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return users.User{}, notFound(err, "load user")
	}
	return u, nil
}

type gormListings struct {
	db *gorm.DB
}

func (r *gormListings) GetByID(ctx context.Context, id string) (listings.BusinessListing, error) {
	var l listings.BusinessListing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return listings.BusinessListing{}, notFound(err, "load listing")
	}
	return l, nil
}

func (r *gormListings) ListActive(ctx context.Context) ([]listings.BusinessListing, error) {
	var out []listings.BusinessListing
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *gormListings) ListByOwner(ctx context.Context, ownerID uint) ([]listings.BusinessListing, error) {
	var out []listings.BusinessListing
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *gormListings) CountActiveByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&listings.BusinessListing{}).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Count(&n).Error
	return n, err
}

func (r *gormListings) Publish(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&listings.BusinessListing{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": listings.StatusPublished, "is_active": true})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "publish listing")
	}
	return nil
}

type gormInvestors struct {
	db *gorm.DB
}

func (r *gormInvestors) ListPublished(ctx context.Context) ([]listings.InvestorProfile, error) {
	var out []listings.InvestorProfile
	err := r.db.WithContext(ctx).
		Where("status = ?", listings.StatusPublished).
		Order("created_at DESC").Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *gormInvestors) GetByUserID(ctx context.Context, userID uint) (listings.InvestorProfile, error) {
	var p listings.InvestorProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return listings.InvestorProfile{}, notFound(err, "load investor profile")
	}
	return p, nil
}
