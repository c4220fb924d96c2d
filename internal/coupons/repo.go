package coupons

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/pagination"
)

// Repository manages persistence for coupons and redemption records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, coupon *models.Coupon) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context, params pagination.Params) ([]models.Coupon, int64, error)
	HasUserUsed(ctx context.Context, couponID, userID uuid.UUID) (bool, error)
	CreateUsage(ctx context.Context, usage *models.CouponUser) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	for i := range coupon.Products {
		if coupon.Products[i].ID == uuid.Nil {
			coupon.Products[i].ID = uuid.New()
		}
	}
	for i := range coupon.Categories {
		if coupon.Categories[i].ID == uuid.Nil {
			coupon.Categories[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) Update(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Products").
		Preload("Categories").
		Where("id = ?", id).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Products").
		Preload("Categories").
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Coupon, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Coupon{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	n := params.Normalize()
	var coupons []models.Coupon
	err := q.Preload("Products").
		Preload("Categories").
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(n.Limit).
		Find(&coupons).Error
	if err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

func (r *repository) HasUserUsed(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponUser{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreateUsage(ctx context.Context, usage *models.CouponUser) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(usage).Error
}
