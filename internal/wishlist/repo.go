package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
)

// Repository manages persistence for wishlist entries.
type Repository interface {
	Create(ctx context.Context, item *models.WishlistItem) error
	Delete(ctx context.Context, userID, productID uuid.UUID) error
	Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wishlist repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, item *models.WishlistItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.WishlistItem{}, "user_id = ? AND product_id = ?", userID, productID).Error
}

func (r *repository) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
