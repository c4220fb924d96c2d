package models

import "github.com/google/uuid"

// CouponProduct restricts a coupon to a specific product.
type CouponProduct struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:idx_coupon_product"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_coupon_product"`
}
