package models

import "github.com/google/uuid"

// CouponCategory restricts a coupon to a product category.
type CouponCategory struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CouponID uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:idx_coupon_category"`
	Category string    `gorm:"column:category;not null;uniqueIndex:idx_coupon_category"`
}
