package models

import (
	"time"

	"github.com/google/uuid"
)

// CouponUser records a single redemption of a coupon by a user. Its
// presence is what enforces one-time use per (coupon, user).
type CouponUser struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CouponID uuid.UUID  `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:idx_coupon_user"`
	UserID   uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_coupon_user"`
	OrderID  *uuid.UUID `gorm:"column:order_id;type:uuid"`
	UsedAt   time.Time  `gorm:"column:used_at;autoCreateTime"`
}
