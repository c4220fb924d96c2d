package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadleaf/threadleaf-backend/pkg/enums"
)

// Coupon is a discount code. Codes are stored upper-cased and unique.
type Coupon struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code          string           `gorm:"column:code;uniqueIndex;not null"`
	Type          enums.CouponType `gorm:"column:type;type:text;not null"`
	Value         decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	MinOrderValue *decimal.Decimal `gorm:"column:min_order_value;type:numeric(12,2)"`
	MaxDiscount   *decimal.Decimal `gorm:"column:max_discount;type:numeric(12,2)"`
	IsStackable   bool             `gorm:"column:is_stackable;not null;default:false"`
	StartsAt      time.Time        `gorm:"column:starts_at;not null"`
	ExpiresAt     time.Time        `gorm:"column:expires_at;not null"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true"`
	Products      []CouponProduct  `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
	Categories    []CouponCategory `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
