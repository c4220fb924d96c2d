package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a sellable variation of a product (size/color).
// Nil SellingPrice and IsReturn fall through to the parent product.
type ProductVariant struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID          uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	SKU                string           `gorm:"column:sku;uniqueIndex;not null"`
	Size               *string          `gorm:"column:size"`
	Color              *string          `gorm:"column:color"`
	MaximumRetailPrice decimal.Decimal  `gorm:"column:maximum_retail_price;type:numeric(12,2);not null"`
	SellingPrice       *decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2)"`
	Quantity           int              `gorm:"column:quantity;not null;default:0"`
	IsReturn           *bool            `gorm:"column:is_return"`
	IsActive           bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
