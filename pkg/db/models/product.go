package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalog listing. Stock is tracked on the product
// itself unless the product carries variants, in which case each variant
// owns its own stock and return policy.
type Product struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SKU                string           `gorm:"column:sku;uniqueIndex;not null"`
	Name               string           `gorm:"column:name;not null"`
	Slug               string           `gorm:"column:slug;uniqueIndex;not null"`
	Description        *string          `gorm:"column:description"`
	Category           string           `gorm:"column:category;not null;index"`
	Brand              *string          `gorm:"column:brand"`
	MaximumRetailPrice decimal.Decimal  `gorm:"column:maximum_retail_price;type:numeric(12,2);not null"`
	SellingPrice       *decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2)"`
	Size               *string          `gorm:"column:size"`
	Quantity           int              `gorm:"column:quantity;not null;default:0"`
	HasVariants        bool             `gorm:"column:has_variants;not null;default:false"`
	IsReturn           bool             `gorm:"column:is_return;not null;default:false"`
	IsActive           bool             `gorm:"column:is_active;not null;default:true"`
	Variants           []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
