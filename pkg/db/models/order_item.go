package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadleaf/threadleaf-backend/pkg/enums"
)

// OrderItem is a purchased line. Price and size are snapshots taken at
// order time so later catalog edits never rewrite past orders.
type OrderItem struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	VariantID   *uuid.UUID         `gorm:"column:variant_id;type:uuid"`
	SKU         string             `gorm:"column:sku;not null"`
	Size        *string            `gorm:"column:size"`
	Color       *string            `gorm:"column:color"`
	Quantity    int                `gorm:"column:quantity;not null"`
	Price       decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	Status      enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'PENDING'"`
	DeliveredAt *time.Time         `gorm:"column:delivered_at"`
	History     []OrderItemHistory `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
