package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadleaf/threadleaf-backend/pkg/enums"
)

// Order is the customer-facing aggregate: header totals plus line items.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber    string              `gorm:"column:order_number;uniqueIndex;not null"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID      uuid.UUID           `gorm:"column:address_id;type:uuid;not null"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaymentMethod  string              `gorm:"column:payment_method;not null;default:'COD'"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	PaymentID      *string             `gorm:"column:payment_id"`
	CouponID       *uuid.UUID          `gorm:"column:coupon_id;type:uuid"`
	Subtotal       decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount       decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	DeliveryCharge decimal.Decimal     `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	FinalAmount    decimal.Decimal     `gorm:"column:final_amount;type:numeric(12,2);not null"`
	Items          []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History        []OrderHistory      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
