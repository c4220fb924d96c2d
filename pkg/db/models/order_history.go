package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/threadleaf/threadleaf-backend/pkg/enums"
)

// OrderHistory is an append-only record of order-level status changes.
type OrderHistory struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	PreviousStatus enums.OrderStatus `gorm:"column:previous_status;type:text;not null"`
	NewStatus      enums.OrderStatus `gorm:"column:new_status;type:text;not null"`
	ChangedBy      enums.Actor       `gorm:"column:changed_by;type:text;not null"`
	Comment        *string           `gorm:"column:comment"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
