package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/threadleaf/threadleaf-backend/pkg/enums"
)

// OrderItemHistory is an append-only record of line-level status changes.
type OrderItemHistory struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderItemID    uuid.UUID         `gorm:"column:order_item_id;type:uuid;not null;index"`
	PreviousStatus enums.OrderStatus `gorm:"column:previous_status;type:text;not null"`
	NewStatus      enums.OrderStatus `gorm:"column:new_status;type:text;not null"`
	ChangedBy      enums.Actor       `gorm:"column:changed_by;type:text;not null"`
	Comment        *string           `gorm:"column:comment"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
