package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ShipmentOrder stores the carrier-side booking for an order. Payload
// keeps the raw carrier response for later troubleshooting.
type ShipmentOrder struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID      `gorm:"column:order_id;type:uuid;not null;index"`
	Provider   string         `gorm:"column:provider;not null"`
	ShipmentID *string        `gorm:"column:shipment_id"`
	AWBCode    *string        `gorm:"column:awb_code"`
	Status     string         `gorm:"column:status;not null;default:'CREATED'"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
