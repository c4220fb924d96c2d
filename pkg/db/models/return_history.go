package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/threadleaf/threadleaf-backend/pkg/enums"
)

// ReturnHistory is an append-only record of return status changes.
type ReturnHistory struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ReturnID       uuid.UUID          `gorm:"column:return_id;type:uuid;not null;index"`
	PreviousStatus enums.ReturnStatus `gorm:"column:previous_status;type:text;not null"`
	NewStatus      enums.ReturnStatus `gorm:"column:new_status;type:text;not null"`
	ChangedBy      enums.Actor        `gorm:"column:changed_by;type:text;not null"`
	Comment        *string            `gorm:"column:comment"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}
