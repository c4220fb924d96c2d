package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/threadleaf/threadleaf-backend/pkg/enums"
)

// Return is a post-delivery return request for a single order item.
// InventoryRestored guards against stock being credited twice when a
// completed return meets a refunded order.
type Return struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderItemID        uuid.UUID          `gorm:"column:order_item_id;type:uuid;not null;index"`
	UserID             uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Status             enums.ReturnStatus `gorm:"column:status;type:text;not null;default:'INITIATED'"`
	Reason             string             `gorm:"column:reason;not null"`
	Comment            *string            `gorm:"column:comment"`
	EvidencePath       *string            `gorm:"column:evidence_path"`
	ReturnableUntil    time.Time          `gorm:"column:returnable_until;not null"`
	IsReturnableWindow bool               `gorm:"column:is_returnable_window;not null;default:true"`
	InventoryRestored  bool               `gorm:"column:inventory_restored;not null;default:false"`
	ApprovedRejectedAt *time.Time         `gorm:"column:approved_rejected_at"`
	History            []ReturnHistory    `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
