package shipping

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shipment *models.ShipmentOrder) error
	Update(ctx context.Context, shipment *models.ShipmentOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ShipmentOrder, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.ShipmentOrder, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, shipment *models.ShipmentOrder) error {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) Update(ctx context.Context, shipment *models.ShipmentOrder) error {
	return r.db.WithContext(ctx).
		Model(&models.ShipmentOrder{}).
		Where("id = ?", shipment.ID).
		Updates(map[string]any{
			"shipment_id": shipment.ShipmentID,
			"awb_code":    shipment.AWBCode,
			"status":      shipment.Status,
			"payload":     shipment.Payload,
		}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShipmentOrder, error) {
	var shipment models.ShipmentOrder
	err := r.db.WithContext(ctx).First(&shipment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.ShipmentOrder, error) {
	var shipment models.ShipmentOrder
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		First(&shipment, "order_id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}
