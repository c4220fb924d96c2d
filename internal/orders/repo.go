package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/pagination"
)

// Repository manages persistence for orders, items and their history logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderHistory(ctx context.Context, entry *models.OrderHistory) error
	CreateOrderItemHistory(ctx context.Context, entry *models.OrderItemHistory) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderItemByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	UpdateOrderItem(ctx context.Context, item *models.OrderItem) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, int64, error)
	List(ctx context.Context, params pagination.Params) ([]models.Order, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateOrderHistory(ctx context.Context, entry *models.OrderHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) CreateOrderItemHistory(ctx context.Context, entry *models.OrderItemHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.History").
		Preload("History").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderItemByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		}).Error
}

func (r *repository) UpdateOrderItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"status":       item.Status,
			"delivered_at": item.DeliveredAt,
		}).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return listOrders(q, params)
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	return listOrders(q, params)
}

func listOrders(q *gorm.DB, params pagination.Params) ([]models.Order, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	n := params.Normalize()
	var orders []models.Order
	err := q.Preload("Items").
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(n.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
