package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	"github.com/threadleaf/threadleaf-backend/pkg/pagination"
)

// liveStatuses are the states in which a return still occupies its item.
var liveStatuses = []enums.ReturnStatus{
	enums.ReturnStatusInitiated,
	enums.ReturnStatusApproved,
	enums.ReturnStatusProcessing,
}

// Repository manages persistence for returns and their history log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ret *models.Return) error
	Update(ctx context.Context, ret *models.Return) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error)
	FindLiveByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*models.Return, error)
	CreateHistory(ctx context.Context, entry *models.ReturnHistory) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Return, int64, error)
	List(ctx context.Context, params pagination.Params) ([]models.Return, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a returns repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ret *models.Return) error {
	if ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *repository) Update(ctx context.Context, ret *models.Return) error {
	return r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ?", ret.ID).
		Updates(map[string]any{
			"status":               ret.Status,
			"comment":              ret.Comment,
			"approved_rejected_at": ret.ApprovedRejectedAt,
			"inventory_restored":   ret.InventoryRestored,
		}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Preload("History").
		Where("id = ?", id).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) FindLiveByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Where("status IN ?", liveStatuses).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) CreateHistory(ctx context.Context, entry *models.ReturnHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Return, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Return{}).Where("user_id = ?", userID)
	return listReturns(q, params)
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Return, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Return{})
	return listReturns(q, params)
}

func listReturns(q *gorm.DB, params pagination.Params) ([]models.Return, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	n := params.Normalize()
	var rets []models.Return
	err := q.Preload("History").
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(n.Limit).
		Find(&rets).Error
	if err != nil {
		return nil, 0, err
	}
	return rets, total, nil
}
