package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/internal/inventory"
	"github.com/threadleaf/threadleaf-backend/pkg/db"
	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
	"github.com/threadleaf/threadleaf-backend/pkg/pagination"
)

// allowedTransitions is the return status state machine. Statuses absent
// from the map are terminal.
var allowedTransitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusInitiated: {
		enums.ReturnStatusApproved,
		enums.ReturnStatusRejected,
		enums.ReturnStatusCancelled,
	},
	enums.ReturnStatusApproved: {
		enums.ReturnStatusProcessing,
		enums.ReturnStatusCancelled,
	},
	enums.ReturnStatusProcessing: {
		enums.ReturnStatusCompleted,
		enums.ReturnStatusCancelled,
	},
}

// Eligibility is the outcome of a return eligibility check.
type Eligibility struct {
	Eligible        bool       `json:"eligible"`
	Reason          string     `json:"reason,omitempty"`
	ReturnableUntil *time.Time `json:"returnableUntil,omitempty"`
}

// Service exposes the returns workflow.
type Service interface {
	CheckEligibility(ctx context.Context, orderItemID uuid.UUID) (*Eligibility, error)
	Create(ctx context.Context, userID, orderItemID uuid.UUID, reason string, evidencePath *string) (*models.Return, error)
	Approve(ctx context.Context, returnID uuid.UUID, comment *string) (*models.Return, error)
	Reject(ctx context.Context, returnID uuid.UUID, comment string) (*models.Return, error)
	UpdateStatus(ctx context.Context, returnID uuid.UUID, newStatus enums.ReturnStatus, comment *string, actor enums.Actor) (*models.Return, error)
	Cancel(ctx context.Context, returnID, userID uuid.UUID) (*models.Return, error)
	SetDeliveryDate(ctx context.Context, orderItemID uuid.UUID, deliveredAt time.Time) error
	GetByID(ctx context.Context, returnID uuid.UUID) (*models.Return, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Result[models.Return], error)
	List(ctx context.Context, params pagination.Params) (*pagination.Result[models.Return], error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderReader interface {
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderItemByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	UpdateOrderItem(ctx context.Context, item *models.OrderItem) error
}

type catalogReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	orders     orderReader
	catalog    catalogReader
	ledger     inventory.Ledger
	windowDays int
	now        func() time.Time
}

// NewService constructs a returns service instance.
func NewService(
	repo Repository,
	dbClient *db.Client,
	orders orderReader,
	catalog catalogReader,
	ledger inventory.Ledger,
	windowDays int,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("return window must be positive")
	}
	return &service{
		repo:       repo,
		tx:         dbClient,
		orders:     orders,
		catalog:    catalog,
		ledger:     ledger,
		windowDays: windowDays,
		now:        time.Now,
	}, nil
}

// CheckEligibility is a pure read: delivered item, return allowed for the
// SKU, and still inside the configured post-delivery window.
func (s *service) CheckEligibility(ctx context.Context, orderItemID uuid.UUID) (*Eligibility, error) {
	item, err := s.loadItem(ctx, orderItemID)
	if err != nil {
		return nil, err
	}

	if item.Status != enums.OrderStatusDelivered {
		return &Eligibility{Eligible: false, Reason: "item has not been delivered"}, nil
	}
	if item.DeliveredAt == nil {
		return &Eligibility{Eligible: false, Reason: "delivery date is not recorded"}, nil
	}

	returnable, err := s.itemReturnAllowed(ctx, item)
	if err != nil {
		return nil, err
	}
	if !returnable {
		return &Eligibility{Eligible: false, Reason: "this item is not returnable"}, nil
	}

	deadline := item.DeliveredAt.AddDate(0, 0, s.windowDays)
	today := truncateToDay(s.now())
	if today.After(truncateToDay(deadline)) {
		return &Eligibility{
			Eligible:        false,
			Reason:          fmt.Sprintf("return window closed on %s", deadline.Format("2006-01-02")),
			ReturnableUntil: &deadline,
		}, nil
	}

	return &Eligibility{Eligible: true, ReturnableUntil: &deadline}, nil
}

func (s *service) Create(ctx context.Context, userID, orderItemID uuid.UUID, reason string, evidencePath *string) (*models.Return, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason is required")
	}

	item, err := s.loadItem(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindOrderByID(ctx, item.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unauthorized order item")
	}

	eligibility, err := s.CheckEligibility(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, eligibility.Reason)
	}

	if _, err := s.repo.FindLiveByOrderItem(ctx, orderItemID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a return is already open for this item")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open returns")
	}

	ret := &models.Return{
		OrderItemID:        orderItemID,
		UserID:             userID,
		Status:             enums.ReturnStatusInitiated,
		Reason:             strings.TrimSpace(reason),
		EvidencePath:       evidencePath,
		ReturnableUntil:    *eligibility.ReturnableUntil,
		IsReturnableWindow: true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return")
		}
		return txRepo.CreateHistory(ctx, &models.ReturnHistory{
			ReturnID:       ret.ID,
			PreviousStatus: enums.ReturnStatusInitiated,
			NewStatus:      enums.ReturnStatusInitiated,
			ChangedBy:      enums.ActorUser,
			Comment:        ptr("Return initiated by user"),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, ret.ID)
}

func (s *service) Approve(ctx context.Context, returnID uuid.UUID, comment *string) (*models.Return, error) {
	ret, err := s.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.Status != enums.ReturnStatusInitiated {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict,
			"cannot approve a return in status %s", ret.Status)
	}
	return s.transition(ctx, ret, enums.ReturnStatusApproved, comment, enums.ActorAdmin, true)
}

func (s *service) Reject(ctx context.Context, returnID uuid.UUID, comment string) (*models.Return, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection comment is required")
	}
	ret, err := s.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.Status != enums.ReturnStatusInitiated {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict,
			"cannot reject a return in status %s", ret.Status)
	}
	return s.transition(ctx, ret, enums.ReturnStatusRejected, &comment, enums.ActorAdmin, true)
}

func (s *service) UpdateStatus(ctx context.Context, returnID uuid.UUID, newStatus enums.ReturnStatus, comment *string, actor enums.Actor) (*models.Return, error) {
	if !newStatus.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid return status %q", newStatus)
	}
	ret, err := s.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	stampDecision := ret.Status == enums.ReturnStatusInitiated &&
		(newStatus == enums.ReturnStatusApproved || newStatus == enums.ReturnStatusRejected)
	return s.transition(ctx, ret, newStatus, comment, actor, stampDecision)
}

func (s *service) Cancel(ctx context.Context, returnID, userID uuid.UUID) (*models.Return, error) {
	ret, err := s.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unauthorized return")
	}
	if ret.Status != enums.ReturnStatusInitiated {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict,
			"cannot cancel a return in status %s", ret.Status)
	}
	return s.transition(ctx, ret, enums.ReturnStatusCancelled, ptr("Return cancelled by user"), enums.ActorUser, false)
}

// transition applies one state-machine step. Completion couples with the
// parent order: stock is credited only when the order is already REFUNDED,
// and the inventoryRestored flag makes that credit happen at most once.
func (s *service) transition(ctx context.Context, ret *models.Return, newStatus enums.ReturnStatus, comment *string, actor enums.Actor, stampDecision bool) (*models.Return, error) {
	if !transitionAllowed(ret.Status, newStatus) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict,
			"cannot transition from %s to %s", ret.Status, newStatus)
	}
	previous := ret.Status

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		ret.Status = newStatus
		if comment != nil {
			ret.Comment = comment
		}
		if stampDecision {
			now := s.now()
			ret.ApprovedRejectedAt = &now
		}

		if newStatus == enums.ReturnStatusCompleted && !ret.InventoryRestored {
			restored, err := s.maybeRestoreStock(ctx, tx, ret)
			if err != nil {
				return err
			}
			ret.InventoryRestored = restored
		}

		if err := txRepo.Update(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return")
		}
		return txRepo.CreateHistory(ctx, &models.ReturnHistory{
			ReturnID:       ret.ID,
			PreviousStatus: previous,
			NewStatus:      newStatus,
			ChangedBy:      actor,
			Comment:        comment,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, ret.ID)
}

// maybeRestoreStock credits the item's stock if and only if the parent
// order has already been refunded.
func (s *service) maybeRestoreStock(ctx context.Context, tx *gorm.DB, ret *models.Return) (bool, error) {
	item, err := s.orders.FindOrderItemByID(ctx, ret.OrderItemID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}
	order, err := s.orders.FindOrderByID(ctx, item.OrderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent order")
	}
	if order.Status != enums.OrderStatusRefunded {
		return false, nil
	}

	ref := inventory.Ref{ProductID: item.ProductID, VariantID: item.VariantID}
	if err := s.ledger.Increment(ctx, tx, ref, item.Quantity); err != nil {
		return false, err
	}
	return true, nil
}

// SetDeliveryDate is a permissive admin override used to backfill or
// correct an item's delivery timestamp.
func (s *service) SetDeliveryDate(ctx context.Context, orderItemID uuid.UUID, deliveredAt time.Time) error {
	item, err := s.loadItem(ctx, orderItemID)
	if err != nil {
		return err
	}
	item.DeliveredAt = &deliveredAt
	if err := s.orders.UpdateOrderItem(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery date")
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, returnID uuid.UUID) (*models.Return, error) {
	ret, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	return ret, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Result[models.Return], error) {
	rets, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	result := pagination.NewResult(rets, params, total)
	return &result, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*pagination.Result[models.Return], error) {
	rets, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	result := pagination.NewResult(rets, params, total)
	return &result, nil
}

func (s *service) loadItem(ctx context.Context, orderItemID uuid.UUID) (*models.OrderItem, error) {
	item, err := s.orders.FindOrderItemByID(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}
	return item, nil
}

// itemReturnAllowed resolves the return flag: the variant's when one is
// attached and set, otherwise the product's.
func (s *service) itemReturnAllowed(ctx context.Context, item *models.OrderItem) (bool, error) {
	if item.VariantID != nil {
		variant, err := s.catalog.FindVariantByID(ctx, *item.VariantID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		if variant.IsReturn != nil {
			return *variant.IsReturn, nil
		}
	}
	product, err := s.catalog.FindProductByID(ctx, item.ProductID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product.IsReturn, nil
}

func transitionAllowed(from, to enums.ReturnStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func ptr(s string) *string {
	return &s
}
