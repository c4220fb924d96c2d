package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/internal/coupons"
	"github.com/threadleaf/threadleaf-backend/internal/inventory"
	"github.com/threadleaf/threadleaf-backend/pkg/db"
	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
	"github.com/threadleaf/threadleaf-backend/pkg/pagination"
)

// CreateOrderItemInput is one requested line in a checkout.
type CreateOrderItemInput struct {
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	Size      *string
	Color     *string
}

// CreateOrderInput holds the validated payload to create an order.
type CreateOrderInput struct {
	AddressID      uuid.UUID
	Items          []CreateOrderItemInput
	PaymentMethod  string
	PaymentID      *string
	CouponCode     *string
	DeliveryCharge *decimal.Decimal
}

// Service exposes order creation and the status engine.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*models.Order, error)
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Result[models.Order], error)
	List(ctx context.Context, params pagination.Params) (*pagination.Result[models.Order], error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus enums.OrderStatus, comment *string, actor enums.Actor) (*models.Order, error)
	UpdateOrderItemStatus(ctx context.Context, itemID uuid.UUID, newStatus enums.OrderStatus, comment *string, actor enums.Actor) (*models.OrderItem, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalogReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

type addressReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
}

type couponResolver interface {
	ResolveForOrder(ctx context.Context, code string, userID uuid.UUID, lines []coupons.CartLine) (*coupons.Resolution, error)
	RecordUsage(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error
}

// returnStore gives the status engine access to completed returns when a
// refund cascades into stock restoration.
type returnStore interface {
	FindCompletedUnrestored(ctx context.Context, tx *gorm.DB, orderItemIDs []uuid.UUID) ([]models.Return, error)
	MarkInventoryRestored(ctx context.Context, tx *gorm.DB, returnID uuid.UUID) error
}

type service struct {
	repo      Repository
	tx        txRunner
	catalog   catalogReader
	addresses addressReader
	coupons   couponResolver
	ledger    inventory.Ledger
	returns   returnStore
	now       func() time.Time
}

// NewService constructs an order service instance.
func NewService(
	repo Repository,
	dbClient *db.Client,
	catalog catalogReader,
	addresses addressReader,
	couponSvc couponResolver,
	ledger inventory.Ledger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address reader required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{
		repo:      repo,
		tx:        dbClient,
		catalog:   catalog,
		addresses: addresses,
		coupons:   couponSvc,
		ledger:    ledger,
		returns:   returnStoreImpl{},
		now:       time.Now,
	}, nil
}

// stagedLine is a resolved checkout line ready for persistence.
type stagedLine struct {
	item models.OrderItem
	ref  inventory.Ref
	sku  string
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	address, err := s.addresses.FindByID(ctx, input.AddressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if address.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unauthorized address")
	}

	staged := make([]stagedLine, 0, len(input.Items))
	cartLines := make([]coupons.CartLine, 0, len(input.Items))
	subtotal := decimal.Zero

	for _, item := range input.Items {
		line, category, err := s.resolveLine(ctx, item)
		if err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(line.item.Price.Mul(decimal.NewFromInt(int64(line.item.Quantity))))
		staged = append(staged, *line)
		cartLines = append(cartLines, coupons.CartLine{
			ProductID: line.item.ProductID,
			Category:  category,
			UnitPrice: line.item.Price,
			Quantity:  line.item.Quantity,
		})
	}

	var resolution *coupons.Resolution
	discount := decimal.Zero
	if input.CouponCode != nil && strings.TrimSpace(*input.CouponCode) != "" {
		if s.coupons == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupons are not supported")
		}
		resolution, err = s.coupons.ResolveForOrder(ctx, *input.CouponCode, userID, cartLines)
		if err != nil {
			return nil, err
		}
		discount = resolution.Discount
	}

	deliveryCharge := decimal.Zero
	if input.DeliveryCharge != nil {
		if input.DeliveryCharge.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery charge cannot be negative")
		}
		deliveryCharge = *input.DeliveryCharge
	}

	finalAmount := subtotal.Sub(discount).Add(deliveryCharge)
	if finalAmount.IsNegative() {
		finalAmount = decimal.Zero
	}

	paymentStatus := enums.PaymentStatusPending
	if input.PaymentID != nil && *input.PaymentID != "" {
		paymentStatus = enums.PaymentStatusCompleted
	}

	paymentMethod := strings.ToUpper(strings.TrimSpace(input.PaymentMethod))
	if paymentMethod == "" {
		paymentMethod = "COD"
	}

	order := &models.Order{
		OrderNumber:    newOrderNumber(s.now()),
		UserID:         userID,
		AddressID:      address.ID,
		Status:         enums.OrderStatusPending,
		PaymentMethod:  paymentMethod,
		PaymentStatus:  paymentStatus,
		PaymentID:      input.PaymentID,
		Subtotal:       subtotal,
		Discount:       discount,
		DeliveryCharge: deliveryCharge,
		FinalAmount:    finalAmount,
	}
	if resolution != nil {
		order.CouponID = &resolution.Coupon.ID
	}
	for _, line := range staged {
		order.Items = append(order.Items, line.item)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := txRepo.CreateOrderHistory(ctx, &models.OrderHistory{
			OrderID:        order.ID,
			PreviousStatus: enums.OrderStatusPending,
			NewStatus:      enums.OrderStatusPending,
			ChangedBy:      enums.ActorUser,
			Comment:        ptr("Order placed"),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed order history")
		}

		for i := range staged {
			if err := txRepo.CreateOrderItemHistory(ctx, &models.OrderItemHistory{
				OrderItemID:    order.Items[i].ID,
				PreviousStatus: enums.OrderStatusPending,
				NewStatus:      enums.OrderStatusPending,
				ChangedBy:      enums.ActorUser,
				Comment:        ptr("Order placed"),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed item history")
			}

			if err := s.ledger.Decrement(ctx, tx, staged[i].ref, staged[i].item.Quantity); err != nil {
				appErr := pkgerrors.As(err)
				if appErr != nil && appErr.Code() == pkgerrors.CodeStateConflict {
					return pkgerrors.Newf(pkgerrors.CodeValidation, "insufficient stock for %s", staged[i].sku)
				}
				return err
			}
		}

		if resolution != nil {
			if err := s.coupons.RecordUsage(ctx, tx, resolution.Coupon.ID, userID, order.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, order.ID)
}

// resolveLine loads the product or variant for one requested item, takes
// the price snapshot and verifies stock is available at read time. The
// ledger decrement inside the transaction remains the real guard.
func (s *service) resolveLine(ctx context.Context, item CreateOrderItemInput) (*stagedLine, string, error) {
	if item.Quantity <= 0 {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	if item.VariantID != nil {
		variant, err := s.catalog.FindVariantByID(ctx, *item.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		if item.ProductID != nil && *item.ProductID != variant.ProductID {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "product does not match variant")
		}
		product, err := s.catalog.FindProductByID(ctx, variant.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		if variant.Quantity < item.Quantity {
			return nil, "", pkgerrors.Newf(pkgerrors.CodeValidation, "insufficient stock for %s", variant.SKU)
		}

		price := variant.MaximumRetailPrice
		if variant.SellingPrice != nil {
			price = *variant.SellingPrice
		}
		variantID := variant.ID
		line := &stagedLine{
			item: models.OrderItem{
				ProductID: variant.ProductID,
				VariantID: &variantID,
				SKU:       variant.SKU,
				Size:      firstNonEmpty(variant.Size, item.Size),
				Color:     firstNonEmpty(variant.Color, item.Color),
				Quantity:  item.Quantity,
				Price:     price,
				Status:    enums.OrderStatusPending,
			},
			ref: inventory.Ref{ProductID: variant.ProductID, VariantID: &variantID},
			sku: variant.SKU,
		}
		return line, product.Category, nil
	}

	if item.ProductID == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "productId or variantId is required")
	}
	product, err := s.catalog.FindProductByID(ctx, *item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.HasVariants {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "variant selection is required for this product")
	}
	if product.Quantity < item.Quantity {
		return nil, "", pkgerrors.Newf(pkgerrors.CodeValidation, "insufficient stock for %s", product.SKU)
	}

	price := product.MaximumRetailPrice
	if product.SellingPrice != nil {
		price = *product.SellingPrice
	}
	line := &stagedLine{
		item: models.OrderItem{
			ProductID: product.ID,
			SKU:       product.SKU,
			Size:      firstNonEmpty(product.Size, item.Size),
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     price,
			Status:    enums.OrderStatusPending,
		},
		ref: inventory.Ref{ProductID: product.ID},
		sku: product.SKU,
	}
	return line, product.Category, nil
}

func (s *service) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Result[models.Order], error) {
	orders, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := pagination.NewResult(orders, params, total)
	return &result, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*pagination.Result[models.Order], error) {
	orders, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := pagination.NewResult(orders, params, total)
	return &result, nil
}

// UpdateOrderStatus writes the new order-level status. No transition
// table is enforced here: admin tooling may move an order anywhere.
// The cancellation and refund side effects on stock live here.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus enums.OrderStatus, comment *string, actor enums.Actor) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", newStatus)
	}

	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	previous := order.Status

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		order.Status = newStatus
		if newStatus == enums.OrderStatusRefunded {
			order.PaymentStatus = enums.PaymentStatusRefunded
		}
		if err := txRepo.UpdateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		if err := txRepo.CreateOrderHistory(ctx, &models.OrderHistory{
			OrderID:        order.ID,
			PreviousStatus: previous,
			NewStatus:      newStatus,
			ChangedBy:      actor,
			Comment:        comment,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		switch newStatus {
		case enums.OrderStatusCancelled:
			// cancellation always restores stock for every line
			for _, item := range order.Items {
				ref := inventory.Ref{ProductID: item.ProductID, VariantID: item.VariantID}
				if err := s.ledger.Increment(ctx, tx, ref, item.Quantity); err != nil {
					return err
				}
			}
		case enums.OrderStatusRefunded:
			if err := s.restoreCompletedReturns(ctx, tx, order.Items); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, order.ID)
}

// restoreCompletedReturns credits stock for returns that completed before
// the refund landed. The inventoryRestored flag keeps this idempotent.
func (s *service) restoreCompletedReturns(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	itemsByID := make(map[uuid.UUID]models.OrderItem, len(items))
	itemIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
		itemIDs = append(itemIDs, item.ID)
	}

	pending, err := s.returns.FindCompletedUnrestored(ctx, tx, itemIDs)
	if err != nil {
		return err
	}
	for _, ret := range pending {
		item, ok := itemsByID[ret.OrderItemID]
		if !ok {
			continue
		}
		ref := inventory.Ref{ProductID: item.ProductID, VariantID: item.VariantID}
		if err := s.ledger.Increment(ctx, tx, ref, item.Quantity); err != nil {
			return err
		}
		if err := s.returns.MarkInventoryRestored(ctx, tx, ret.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateOrderItemStatus moves one line's status and reconciles the parent
// order when every sibling converges on the same status.
func (s *service) UpdateOrderItemStatus(ctx context.Context, itemID uuid.UUID, newStatus enums.OrderStatus, comment *string, actor enums.Actor) (*models.OrderItem, error) {
	if !newStatus.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", newStatus)
	}

	item, err := s.repo.FindOrderItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}
	previous := item.Status

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item.Status = newStatus
		if newStatus == enums.OrderStatusDelivered {
			now := s.now()
			item.DeliveredAt = &now
		}
		if err := txRepo.UpdateOrderItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item status")
		}

		if err := txRepo.CreateOrderItemHistory(ctx, &models.OrderItemHistory{
			OrderItemID:    item.ID,
			PreviousStatus: previous,
			NewStatus:      newStatus,
			ChangedBy:      actor,
			Comment:        comment,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append item history")
		}

		siblings, err := txRepo.FindItemsByOrder(ctx, item.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sibling items")
		}
		converged := len(siblings) > 0
		for _, sibling := range siblings {
			if sibling.Status != newStatus {
				converged = false
				break
			}
		}
		if !converged {
			return nil
		}

		order, err := txRepo.FindOrderByID(ctx, item.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent order")
		}
		if order.Status == newStatus {
			return nil
		}
		previousOrderStatus := order.Status
		order.Status = newStatus
		if err := txRepo.UpdateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile order status")
		}
		return txRepo.CreateOrderHistory(ctx, &models.OrderHistory{
			OrderID:        order.ID,
			PreviousStatus: previousOrderStatus,
			NewStatus:      newStatus,
			ChangedBy:      enums.ActorSystem,
			Comment:        ptr("All items reached " + newStatus.String()),
		})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindOrderItemByID(ctx, itemID)
}

type returnStoreImpl struct{}

func (returnStoreImpl) FindCompletedUnrestored(ctx context.Context, tx *gorm.DB, orderItemIDs []uuid.UUID) ([]models.Return, error) {
	var pending []models.Return
	err := tx.WithContext(ctx).
		Where("order_item_id IN ?", orderItemIDs).
		Where("status = ?", enums.ReturnStatusCompleted).
		Where("inventory_restored = ?", false).
		Find(&pending).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan completed returns")
	}
	return pending, nil
}

func (returnStoreImpl) MarkInventoryRestored(ctx context.Context, tx *gorm.DB, returnID uuid.UUID) error {
	res := tx.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ? AND inventory_restored = ?", returnID, false).
		Update("inventory_restored", true)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark return restored")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return already restored")
	}
	return nil
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

func firstNonEmpty(primary, fallback *string) *string {
	if primary != nil && *primary != "" {
		return primary
	}
	return fallback
}

func ptr(s string) *string {
	return &s
}
