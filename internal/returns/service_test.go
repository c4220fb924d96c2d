package returns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/internal/catalog"
	"github.com/threadleaf/threadleaf-backend/internal/inventory"
	"github.com/threadleaf/threadleaf-backend/internal/orders"
	"github.com/threadleaf/threadleaf-backend/pkg/db"
	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

func TestCheckEligibilityWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	fresh := f.seedDeliveredItem(t, userID, daysAgo(5), 10)
	res, err := f.svc.CheckEligibility(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if !res.Eligible {
		t.Fatalf("expected item delivered 5 days ago to be eligible, got reason %q", res.Reason)
	}
	if res.ReturnableUntil == nil {
		t.Fatal("expected returnableUntil to be set")
	}

	stale := f.seedDeliveredItem(t, userID, daysAgo(10), 10)
	res, err = f.svc.CheckEligibility(ctx, stale.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if res.Eligible {
		t.Fatal("expected item delivered 10 days ago to be outside a 7 day window")
	}
}

func TestCheckEligibilityRequiresDelivery(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	item := f.seedItem(t, userID, enums.OrderStatusShipped, nil, 10, true)
	res, err := f.svc.CheckEligibility(ctx, item.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if res.Eligible {
		t.Fatal("expected undelivered item to be ineligible")
	}

	// DELIVERED status but no recorded timestamp is still ineligible
	noStamp := f.seedItem(t, userID, enums.OrderStatusDelivered, nil, 10, true)
	res, err = f.svc.CheckEligibility(ctx, noStamp.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if res.Eligible {
		t.Fatal("expected item without delivery date to be ineligible")
	}
}

func TestCheckEligibilityHonorsReturnFlag(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	item := f.seedItem(t, userID, enums.OrderStatusDelivered, daysAgo(1), 10, false)
	res, err := f.svc.CheckEligibility(ctx, item.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if res.Eligible {
		t.Fatal("expected non-returnable product to be ineligible")
	}
}

func TestCreateReturnSeedsHistoryAndBlocksDuplicates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	item := f.seedDeliveredItem(t, userID, daysAgo(2), 10)

	ret, err := f.svc.Create(ctx, userID, item.ID, "arrived damaged", nil)
	if err != nil {
		t.Fatalf("create return: %v", err)
	}
	if ret.Status != enums.ReturnStatusInitiated {
		t.Fatalf("expected INITIATED, got %s", ret.Status)
	}
	if len(ret.History) != 1 || ret.History[0].ChangedBy != enums.ActorUser {
		t.Fatalf("expected one user-attributed history row, got %+v", ret.History)
	}

	_, err = f.svc.Create(ctx, userID, item.ID, "changed my mind", nil)
	assertCode(t, err, pkgerrors.CodeConflict)

	// cancelling frees the item for a new return
	if _, err := f.svc.Cancel(ctx, ret.ID, userID); err != nil {
		t.Fatalf("cancel return: %v", err)
	}
	if _, err := f.svc.Create(ctx, userID, item.ID, "second attempt", nil); err != nil {
		t.Fatalf("expected new return after cancellation, got %v", err)
	}
}

func TestCreateReturnRejectsForeignItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedDeliveredItem(t, uuid.New(), daysAgo(2), 10)

	_, err := f.svc.Create(ctx, uuid.New(), item.ID, "not mine", nil)
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Create(ctx, uuid.New(), uuid.New(), "ghost item", nil)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestApproveAndRejectStampDecision(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	first := f.createReturn(t, userID)
	approved, err := f.svc.Approve(ctx, first.ID, nil)
	if err != nil {
		t.Fatalf("approve return: %v", err)
	}
	if approved.Status != enums.ReturnStatusApproved || approved.ApprovedRejectedAt == nil {
		t.Fatalf("expected APPROVED with decision timestamp, got %+v", approved)
	}

	// approving twice is a state conflict
	_, err = f.svc.Approve(ctx, first.ID, nil)
	assertCode(t, err, pkgerrors.CodeStateConflict)

	second := f.createReturn(t, userID)
	_, err = f.svc.Reject(ctx, second.ID, "")
	assertCode(t, err, pkgerrors.CodeValidation)

	rejected, err := f.svc.Reject(ctx, second.ID, "outside policy")
	if err != nil {
		t.Fatalf("reject return: %v", err)
	}
	if rejected.Status != enums.ReturnStatusRejected || rejected.ApprovedRejectedAt == nil {
		t.Fatalf("expected REJECTED with decision timestamp, got %+v", rejected)
	}
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	ret := f.createReturn(t, userID)

	// INITIATED cannot jump straight to COMPLETED
	_, err := f.svc.UpdateStatus(ctx, ret.ID, enums.ReturnStatusCompleted, nil, enums.ActorAdmin)
	assertCode(t, err, pkgerrors.CodeStateConflict)

	if _, err := f.svc.Approve(ctx, ret.ID, nil); err != nil {
		t.Fatalf("approve return: %v", err)
	}
	_, err = f.svc.UpdateStatus(ctx, ret.ID, enums.ReturnStatusCompleted, nil, enums.ActorAdmin)
	assertCode(t, err, pkgerrors.CodeStateConflict)

	if _, err := f.svc.UpdateStatus(ctx, ret.ID, enums.ReturnStatusProcessing, nil, enums.ActorAdmin); err != nil {
		t.Fatalf("move to PROCESSING: %v", err)
	}
	done, err := f.svc.UpdateStatus(ctx, ret.ID, enums.ReturnStatusCompleted, nil, enums.ActorAdmin)
	if err != nil {
		t.Fatalf("move to COMPLETED: %v", err)
	}
	if len(done.History) != 4 {
		t.Fatalf("expected 4 history rows, got %d", len(done.History))
	}

	// COMPLETED is terminal
	_, err = f.svc.UpdateStatus(ctx, ret.ID, enums.ReturnStatusCancelled, nil, enums.ActorAdmin)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestRejectedIsTerminal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	ret := f.createReturn(t, uuid.New())
	if _, err := f.svc.Reject(ctx, ret.ID, "worn item"); err != nil {
		t.Fatalf("reject return: %v", err)
	}

	for _, next := range []enums.ReturnStatus{
		enums.ReturnStatusApproved,
		enums.ReturnStatusProcessing,
		enums.ReturnStatusCompleted,
		enums.ReturnStatusCancelled,
	} {
		_, err := f.svc.UpdateStatus(ctx, ret.ID, next, nil, enums.ActorAdmin)
		assertCode(t, err, pkgerrors.CodeStateConflict)
	}
}

func TestCompletionRestoresStockOnlyForRefundedOrders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	userID := uuid.New()

	ret := f.createReturn(t, userID)
	item := f.mustItem(t, ret.OrderItemID)
	before := f.productQuantity(t, item.ProductID)

	done := f.drive(t, ret.ID, enums.ReturnStatusProcessing, enums.ReturnStatusCompleted)
	if done.InventoryRestored {
		t.Fatal("expected no restoration while the order is not refunded")
	}
	if got := f.productQuantity(t, item.ProductID); got != before {
		t.Fatalf("expected stock untouched, got %d want %d", got, before)
	}

	// refunded parent order: completion credits stock exactly once
	refunded := f.createReturn(t, userID)
	refundedItem := f.mustItem(t, refunded.OrderItemID)
	f.setOrderStatus(t, refundedItem.OrderID, enums.OrderStatusRefunded)
	before = f.productQuantity(t, refundedItem.ProductID)

	done = f.drive(t, refunded.ID, enums.ReturnStatusProcessing, enums.ReturnStatusCompleted)
	if !done.InventoryRestored {
		t.Fatal("expected inventoryRestored after completing a refunded order's return")
	}
	if got := f.productQuantity(t, refundedItem.ProductID); got != before+refundedItem.Quantity {
		t.Fatalf("expected stock %d, got %d", before+refundedItem.Quantity, got)
	}
}

func TestCancelIsOwnerOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	ret := f.createReturn(t, userID)
	_, err := f.svc.Cancel(ctx, ret.ID, uuid.New())
	assertCode(t, err, pkgerrors.CodeForbidden)

	if _, err := f.svc.Approve(ctx, ret.ID, nil); err != nil {
		t.Fatalf("approve return: %v", err)
	}
	_, err = f.svc.Cancel(ctx, ret.ID, userID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestSetDeliveryDateOverwrites(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	item := f.seedDeliveredItem(t, uuid.New(), daysAgo(30), 10)
	res, err := f.svc.CheckEligibility(ctx, item.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if res.Eligible {
		t.Fatal("expected month-old delivery to be ineligible")
	}

	if err := f.svc.SetDeliveryDate(ctx, item.ID, *daysAgo(1)); err != nil {
		t.Fatalf("set delivery date: %v", err)
	}
	res, err = f.svc.CheckEligibility(ctx, item.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if !res.Eligible {
		t.Fatalf("expected corrected delivery date to open the window, got %q", res.Reason)
	}
}

type fixture struct {
	conn   *gorm.DB
	svc    Service
	orders orders.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:returns_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderHistory{},
		&models.OrderItemHistory{},
		&models.Return{},
		&models.ReturnHistory{},
	)
	if err != nil {
		t.Fatalf("migrate models: %v", err)
	}

	orderRepo := orders.NewRepository(conn)
	svc, err := NewService(
		NewRepository(conn),
		db.NewWithConn(conn),
		orderRepo,
		catalog.NewRepository(conn),
		inventory.NewLedger(),
		7,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{conn: conn, svc: svc, orders: orderRepo}
}

func (f *fixture) seedDeliveredItem(t *testing.T, userID uuid.UUID, deliveredAt *time.Time, stock int) *models.OrderItem {
	t.Helper()
	return f.seedItem(t, userID, enums.OrderStatusDelivered, deliveredAt, stock, true)
}

func (f *fixture) seedItem(t *testing.T, userID uuid.UUID, status enums.OrderStatus, deliveredAt *time.Time, stock int, returnable bool) *models.OrderItem {
	t.Helper()
	product := &models.Product{
		ID:                 uuid.New(),
		SKU:                "SKU-" + uuid.NewString()[:8],
		Name:               "Linen Shirt",
		Slug:               "linen-shirt-" + uuid.NewString()[:8],
		Category:           "apparel",
		MaximumRetailPrice: decimal.NewFromInt(999),
		Quantity:           stock,
		IsReturn:           returnable,
		IsActive:           true,
	}
	if err := f.conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-TEST-" + uuid.NewString()[:8],
		UserID:      userID,
		AddressID:   uuid.New(),
		Status:      status,
	}
	if err := f.conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	item := &models.OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProductID:   product.ID,
		SKU:         product.SKU,
		Quantity:    2,
		Price:       decimal.NewFromInt(999),
		Status:      status,
		DeliveredAt: deliveredAt,
	}
	if err := f.conn.Create(item).Error; err != nil {
		t.Fatalf("seed order item: %v", err)
	}
	return item
}

func (f *fixture) createReturn(t *testing.T, userID uuid.UUID) *models.Return {
	t.Helper()
	item := f.seedDeliveredItem(t, userID, daysAgo(2), 10)
	ret, err := f.svc.Create(context.Background(), userID, item.ID, "arrived damaged", nil)
	if err != nil {
		t.Fatalf("create return: %v", err)
	}
	return ret
}

func (f *fixture) drive(t *testing.T, returnID uuid.UUID, steps ...enums.ReturnStatus) *models.Return {
	t.Helper()
	ctx := context.Background()
	ret, err := f.svc.Approve(ctx, returnID, nil)
	if err != nil {
		t.Fatalf("approve return: %v", err)
	}
	for _, step := range steps {
		ret, err = f.svc.UpdateStatus(ctx, returnID, step, nil, enums.ActorAdmin)
		if err != nil {
			t.Fatalf("transition to %s: %v", step, err)
		}
	}
	return ret
}

func (f *fixture) mustItem(t *testing.T, itemID uuid.UUID) *models.OrderItem {
	t.Helper()
	item, err := f.orders.FindOrderItemByID(context.Background(), itemID)
	if err != nil {
		t.Fatalf("load order item: %v", err)
	}
	return item
}

func (f *fixture) setOrderStatus(t *testing.T, orderID uuid.UUID, status enums.OrderStatus) {
	t.Helper()
	err := f.conn.Model(&models.Order{}).Where("id = ?", orderID).
		Update("status", status).Error
	if err != nil {
		t.Fatalf("set order status: %v", err)
	}
}

func (f *fixture) productQuantity(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := f.conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Quantity
}

func daysAgo(n int) *time.Time {
	t := time.Now().AddDate(0, 0, -n)
	return &t
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != code {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}
