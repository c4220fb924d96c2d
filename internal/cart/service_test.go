package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/internal/catalog"
	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

type fixture struct {
	conn *gorm.DB
	svc  Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.ProductVariant{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate models: %v", err)
	}
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{conn: conn, svc: svc}
}

func (f *fixture) seedProduct(t *testing.T, price int64, hasVariants bool) *models.Product {
	t.Helper()
	selling := decimal.NewFromInt(price)
	product := &models.Product{
		ID:                 uuid.New(),
		SKU:                "SKU-" + uuid.NewString()[:8],
		Name:               "Tee",
		Slug:               "tee-" + uuid.NewString()[:8],
		Category:           "apparel",
		MaximumRetailPrice: decimal.NewFromInt(price + 50),
		SellingPrice:       &selling,
		Quantity:           10,
		HasVariants:        hasVariants,
		IsActive:           true,
	}
	if err := f.conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func (f *fixture) seedVariant(t *testing.T, productID uuid.UUID, price int64) *models.ProductVariant {
	t.Helper()
	selling := decimal.NewFromInt(price)
	variant := &models.ProductVariant{
		ID:                 uuid.New(),
		ProductID:          productID,
		SKU:                "VAR-" + uuid.NewString()[:8],
		MaximumRetailPrice: decimal.NewFromInt(price + 30),
		SellingPrice:       &selling,
		Quantity:           5,
		IsActive:           true,
	}
	if err := f.conn.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

func TestAddItemMergesExistingLine(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	product := f.seedProduct(t, 100, false)

	first, err := f.svc.AddItem(ctx, userID, AddItemInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	second, err := f.svc.AddItem(ctx, userID, AddItemInput{ProductID: product.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("add item again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected merged line, got a new one")
	}
	if second.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", second.Quantity)
	}

	summary, err := f.svc.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(summary.Items) != 1 {
		t.Fatalf("expected 1 cart line, got %d", len(summary.Items))
	}
}

func TestAddItemRequiresVariantSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	product := f.seedProduct(t, 100, true)
	variant := f.seedVariant(t, product.ID, 120)

	_, err := f.svc.AddItem(ctx, userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	assertCode(t, err, pkgerrors.CodeValidation)

	if _, err := f.svc.AddItem(ctx, userID, AddItemInput{ProductID: product.ID, VariantID: &variant.ID, Quantity: 1}); err != nil {
		t.Fatalf("add variant line: %v", err)
	}

	// a variant belonging to a different product must be rejected
	other := f.seedProduct(t, 100, true)
	_, err = f.svc.AddItem(ctx, userID, AddItemInput{ProductID: other.ID, VariantID: &variant.ID, Quantity: 1})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestAddItemUnknownProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.AddItem(context.Background(), uuid.New(), AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestSubtotalPrefersVariantPricing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	plain := f.seedProduct(t, 100, false)
	varProduct := f.seedProduct(t, 100, true)
	variant := f.seedVariant(t, varProduct.ID, 250)

	if _, err := f.svc.AddItem(ctx, userID, AddItemInput{ProductID: plain.ID, Quantity: 2}); err != nil {
		t.Fatalf("add plain line: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, userID, AddItemInput{ProductID: varProduct.ID, VariantID: &variant.ID, Quantity: 1}); err != nil {
		t.Fatalf("add variant line: %v", err)
	}

	summary, err := f.svc.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	want := decimal.NewFromInt(450)
	if !summary.Subtotal.Equal(want) {
		t.Fatalf("expected subtotal %s, got %s", want, summary.Subtotal)
	}
}

func TestUpdateQuantityIsOwnerOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	product := f.seedProduct(t, 100, false)

	line, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	_, err = f.svc.UpdateQuantity(ctx, uuid.New(), line.ID, 4)
	assertCode(t, err, pkgerrors.CodeForbidden)

	updated, err := f.svc.UpdateQuantity(ctx, owner, line.ID, 4)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if updated.Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", updated.Quantity)
	}

	_, err = f.svc.UpdateQuantity(ctx, owner, line.ID, 0)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestClearEmptiesOnlyOwnCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	product := f.seedProduct(t, 100, false)

	if _, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add for alice: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, bob, AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add for bob: %v", err)
	}

	if err := f.svc.Clear(ctx, alice); err != nil {
		t.Fatalf("clear cart: %v", err)
	}

	aliceCart, err := f.svc.Get(ctx, alice)
	if err != nil {
		t.Fatalf("get alice cart: %v", err)
	}
	if len(aliceCart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(aliceCart.Items))
	}

	bobCart, err := f.svc.Get(ctx, bob)
	if err != nil {
		t.Fatalf("get bob cart: %v", err)
	}
	if len(bobCart.Items) != 1 {
		t.Fatalf("expected bob cart untouched, got %d lines", len(bobCart.Items))
	}
}

func TestRemoveItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	product := f.seedProduct(t, 100, false)

	line, err := f.svc.AddItem(ctx, userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := f.svc.RemoveItem(ctx, userID, line.ID); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	err = f.svc.RemoveItem(ctx, userID, line.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != code {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}
