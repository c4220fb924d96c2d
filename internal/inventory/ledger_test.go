package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

func TestDecrementGuardsAgainstOverselling(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()

	product := seedProduct(t, db, 5)
	ref := Ref{ProductID: product.ID}

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Decrement(ctx, tx, ref, 3)
	})
	if err != nil {
		t.Fatalf("decrement within stock: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return ledger.Decrement(ctx, tx, ref, 3)
	})
	if err == nil {
		t.Fatal("expected decrement beyond stock to fail")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.Quantity != 2 {
		t.Fatalf("expected quantity 2 after failed decrement, got %d", got.Quantity)
	}
}

func TestDecrementTargetsVariantRow(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()

	product := seedProduct(t, db, 0)
	variant := models.ProductVariant{
		ID:                 uuid.New(),
		ProductID:          product.ID,
		SKU:                "SKU-VAR-" + uuid.NewString()[:8],
		MaximumRetailPrice: decimal.NewFromInt(100),
		Quantity:           4,
	}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}

	ref := Ref{ProductID: product.ID, VariantID: &variant.ID}
	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Decrement(ctx, tx, ref, 4)
	})
	if err != nil {
		t.Fatalf("decrement variant: %v", err)
	}

	var gotVariant models.ProductVariant
	if err := db.First(&gotVariant, "id = ?", variant.ID).Error; err != nil {
		t.Fatalf("reload variant: %v", err)
	}
	if gotVariant.Quantity != 0 {
		t.Fatalf("expected variant quantity 0, got %d", gotVariant.Quantity)
	}

	var gotProduct models.Product
	if err := db.First(&gotProduct, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if gotProduct.Quantity != 0 {
		t.Fatalf("expected product quantity untouched at 0, got %d", gotProduct.Quantity)
	}
}

func TestIncrementRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()

	product := seedProduct(t, db, 1)
	ref := Ref{ProductID: product.ID}

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Increment(ctx, tx, ref, 2)
	})
	if err != nil {
		t.Fatalf("increment: %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", got.Quantity)
	}
}

func TestIncrementUnknownRowFails(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Increment(ctx, tx, Ref{ProductID: uuid.New()}, 1)
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, qty int) models.Product {
	t.Helper()
	product := models.Product{
		ID:                 uuid.New(),
		SKU:                "SKU-" + uuid.NewString()[:8],
		Name:               "Test Product",
		Slug:               "test-product-" + uuid.NewString()[:8],
		Category:           "apparel",
		MaximumRetailPrice: decimal.NewFromInt(100),
		Quantity:           qty,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.ProductVariant{}); err != nil {
		t.Fatalf("migrate models: %v", err)
	}
	return db
}
