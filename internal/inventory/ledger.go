package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

// Ref identifies the stock row for an order line: the variant when one
// was purchased, otherwise the product itself.
type Ref struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

// Ledger adjusts stock counters inside a caller-owned transaction. The
// decrement is the authoritative guard against overselling: it only
// succeeds when enough stock remains at commit time.
type Ledger interface {
	Decrement(ctx context.Context, tx *gorm.DB, ref Ref, qty int) error
	Increment(ctx context.Context, tx *gorm.DB, ref Ref, qty int) error
	Available(ctx context.Context, tx *gorm.DB, ref Ref) (int, error)
}

type ledgerImpl struct{}

// NewLedger exposes the default stock ledger implementation.
func NewLedger() Ledger {
	return ledgerImpl{}
}

func (ledgerImpl) Decrement(ctx context.Context, tx *gorm.DB, ref Ref, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}

	table, id := tableFor(ref)
	res := tx.WithContext(ctx).Exec(`
		UPDATE `+table+`
		SET quantity = quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity >= ?
	`, qty, id, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock")
	}
	return nil
}

func (ledgerImpl) Increment(ctx context.Context, tx *gorm.DB, ref Ref, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock increment")
	}

	table, id := tableFor(ref)
	res := tx.WithContext(ctx).Exec(`
		UPDATE `+table+`
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, id)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "stock row not found")
	}
	return nil
}

func (ledgerImpl) Available(ctx context.Context, tx *gorm.DB, ref Ref) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock lookup")
	}

	table, id := tableFor(ref)
	var qty int
	err := tx.WithContext(ctx).
		Raw(`SELECT quantity FROM `+table+` WHERE id = ?`, id).
		Scan(&qty).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock")
	}
	return qty, nil
}

func tableFor(ref Ref) (string, uuid.UUID) {
	if ref.VariantID != nil {
		return "product_variants", *ref.VariantID
	}
	return "products", ref.ProductID
}
