package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
	"github.com/threadleaf/threadleaf-backend/pkg/pagination"
)

// CartLine describes one order line for coupon eligibility checks.
type CartLine struct {
	ProductID uuid.UUID
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Resolution is the outcome of applying a coupon code to a cart.
type Resolution struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

// CreateCouponInput holds the validated payload to create a coupon.
type CreateCouponInput struct {
	Code          string
	Type          enums.CouponType
	Value         decimal.Decimal
	MinOrderValue *decimal.Decimal
	MaxDiscount   *decimal.Decimal
	IsStackable   bool
	StartsAt      time.Time
	ExpiresAt     time.Time
	ProductIDs    []uuid.UUID
	Categories    []string
}

// Service exposes coupon management and resolution operations.
type Service interface {
	Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	SetActive(ctx context.Context, couponID uuid.UUID, active bool) (*models.Coupon, error)
	List(ctx context.Context, params pagination.Params) (*pagination.Result[models.Coupon], error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	ResolveForOrder(ctx context.Context, code string, userID uuid.UUID, lines []CartLine) (*Resolution, error)
	RecordUsage(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a coupon service instance.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid coupon type %q", input.Type)
	}
	if !input.Value.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon value must be positive")
	}
	if input.Type == enums.CouponTypePercentage && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage coupon cannot exceed 100")
	}
	if !input.StartsAt.Before(input.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startsAt must be before expiresAt")
	}

	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "coupon code %s already exists", code)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon code")
	}

	coupon := &models.Coupon{
		Code:          code,
		Type:          input.Type,
		Value:         input.Value,
		MinOrderValue: input.MinOrderValue,
		MaxDiscount:   input.MaxDiscount,
		IsStackable:   input.IsStackable,
		StartsAt:      input.StartsAt,
		ExpiresAt:     input.ExpiresAt,
		IsActive:      true,
	}
	for _, productID := range input.ProductIDs {
		coupon.Products = append(coupon.Products, models.CouponProduct{ProductID: productID})
	}
	for _, category := range input.Categories {
		coupon.Categories = append(coupon.Categories, models.CouponCategory{
			Category: strings.ToLower(strings.TrimSpace(category)),
		})
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) SetActive(ctx context.Context, couponID uuid.UUID, active bool) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	coupon.IsActive = active
	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*pagination.Result[models.Coupon], error) {
	coupons, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	result := pagination.NewResult(coupons, params, total)
	return &result, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

// ResolveForOrder checks a coupon against the cart and computes the
// discount. One-time use is enforced here, at order-creation time, so
// a user cannot redeem the same code over and over.
func (s *service) ResolveForOrder(ctx context.Context, code string, userID uuid.UUID, lines []CartLine) (*Resolution, error) {
	coupon, err := s.GetByCode(ctx, code)
	if err != nil {
		appErr := pkgerrors.As(err)
		if appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon code")
		}
		return nil, err
	}

	now := s.now()
	if !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if now.Before(coupon.StartsAt) || now.After(coupon.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not valid at this time")
	}

	used, err := s.repo.HasUserUsed(ctx, coupon.ID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon usage")
	}
	if used {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon already used")
	}

	if !couponMatchesCart(coupon, lines) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not applicable to these items")
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if coupon.MinOrderValue != nil && subtotal.LessThan(*coupon.MinOrderValue) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation,
			"order value below coupon minimum of %s", coupon.MinOrderValue.StringFixed(2))
	}

	return &Resolution{Coupon: coupon, Discount: computeDiscount(coupon, subtotal)}, nil
}

func (s *service) RecordUsage(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	usage := &models.CouponUser{
		CouponID: couponID,
		UserID:   userID,
		OrderID:  &orderID,
	}
	if err := repo.CreateUsage(ctx, usage); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
	}
	return nil
}

func couponMatchesCart(coupon *models.Coupon, lines []CartLine) bool {
	if len(coupon.Products) == 0 && len(coupon.Categories) == 0 {
		return true
	}
	allowedProducts := make(map[uuid.UUID]struct{}, len(coupon.Products))
	for _, cp := range coupon.Products {
		allowedProducts[cp.ProductID] = struct{}{}
	}
	allowedCategories := make(map[string]struct{}, len(coupon.Categories))
	for _, cc := range coupon.Categories {
		allowedCategories[strings.ToLower(cc.Category)] = struct{}{}
	}
	for _, line := range lines {
		if _, ok := allowedProducts[line.ProductID]; ok {
			return true
		}
		if _, ok := allowedCategories[strings.ToLower(line.Category)]; ok {
			return true
		}
	}
	return false
}

func computeDiscount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case enums.CouponTypePercentage:
		discount = subtotal.Mul(coupon.Value).Div(decimal.NewFromInt(100))
	default:
		discount = coupon.Value
	}
	if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
		discount = *coupon.MaxDiscount
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount.Round(2)
}
