package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

// AddItemInput holds the payload to add a product to the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	Size      *string
}

// Summary is the cart contents plus a computed subtotal.
type Summary struct {
	Items    []models.CartItem `json:"items"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

// Service exposes cart operations scoped to the owning user.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

type catalogReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

type service struct {
	repo    Repository
	catalog catalogReader
}

// NewService constructs a cart service instance.
func NewService(repo Repository, catalog catalogReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{repo: repo, catalog: catalog}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartItem, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.catalog.FindProductByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.HasVariants && input.VariantID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant selection is required for this product")
	}
	if input.VariantID != nil {
		variant, err := s.catalog.FindVariantByID(ctx, *input.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		if variant.ProductID != product.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not match variant")
		}
	}

	existing, err := s.repo.FindLine(ctx, userID, input.ProductID, input.VariantID)
	if err == nil {
		existing.Quantity += input.Quantity
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find cart line")
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Size:      input.Size,
		Quantity:  input.Quantity,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
	}
	return item, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	item, err := s.loadOwned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, userID, itemID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}

	subtotal := decimal.Zero
	for _, item := range items {
		price := linePrice(item)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return &Summary{Items: items, Subtotal: subtotal.Round(2)}, nil
}

func (s *service) loadOwned(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if item.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unauthorized cart item")
	}
	return item, nil
}

func linePrice(item models.CartItem) decimal.Decimal {
	if item.VariantID != nil && item.Product != nil {
		for _, variant := range item.Product.Variants {
			if variant.ID == *item.VariantID {
				if variant.SellingPrice != nil {
					return *variant.SellingPrice
				}
				return variant.MaximumRetailPrice
			}
		}
	}
	if item.Product == nil {
		return decimal.Zero
	}
	if item.Product.SellingPrice != nil {
		return *item.Product.SellingPrice
	}
	return item.Product.MaximumRetailPrice
}
