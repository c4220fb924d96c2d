package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db"
	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
	"github.com/threadleaf/threadleaf-backend/pkg/pagination"
)

// Service exposes catalog management and lookup operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Result[models.Product], error)
	AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*models.ProductVariant, error)
	GetVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU                string
	Name               string
	Description        *string
	Category           string
	Brand              *string
	MaximumRetailPrice decimal.Decimal
	SellingPrice       *decimal.Decimal
	Size               *string
	Quantity           int
	IsReturn           bool
	IsActive           bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name               *string
	Description        *string
	Category           *string
	Brand              *string
	MaximumRetailPrice *decimal.Decimal
	SellingPrice       *decimal.Decimal
	Size               *string
	Quantity           *int
	IsReturn           *bool
	IsActive           *bool
}

// VariantInput defines a new sellable variation of a product.
type VariantInput struct {
	SKU                string
	Size               *string
	Color              *string
	MaximumRetailPrice decimal.Decimal
	SellingPrice       *decimal.Decimal
	Quantity           int
	IsReturn           *bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService constructs a catalog service instance.
func NewService(repo Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, tx: dbClient}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if strings.TrimSpace(input.SKU) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product sku is required")
	}
	if input.MaximumRetailPrice.IsNegative() || input.MaximumRetailPrice.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "maximum retail price must be positive")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	product := &models.Product{
		SKU:                strings.TrimSpace(input.SKU),
		Name:               strings.TrimSpace(input.Name),
		Slug:               slugify(input.Name),
		Description:        input.Description,
		Category:           strings.ToLower(strings.TrimSpace(input.Category)),
		Brand:              input.Brand,
		MaximumRetailPrice: input.MaximumRetailPrice,
		SellingPrice:       input.SellingPrice,
		Size:               input.Size,
		Quantity:           input.Quantity,
		IsReturn:           input.IsReturn,
		IsActive:           input.IsActive,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		product.Category = strings.ToLower(strings.TrimSpace(*input.Category))
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.MaximumRetailPrice != nil {
		product.MaximumRetailPrice = *input.MaximumRetailPrice
	}
	if input.SellingPrice != nil {
		product.SellingPrice = input.SellingPrice
	}
	if input.Size != nil {
		product.Size = input.Size
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		product.Quantity = *input.Quantity
	}
	if input.IsReturn != nil {
		product.IsReturn = *input.IsReturn
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Result[models.Product], error) {
	products, total, err := s.repo.ListProducts(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	result := pagination.NewResult(products, params, total)
	return &result, nil
}

func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*models.ProductVariant, error) {
	if strings.TrimSpace(input.SKU) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant sku is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	variant := &models.ProductVariant{
		ProductID:          product.ID,
		SKU:                strings.TrimSpace(input.SKU),
		Size:               input.Size,
		Color:              input.Color,
		MaximumRetailPrice: input.MaximumRetailPrice,
		SellingPrice:       input.SellingPrice,
		Quantity:           input.Quantity,
		IsReturn:           input.IsReturn,
		IsActive:           true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateVariant(ctx, variant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
		}
		if !product.HasVariants {
			product.HasVariants = true
			if err := txRepo.UpdateProduct(ctx, product); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag product variants")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return variant, nil
}

func (s *service) GetVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {
	variant, err := s.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return variant, nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
