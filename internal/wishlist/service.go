package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

// Service exposes wishlist operations scoped to the owning user.
type Service interface {
	Add(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistItem, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
}

type productReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo    Repository
	catalog productReader
}

// NewService constructs a wishlist service instance.
func NewService(repo Repository, catalog productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{repo: repo, catalog: catalog}, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistItem, error) {
	if _, err := s.catalog.FindProductByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	exists, err := s.repo.Exists(ctx, userID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wishlist")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already in wishlist")
	}

	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add to wishlist")
	}
	return item, nil
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	exists, err := s.repo.Exists(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wishlist")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not in wishlist")
	}
	if err := s.repo.Delete(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove from wishlist")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	return items, nil
}
