package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadleaf/threadleaf-backend/pkg/db"
	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
)

// Input holds the payload to create or replace an address.
type Input struct {
	Name       string
	Phone      string
	Line1      string
	Line2      *string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

// Service exposes address book operations scoped to the owning user.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input Input) (*models.Address, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*models.Address, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
	Get(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService constructs an address service instance.
func NewService(repo Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, tx: dbClient}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*models.Address, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	address := &models.Address{
		UserID:     userID,
		Name:       strings.TrimSpace(input.Name),
		Phone:      strings.TrimSpace(input.Phone),
		Line1:      strings.TrimSpace(input.Line1),
		Line2:      input.Line2,
		City:       strings.TrimSpace(input.City),
		State:      strings.TrimSpace(input.State),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Country:    normalizeCountry(input.Country),
		IsDefault:  input.IsDefault,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if input.IsDefault {
			if err := txRepo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		if err := txRepo.Create(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*models.Address, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	address, err := s.Get(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	address.Name = strings.TrimSpace(input.Name)
	address.Phone = strings.TrimSpace(input.Phone)
	address.Line1 = strings.TrimSpace(input.Line1)
	address.Line2 = input.Line2
	address.City = strings.TrimSpace(input.City)
	address.State = strings.TrimSpace(input.State)
	address.PostalCode = strings.TrimSpace(input.PostalCode)
	address.Country = normalizeCountry(input.Country)
	address.IsDefault = input.IsDefault

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if input.IsDefault {
			if err := txRepo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		if err := txRepo.Update(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := s.Get(ctx, userID, addressID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, addressID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	return nil
}

func (s *service) Get(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	address, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if address.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unauthorized address")
	}
	return address, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return addresses, nil
}

func validateInput(input Input) error {
	missing := []string{}
	for field, value := range map[string]string{
		"name":       input.Name,
		"phone":      input.Phone,
		"line1":      input.Line1,
		"city":       input.City,
		"state":      input.State,
		"postalCode": input.PostalCode,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required address fields").
			WithDetails(missing)
	}
	return nil
}

func normalizeCountry(country string) string {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return "IN"
	}
	return country
}
