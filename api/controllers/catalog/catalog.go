package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/threadleaf/threadleaf-backend/api/responses"
	"github.com/threadleaf/threadleaf-backend/api/validators"
	internalcatalog "github.com/threadleaf/threadleaf-backend/internal/catalog"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
	"github.com/threadleaf/threadleaf-backend/pkg/logger"
)

type createProductRequest struct {
	SKU                string  `json:"sku" validate:"required"`
	Name               string  `json:"name" validate:"required"`
	Description        *string `json:"description"`
	Category           string  `json:"category" validate:"required"`
	Brand              *string `json:"brand"`
	MaximumRetailPrice string  `json:"maximumRetailPrice" validate:"required"`
	SellingPrice       *string `json:"sellingPrice"`
	Size               *string `json:"size"`
	Quantity           int     `json:"quantity" validate:"min=0"`
	IsReturn           bool    `json:"isReturn"`
	IsActive           bool    `json:"isActive"`
}

type updateProductRequest struct {
	Name               *string `json:"name"`
	Description        *string `json:"description"`
	Category           *string `json:"category"`
	Brand              *string `json:"brand"`
	MaximumRetailPrice *string `json:"maximumRetailPrice"`
	SellingPrice       *string `json:"sellingPrice"`
	Size               *string `json:"size"`
	Quantity           *int    `json:"quantity"`
	IsReturn           *bool   `json:"isReturn"`
	IsActive           *bool   `json:"isActive"`
}

type createVariantRequest struct {
	SKU                string  `json:"sku" validate:"required"`
	Size               *string `json:"size"`
	Color              *string `json:"color"`
	MaximumRetailPrice string  `json:"maximumRetailPrice" validate:"required"`
	SellingPrice       *string `json:"sellingPrice"`
	Quantity           int     `json:"quantity" validate:"min=0"`
	IsReturn           *bool   `json:"isReturn"`
}

func parsePrice(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid decimal value").WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

func parseOptionalPrice(raw *string, field string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := parsePrice(*raw, field)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// CreateProduct adds a catalog entry.
func CreateProduct(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mrp, err := parsePrice(req.MaximumRetailPrice, "maximumRetailPrice")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		selling, err := parseOptionalPrice(req.SellingPrice, "sellingPrice")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), internalcatalog.CreateProductInput{
			SKU:                req.SKU,
			Name:               req.Name,
			Description:        req.Description,
			Category:           req.Category,
			Brand:              req.Brand,
			MaximumRetailPrice: mrp,
			SellingPrice:       selling,
			Size:               req.Size,
			Quantity:           req.Quantity,
			IsReturn:           req.IsReturn,
			IsActive:           req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct patches mutable product fields.
func UpdateProduct(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mrp, err := parseOptionalPrice(req.MaximumRetailPrice, "maximumRetailPrice")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		selling, err := parseOptionalPrice(req.SellingPrice, "sellingPrice")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, internalcatalog.UpdateProductInput{
			Name:               req.Name,
			Description:        req.Description,
			Category:           req.Category,
			Brand:              req.Brand,
			MaximumRetailPrice: mrp,
			SellingPrice:       selling,
			Size:               req.Size,
			Quantity:           req.Quantity,
			IsReturn:           req.IsReturn,
			IsActive:           req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AddVariant attaches a sellable variation to a product.
func AddVariant(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createVariantRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mrp, err := parsePrice(req.MaximumRetailPrice, "maximumRetailPrice")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		selling, err := parseOptionalPrice(req.SellingPrice, "sellingPrice")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.AddVariant(r.Context(), productID, internalcatalog.VariantInput{
			SKU:                req.SKU,
			Size:               req.Size,
			Color:              req.Color,
			MaximumRetailPrice: mrp,
			SellingPrice:       selling,
			Quantity:           req.Quantity,
			IsReturn:           req.IsReturn,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

// List returns a filtered page of products.
func List(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := internalcatalog.ListFilter{
			Category:   strings.TrimSpace(r.URL.Query().Get("category")),
			Search:     strings.TrimSpace(r.URL.Query().Get("search")),
			OnlyActive: r.URL.Query().Get("includeInactive") != "true",
		}
		page, err := svc.ListProducts(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Detail returns one product with variants.
func Detail(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// DetailBySlug resolves a product through its storefront slug.
func DetailBySlug(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
			return
		}
		product, err := svc.GetProductBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
