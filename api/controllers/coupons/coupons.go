package coupons

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadleaf/threadleaf-backend/api/middleware"
	"github.com/threadleaf/threadleaf-backend/api/responses"
	"github.com/threadleaf/threadleaf-backend/api/validators"
	internalcoupons "github.com/threadleaf/threadleaf-backend/internal/coupons"
	"github.com/threadleaf/threadleaf-backend/pkg/db/models"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
	"github.com/threadleaf/threadleaf-backend/pkg/logger"
)

type createRequest struct {
	Code          string      `json:"code" validate:"required"`
	Type          string      `json:"type" validate:"required"`
	Value         string      `json:"value" validate:"required"`
	MinOrderValue *string     `json:"minOrderValue"`
	MaxDiscount   *string     `json:"maxDiscount"`
	IsStackable   bool        `json:"isStackable"`
	StartsAt      time.Time   `json:"startsAt" validate:"required"`
	ExpiresAt     time.Time   `json:"expiresAt" validate:"required"`
	ProductIDs    []uuid.UUID `json:"productIds"`
	Categories    []string    `json:"categories"`
}

type activeRequest struct {
	IsActive bool `json:"isActive"`
}

type validateRequest struct {
	Code  string             `json:"code" validate:"required"`
	Items []validateLineItem `json:"items" validate:"required,min=1,dive"`
}

type validateLineItem struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Category  string    `json:"category"`
	UnitPrice string    `json:"unitPrice" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type validateResponse struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Coupon   *models.Coupon  `json:"coupon"`
}

// Validate resolves a coupon against a prospective cart so the
// storefront can show the discount before the order is placed.
func Validate(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}
		var req validateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]internalcoupons.CartLine, 0, len(req.Items))
		for _, item := range req.Items {
			unitPrice, err := parseDecimal(item.UnitPrice, "unitPrice")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			lines = append(lines, internalcoupons.CartLine{
				ProductID: item.ProductID,
				Category:  item.Category,
				UnitPrice: unitPrice,
				Quantity:  item.Quantity,
			})
		}

		resolution, err := svc.ResolveForOrder(r.Context(), req.Code, userID, lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, validateResponse{
			Code:     resolution.Coupon.Code,
			Discount: resolution.Discount,
			Coupon:   resolution.Coupon,
		})
	}
}

// Create registers a coupon for the back office.
func Create(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		couponType, err := enums.ParseCouponType(strings.ToUpper(strings.TrimSpace(req.Type)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon type"))
			return
		}
		value, err := parseDecimal(req.Value, "value")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		minOrder, err := parseOptionalDecimal(req.MinOrderValue, "minOrderValue")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		maxDiscount, err := parseOptionalDecimal(req.MaxDiscount, "maxDiscount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), internalcoupons.CreateCouponInput{
			Code:          req.Code,
			Type:          couponType,
			Value:         value,
			MinOrderValue: minOrder,
			MaxDiscount:   maxDiscount,
			IsStackable:   req.IsStackable,
			StartsAt:      req.StartsAt,
			ExpiresAt:     req.ExpiresAt,
			ProductIDs:    req.ProductIDs,
			Categories:    req.Categories,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

// SetActive toggles a coupon without deleting its usage history.
func SetActive(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := validators.ParseUUIDParam(chi.URLParam(r, "couponId"), "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req activeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.SetActive(r.Context(), couponID, req.IsActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// List pages through all coupons.
func List(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// DetailByCode lets storefronts look up a coupon before checkout.
func DetailByCode(svc internalcoupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required"))
			return
		}
		coupon, err := svc.GetByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid decimal value").WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

func parseOptionalDecimal(raw *string, field string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := parseDecimal(*raw, field)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
