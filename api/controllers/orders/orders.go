package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadleaf/threadleaf-backend/api/middleware"
	"github.com/threadleaf/threadleaf-backend/api/responses"
	"github.com/threadleaf/threadleaf-backend/api/validators"
	internalorders "github.com/threadleaf/threadleaf-backend/internal/orders"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
	"github.com/threadleaf/threadleaf-backend/pkg/logger"
)

type createItemRequest struct {
	ProductID *uuid.UUID `json:"productId"`
	VariantID *uuid.UUID `json:"variantId"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
	Size      *string    `json:"size"`
	Color     *string    `json:"color"`
}

type createRequest struct {
	AddressID      uuid.UUID           `json:"addressId" validate:"required"`
	Items          []createItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod  string              `json:"paymentMethod"`
	PaymentID      *string             `json:"paymentId"`
	CouponCode     *string             `json:"couponCode"`
	DeliveryCharge *string             `json:"deliveryCharge"`
}

type statusRequest struct {
	Status  string  `json:"status" validate:"required"`
	Comment *string `json:"comment"`
}

// Create places an order for the authenticated user.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			AddressID:     req.AddressID,
			PaymentMethod: req.PaymentMethod,
			PaymentID:     req.PaymentID,
			CouponCode:    req.CouponCode,
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, internalorders.CreateOrderItemInput{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
				Size:      item.Size,
				Color:     item.Color,
			})
		}
		if req.DeliveryCharge != nil {
			charge, err := decimal.NewFromString(strings.TrimSpace(*req.DeliveryCharge))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery charge"))
				return
			}
			input.DeliveryCharge = &charge
		}

		order, err := svc.Create(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Detail returns one order after an ownership check; admins see any order.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if middleware.RoleFromContext(r.Context()) != string(enums.RoleAdmin) &&
			order.UserID != middleware.UserUUIDFromContext(r.Context()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// List returns the authenticated user's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListByUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminList returns every order for back-office views.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

// UpdateStatus moves an order to any valid status.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateOrderStatus(r.Context(), orderID, status, req.Comment, enums.ActorAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateItemStatus moves one line item and lets the order reconcile.
func UpdateItemStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseUUIDParam(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		item, err := svc.UpdateOrderItemStatus(r.Context(), itemID, status, req.Comment, enums.ActorAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
