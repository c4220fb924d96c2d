package returns

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/threadleaf/threadleaf-backend/api/middleware"
	"github.com/threadleaf/threadleaf-backend/api/responses"
	"github.com/threadleaf/threadleaf-backend/api/validators"
	internalreturns "github.com/threadleaf/threadleaf-backend/internal/returns"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
	pkgerrors "github.com/threadleaf/threadleaf-backend/pkg/errors"
	"github.com/threadleaf/threadleaf-backend/pkg/logger"
)

type createRequest struct {
	OrderItemID  uuid.UUID `json:"orderItemId" validate:"required"`
	Reason       string    `json:"reason" validate:"required"`
	EvidencePath *string   `json:"evidencePath"`
}

type decisionRequest struct {
	Comment *string `json:"comment"`
}

type rejectRequest struct {
	Comment string `json:"comment" validate:"required"`
}

type statusRequest struct {
	Status  string  `json:"status" validate:"required"`
	Comment *string `json:"comment"`
}

type deliveryDateRequest struct {
	DeliveredAt time.Time `json:"deliveredAt" validate:"required"`
}

// Eligibility reports whether an order item can still be returned.
func Eligibility(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseUUIDParam(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.CheckEligibility(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Create opens a return for the authenticated user.
func Create(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
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

		ret, err := svc.Create(r.Context(), userID, req.OrderItemID, req.Reason, req.EvidencePath)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ret)
	}
}

// Detail returns one return with its history.
func Detail(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnID, err := validators.ParseUUIDParam(chi.URLParam(r, "returnId"), "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.GetByID(r.Context(), returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if middleware.RoleFromContext(r.Context()) != string(enums.RoleAdmin) &&
			ret.UserID != middleware.UserUUIDFromContext(r.Context()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "return does not belong to user"))
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

// List returns the authenticated user's returns.
func List(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
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

// AdminList returns every return for back-office review.
func AdminList(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
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

// Approve accepts an initiated return.
func Approve(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnID, err := validators.ParseUUIDParam(chi.URLParam(r, "returnId"), "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req decisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ret, err := svc.Approve(r.Context(), returnID, req.Comment)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

// Reject declines an initiated return. The comment is mandatory.
func Reject(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnID, err := validators.ParseUUIDParam(chi.URLParam(r, "returnId"), "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req rejectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ret, err := svc.Reject(r.Context(), returnID, req.Comment)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

// UpdateStatus applies one state-machine step to a return.
func UpdateStatus(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnID, err := validators.ParseUUIDParam(chi.URLParam(r, "returnId"), "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseReturnStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		ret, err := svc.UpdateStatus(r.Context(), returnID, status, req.Comment, enums.ActorAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

// Cancel withdraws an initiated return; only its owner may do so.
func Cancel(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		returnID, err := validators.ParseUUIDParam(chi.URLParam(r, "returnId"), "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ret, err := svc.Cancel(r.Context(), returnID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

// SetDeliveryDate backfills or corrects an item's delivery timestamp.
func SetDeliveryDate(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseUUIDParam(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req deliveryDateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetDeliveryDate(r.Context(), itemID, req.DeliveredAt); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}
