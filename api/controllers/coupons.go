package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/anaghvyas/trystyle-backend/api/responses"
	"github.com/anaghvyas/trystyle-backend/api/validators"
	"github.com/anaghvyas/trystyle-backend/internal/coupons"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

type validateCouponRequest struct {
	Code      string `json:"code" validate:"required"`
	CartValue int64  `json:"cartValue" validate:"gt=0"`
}

type applyCouponRequest struct {
	Code      string    `json:"code" validate:"required"`
	OrderID   uuid.UUID `json:"orderId" validate:"required"`
	CartValue int64     `json:"cartValue" validate:"gt=0"`
}

// ValidateCoupon checks a code against the caller's cart without
// consuming usage.
func ValidateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req validateCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		validation, err := svc.Validate(r.Context(), strings.TrimSpace(req.Code), userID, req.CartValue)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"valid":    true,
			"coupon":   validation,
			"discount": validation.DiscountPaise,
		})
	}
}

// ApplyCoupon records a coupon redemption against an order.
func ApplyCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req applyCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		validation, err := svc.ApplyToOrder(r.Context(), strings.TrimSpace(req.Code), userID, req.OrderID, req.CartValue)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"applied":  true,
			"coupon":   validation,
			"discount": validation.DiscountPaise,
		})
	}
}
