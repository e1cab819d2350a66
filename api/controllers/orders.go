package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anaghvyas/trystyle-backend/api/responses"
	"github.com/anaghvyas/trystyle-backend/api/validators"
	"github.com/anaghvyas/trystyle-backend/internal/orders"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
	"github.com/anaghvyas/trystyle-backend/pkg/pagination"
	"github.com/anaghvyas/trystyle-backend/pkg/types"
)

const estimatedDeliveryDays = 7

type createOrderRequest struct {
	Items           []reservationItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address     `json:"shippingAddress" validate:"required"`
	BillingAddress  *types.Address    `json:"billingAddress,omitempty"`
	PaymentMethod   string            `json:"paymentMethod,omitempty"`
	Currency        string            `json:"currency,omitempty"`
	CouponCode      string            `json:"couponCode,omitempty"`
	IdempotencyKey  *string           `json:"idempotencyKey,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type returnOrderRequest struct {
	Reason   string `json:"reason" validate:"required"`
	Comments string `json:"comments,omitempty"`
}

// CreateOrder places an order from the cart payload. Replays of a used
// idempotency key answer 409 with the already-created order.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency := enums.CurrencyINR
		if raw := strings.TrimSpace(req.Currency); raw != "" {
			parsed, err := enums.ParseCurrency(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency"))
				return
			}
			currency = parsed
		}

		result, err := svc.Create(r.Context(), userID, orders.CreateInput{
			Items:           toCartItems(req.Items),
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
			Currency:        currency,
			CouponCode:      req.CouponCode,
			IdempotencyKey:  req.IdempotencyKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order := result.Order
		payload := map[string]any{
			"orderId":           order.ID,
			"reference":         order.Reference,
			"total":             order.TotalPaise,
			"currency":          order.Currency,
			"status":            order.Status,
			"estimatedDelivery": order.PlacedAt.Add(estimatedDeliveryDays * 24 * time.Hour),
			"trackingUrl":       fmt.Sprintf("/api/v1/orders/%s/track", order.ID),
		}
		if result.Replayed {
			payload["exists"] = true
			responses.WriteSuccessStatus(w, http.StatusConflict, payload)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}

// GetOrder returns the full order detail for the owning user.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// TrackOrder returns the tracking timeline for the owning user.
func TrackOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"orderId":   order.ID,
			"reference": order.Reference,
			"status":    order.Status,
			"tracking":  order.Tracking,
		})
	}
}

// ListOrders pages through the caller's order history.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CancelOrder stops an order before shipment.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), userID, orderID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"orderId":     order.ID,
			"status":      order.Status,
			"cancelledAt": order.CancelledAt,
		})
	}
}

// ReturnOrder opens a return request inside the delivery window.
func ReturnOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req returnOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RequestReturn(r.Context(), userID, orderID, req.Reason, req.Comments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"orderId":           order.ID,
			"returnRequested":   order.ReturnRequested,
			"returnStatus":      order.ReturnStatus,
			"returnRequestedAt": order.ReturnRequestedAt,
		})
	}
}
