package controllers

import (
	"net/http"
	"strings"

	"github.com/anaghvyas/trystyle-backend/api/responses"
	"github.com/anaghvyas/trystyle-backend/api/validators"
	"github.com/anaghvyas/trystyle-backend/internal/orders"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

type updateOrderStatusRequest struct {
	Status   string `json:"status" validate:"required"`
	Message  string `json:"message,omitempty"`
	Location string `json:"location,omitempty"`
}

// UpdateOrderStatus advances an order through the fulfilment state
// machine and appends a tracking entry. Admin only.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(strings.TrimSpace(req.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, status, req.Message, req.Location)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logg.Info(logg.WithFields(r.Context(), map[string]any{
			"order_ref": order.Reference,
			"status":    order.Status,
		}), "order status updated")
		responses.WriteSuccess(w, map[string]any{
			"orderId":  order.ID,
			"status":   order.Status,
			"tracking": order.Tracking,
		})
	}
}
