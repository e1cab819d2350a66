package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anaghvyas/trystyle-backend/api/responses"
	"github.com/anaghvyas/trystyle-backend/api/validators"
	"github.com/anaghvyas/trystyle-backend/internal/reservations"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

type reserveItemsRequest struct {
	Items []reservationItem `json:"items" validate:"required,min=1,dive"`
}

type reservationItem struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size" validate:"required"`
	Color     string    `json:"color" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type confirmReservationsRequest struct {
	OrderID uuid.UUID         `json:"orderId" validate:"required"`
	Items   []reservationItem `json:"items" validate:"required,min=1,dive"`
}

type releaseReservationsRequest struct {
	ReservationIDs []uuid.UUID `json:"reservationIds" validate:"required,min=1"`
}

func toCartItems(items []reservationItem) []reservations.CartItem {
	out := make([]reservations.CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, reservations.CartItem{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Qty:       item.Quantity,
		})
	}
	return out
}

// ReserveItems places timed holds for the cart. All-or-nothing: one
// unavailable variant fails the whole request.
func ReserveItems(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reserveItemsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		holds, err := svc.ReserveCart(r.Context(), userID, toCartItems(req.Items))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expiresAt := time.Time{}
		ids := make([]uuid.UUID, 0, len(holds))
		for _, hold := range holds {
			ids = append(ids, hold.ID)
			if hold.ExpiresAt.After(expiresAt) {
				expiresAt = hold.ExpiresAt
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"reservationIds": ids,
			"holds":          holds,
			"expiresAt":      expiresAt,
			"expiresIn":      int(time.Until(expiresAt).Seconds()),
		})
	}
}

// ConfirmReservations consumes the caller's holds for an order.
func ConfirmReservations(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmReservationsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Confirm(r.Context(), userID, req.OrderID, toCartItems(req.Items)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"success": true})
	}
}

// ReleaseReservations returns held units to availability.
func ReleaseReservations(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req releaseReservationsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		for _, id := range req.ReservationIDs {
			if err := svc.Release(r.Context(), userID, id); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, map[string]any{"success": true})
	}
}

// ListHolds returns the caller's active holds.
func ListHolds(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		holds, err := svc.ListActive(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"holds": holds})
	}
}
