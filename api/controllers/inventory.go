package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/anaghvyas/trystyle-backend/api/responses"
	"github.com/anaghvyas/trystyle-backend/api/validators"
	"github.com/anaghvyas/trystyle-backend/internal/inventory"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

type restockRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size" validate:"required"`
	Color     string    `json:"color" validate:"required"`
	// signed delta; negative values correct stock downward
	Quantity int `json:"quantity" validate:"required"`
}

// GetAvailability returns live stock for a product, optionally narrowed to
// one size/color variant via query params.
func GetAvailability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		size := strings.TrimSpace(r.URL.Query().Get("size"))
		color := strings.TrimSpace(r.URL.Query().Get("color"))
		if size != "" && color != "" {
			availability, err := svc.GetAvailability(r.Context(), inventory.VariantKey{
				ProductID: productID,
				Size:      size,
				Color:     color,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, availability)
			return
		}

		variants, err := svc.ListAvailability(r.Context(), productID.String())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"productId": productID,
			"variants":  variants,
		})
	}
}

// Restock adjusts a variant's stock by a signed delta. Admin only.
func Restock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var req restockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		availability, err := svc.Restock(r.Context(), inventory.VariantKey{
			ProductID: req.ProductID,
			Size:      strings.TrimSpace(req.Size),
			Color:     strings.TrimSpace(req.Color),
		}, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logg.Info(logg.WithFields(r.Context(), map[string]any{
			"product_id": req.ProductID,
			"size":       req.Size,
			"color":      req.Color,
			"quantity":   req.Quantity,
		}), "variant restocked")
		responses.WriteSuccess(w, availability)
	}
}
