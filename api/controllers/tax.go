package controllers

import (
	"net/http"

	"github.com/anaghvyas/trystyle-backend/api/responses"
	"github.com/anaghvyas/trystyle-backend/api/validators"
	"github.com/anaghvyas/trystyle-backend/internal/pricing"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

type calculateTaxRequest struct {
	Items         []pricing.CartLine `json:"items" validate:"required,min=1,dive"`
	ShippingState string             `json:"shippingState" validate:"required"`
}

// CalculateTax prices a cart for a destination state and returns the GST
// breakdown without reserving or ordering anything.
func CalculateTax(engine *pricing.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing engine unavailable"))
			return
		}

		var req calculateTaxRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := engine.PriceCart(r.Context(), req.Items, req.ShippingState)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"tax": map[string]any{
				"subtotal": quote.NetSubtotalPaise(),
				"shipping": quote.ShippingPaise,
				"cgst":     quote.CGSTPaise,
				"sgst":     quote.SGSTPaise,
				"igst":     quote.IGSTPaise,
				"totalGST": quote.GSTTotalPaise,
				"total":    quote.NetSubtotalPaise() + quote.ShippingPaise + quote.GSTTotalPaise,
			},
			"isInterState": quote.IsInterState,
			"lines":        quote.Lines,
		})
	}
}
