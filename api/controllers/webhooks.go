package controllers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anaghvyas/trystyle-backend/api/responses"
	"github.com/anaghvyas/trystyle-backend/internal/payments"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

// webhookBodyLimit caps gateway payloads; both gateways send small JSON.
const webhookBodyLimit = 1 << 20

// PaymentWebhook receives gateway callbacks. Once the signature checks
// out the gateway always gets a 200, even when downstream processing
// fails; the failure is logged and the gateway's redelivery (or the
// sweep) reconciles later. Only signature failures earn an error status.
func PaymentWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		gateway, err := enums.ParsePaymentGateway(chi.URLParam(r, "gateway"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment gateway"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable webhook body"))
			return
		}

		ctx := logg.WithGateway(r.Context(), string(gateway))
		switch gateway {
		case enums.PaymentGatewayRazorpay:
			err = svc.HandleRazorpayWebhook(ctx, body, r.Header.Get("X-Razorpay-Signature"))
		case enums.PaymentGatewayStripe:
			err = svc.HandleStripeWebhook(ctx, body, r.Header.Get("Stripe-Signature"))
		}
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodePaymentVerification) {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			logg.Error(ctx, "webhook processing failed", err)
		}
		responses.WriteSuccess(w, map[string]any{"received": true})
	}
}
