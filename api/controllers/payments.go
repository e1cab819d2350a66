package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/anaghvyas/trystyle-backend/api/responses"
	"github.com/anaghvyas/trystyle-backend/api/validators"
	"github.com/anaghvyas/trystyle-backend/internal/payments"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

type createIntentRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
	Amount  int64     `json:"amount" validate:"gt=0"`
}

type verifyPaymentRequest struct {
	GatewayOrderID string `json:"gatewayOrderId" validate:"required"`
	PaymentID      string `json:"paymentId" validate:"required"`
	Signature      string `json:"signature" validate:"required"`
}

type refundRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
	Amount  int64     `json:"amount,omitempty"`
	Reason  string    `json:"reason" validate:"required"`
}

// CreatePaymentIntent opens a gateway payment for a pending order. The
// client-supplied amount must match the stored order total exactly.
func CreatePaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreateIntent(r.Context(), userID, req.OrderID, req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

// VerifyPayment settles a razorpay payment from the client callback. A
// signature mismatch fails the payment and frees the held stock.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := userIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifyClientPayment(r.Context(), payments.VerifyInput{
			UserID:         userID,
			GatewayOrderID: strings.TrimSpace(req.GatewayOrderID),
			PaymentID:      strings.TrimSpace(req.PaymentID),
			Signature:      req.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"verified": true,
			"orderId":  order.ID,
			"status":   order.Status,
		})
	}
}

// RefundPayment issues a gateway refund against a completed payment.
// Admin only; refunds never restock inventory.
func RefundPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Refund(r.Context(), req.OrderID, req.Amount, strings.TrimSpace(req.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logg.Info(logg.WithFields(r.Context(), map[string]any{
			"order_id":     req.OrderID,
			"refund_id":    refund.ID,
			"amount_paise": refund.AmountPaise,
		}), "refund issued")
		responses.WriteSuccess(w, refund)
	}
}
