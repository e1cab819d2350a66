package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/internal/orders"
	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

// orderTransitions is the slice of the order service the payment flows drive.
type orderTransitions interface {
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FailPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
}

// IntentDTO is what the client needs to open the gateway's checkout.
type IntentDTO struct {
	IntentID       uuid.UUID            `json:"intentId"`
	Gateway        enums.PaymentGateway `json:"gateway"`
	GatewayOrderID string               `json:"gatewayOrderId"`
	AmountPaise    int64                `json:"amountPaise"`
	Currency       enums.Currency       `json:"currency"`
	KeyID          string               `json:"keyId,omitempty"`
	ClientSecret   string               `json:"clientSecret,omitempty"`
}

// VerifyInput carries the client-side proof Razorpay checkout hands back.
type VerifyInput struct {
	UserID         uuid.UUID
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

type Service interface {
	CreateIntent(ctx context.Context, userID, orderID uuid.UUID, expectedPaise int64) (*IntentDTO, error)
	VerifyClientPayment(ctx context.Context, input VerifyInput) (*models.Order, error)
	HandleRazorpayWebhook(ctx context.Context, body []byte, signature string) error
	HandleStripeWebhook(ctx context.Context, body []byte, signature string) error
	Refund(ctx context.Context, orderID uuid.UUID, amountPaise int64, reason string) (*models.Refund, error)
}

type service struct {
	repo       *Repository
	ordersRepo *orders.Repository
	ordersSvc  orderTransitions
	razorpay   RazorpayGateway
	stripe     StripeGateway
	dbClient   *db.Client
	logg       *logger.Logger
}

func NewService(
	repo *Repository,
	ordersRepo *orders.Repository,
	ordersSvc orderTransitions,
	razorpayGw RazorpayGateway,
	stripeGw StripeGateway,
	dbClient *db.Client,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if razorpayGw == nil {
		return nil, fmt.Errorf("razorpay gateway required")
	}
	if stripeGw == nil {
		return nil, fmt.Errorf("stripe gateway required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		ordersSvc:  ordersSvc,
		razorpay:   razorpayGw,
		stripe:     stripeGw,
		dbClient:   dbClient,
		logg:       logg,
	}, nil
}

// CreateIntent opens a gateway checkout for the order. The charge amount is
// always recomputed from the stored order total; a client-submitted amount is
// accepted only as a cross-check. Retrying payment supersedes earlier intents.
func (s *service) CreateIntent(ctx context.Context, userID, orderID uuid.UUID, expectedPaise int64) (*IntentDTO, error) {
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusPaymentFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %q is not awaiting payment", order.Status))
	}
	if expectedPaise > 0 && expectedPaise != order.TotalPaise {
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, "payment amount does not match order total").
			WithDetails(map[string]any{
				"expectedPaise": order.TotalPaise,
				"receivedPaise": expectedPaise,
			})
	}

	gateway := enums.GatewayForCurrency(order.Currency)
	intent := &models.PaymentIntent{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Gateway:     gateway,
		Status:      enums.PaymentStatusCreated,
		AmountPaise: order.TotalPaise,
		Currency:    order.Currency,
	}

	dto := &IntentDTO{
		IntentID:    intent.ID,
		Gateway:     gateway,
		AmountPaise: order.TotalPaise,
		Currency:    order.Currency,
	}

	switch gateway {
	case enums.PaymentGatewayRazorpay:
		gatewayOrderID, err := s.razorpay.CreateOrder(order.TotalPaise, order.Currency.String(), order.Reference, map[string]any{
			"order_id": order.ID.String(),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create razorpay order")
		}
		intent.GatewayOrderID = gatewayOrderID
		dto.GatewayOrderID = gatewayOrderID
		dto.KeyID = s.razorpay.KeyID()
	case enums.PaymentGatewayStripe:
		id, clientSecret, err := s.stripe.CreateIntent(ctx, order.TotalPaise, order.Currency.String(), map[string]string{
			"order_id":  order.ID.String(),
			"reference": order.Reference,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe payment intent")
		}
		intent.GatewayOrderID = id
		dto.GatewayOrderID = id
		dto.ClientSecret = clientSecret
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unsupported gateway %q", gateway))
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.SupersedeOpen(ctx, order.ID); err != nil {
			return err
		}
		return repo.CreateIntent(ctx, intent)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_ref":        order.Reference,
		"gateway":          gateway.String(),
		"gateway_order_id": intent.GatewayOrderID,
		"amount_paise":     intent.AmountPaise,
	}), "payment intent created")
	return dto, nil
}

// VerifyClientPayment checks the signature Razorpay checkout returned to the
// browser. A bad signature fails the payment; webhooks remain the authority
// and a later captured event can still settle the order.
func (s *service) VerifyClientPayment(ctx context.Context, input VerifyInput) (*models.Order, error) {
	if input.GatewayOrderID == "" || input.PaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id, payment id and signature are required")
	}

	intent, err := s.repo.FindIntentByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	order, err := s.ordersRepo.FindByID(ctx, intent.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if intent.Gateway != enums.PaymentGatewayRazorpay {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "signature verification applies to razorpay payments only")
	}

	if !s.razorpay.VerifyPaymentSignature(input.GatewayOrderID, input.PaymentID, input.Signature) {
		if _, err := s.repo.MarkFailed(ctx, intent.ID, "signature verification failed"); err != nil {
			return nil, err
		}
		if _, err := s.ordersSvc.FailPayment(ctx, order.ID, "payment verification failed"); err != nil {
			s.logg.Error(s.logg.WithOrderRef(ctx, order.Reference), "fail payment after bad signature", err)
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentVerification, "payment signature verification failed")
	}

	return s.settle(ctx, intent, input.PaymentID)
}

// razorpayEnvelope is the slice of the webhook payload the service reads.
type razorpayEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleRazorpayWebhook processes a signed gateway callback. Events for
// already-settled intents are no-ops so redelivery is safe.
func (s *service) HandleRazorpayWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.razorpay.VerifyWebhookSignature(body, signature) {
		return pkgerrors.New(pkgerrors.CodePaymentVerification, "webhook signature verification failed")
	}

	var envelope razorpayEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode razorpay webhook")
	}
	entity := envelope.Payload.Payment.Entity

	switch envelope.Event {
	case "payment.captured", "order.paid":
		return s.settleByGatewayOrderID(ctx, entity.OrderID, entity.ID)
	case "payment.failed":
		reason := entity.ErrorDescription
		if reason == "" {
			reason = "payment failed at gateway"
		}
		return s.failByGatewayOrderID(ctx, entity.OrderID, reason)
	case "refund.processed":
		s.logg.Info(s.logg.WithField(ctx, "payment_id", entity.ID), "razorpay refund processed")
		return nil
	default:
		s.logg.Info(s.logg.WithField(ctx, "event", envelope.Event), "ignoring unhandled razorpay event")
		return nil
	}
}

// HandleStripeWebhook verifies and processes a Stripe event.
func (s *service) HandleStripeWebhook(ctx context.Context, body []byte, signature string) error {
	event, err := s.stripe.ConstructEvent(body, signature)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePaymentVerification, err, "verify stripe webhook")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		paymentID := pi.ID
		if pi.LatestCharge != nil {
			paymentID = pi.LatestCharge.ID
		}
		return s.settleByGatewayOrderID(ctx, pi.ID, paymentID)
	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		reason := "payment failed at gateway"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		return s.failByGatewayOrderID(ctx, pi.ID, reason)
	case stripe.EventTypeChargeRefunded:
		s.logg.Info(s.logg.WithField(ctx, "event", string(event.Type)), "stripe refund processed")
		return nil
	default:
		s.logg.Info(s.logg.WithField(ctx, "event", string(event.Type)), "ignoring unhandled stripe event")
		return nil
	}
}

// Refund issues a gateway refund against the order's settled payment.
// Refunds never restock inventory.
func (s *service) Refund(ctx context.Context, orderID uuid.UUID, amountPaise int64, reason string) (*models.Refund, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason is required")
	}

	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	intent, err := s.repo.FindCompletedIntentByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no completed payment to refund")
	}

	refunded, err := s.repo.SumRefunded(ctx, orderID)
	if err != nil {
		return nil, err
	}
	remaining := order.TotalPaise - refunded
	if remaining <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already fully refunded")
	}
	if amountPaise <= 0 {
		amountPaise = remaining
	}
	if amountPaise > remaining {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds refundable balance").
			WithDetails(map[string]any{
				"requestedPaise": amountPaise,
				"remainingPaise": remaining,
			})
	}

	var gatewayRefundID string
	switch intent.Gateway {
	case enums.PaymentGatewayRazorpay:
		if intent.PaymentID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "completed intent has no payment id")
		}
		gatewayRefundID, err = s.razorpay.Refund(*intent.PaymentID, amountPaise, map[string]any{
			"order_id": order.ID.String(),
			"reason":   reason,
		})
	case enums.PaymentGatewayStripe:
		gatewayRefundID, err = s.stripe.Refund(ctx, intent.GatewayOrderID, amountPaise)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unsupported gateway %q", intent.Gateway))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue gateway refund")
	}

	refund := &models.Refund{
		ID:              uuid.New(),
		OrderID:         order.ID,
		PaymentIntentID: intent.ID,
		Gateway:         intent.Gateway,
		GatewayRefundID: gatewayRefundID,
		AmountPaise:     amountPaise,
		Reason:          reason,
	}
	status := enums.RefundStatusPartial
	if refunded+amountPaise >= order.TotalPaise {
		status = enums.RefundStatusFull
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateRefund(ctx, refund); err != nil {
			return err
		}
		return s.ordersRepo.WithTx(tx).SetRefundStatus(ctx, order.ID, status)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_ref":         order.Reference,
		"gateway_refund_id": gatewayRefundID,
		"amount_paise":      amountPaise,
		"refund_status":     status.String(),
	}), "refund issued")
	return refund, nil
}

func (s *service) settleByGatewayOrderID(ctx context.Context, gatewayOrderID, paymentID string) error {
	intent, err := s.repo.FindIntentByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return err
	}
	_, err = s.settle(ctx, intent, paymentID)
	return err
}

func (s *service) settle(ctx context.Context, intent *models.PaymentIntent, paymentID string) (*models.Order, error) {
	settled, err := s.repo.MarkCompleted(ctx, intent.ID, paymentID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !settled {
		// the guard did nothing: either a duplicate delivery for an
		// already-completed intent, or an event for a superseded one.
		// Only the former may confirm the order.
		current, err := s.repo.FindIntentByID(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
		if current.Status != enums.PaymentStatusCompleted {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"gateway_order_id": intent.GatewayOrderID,
				"intent_status":    current.Status.String(),
			}), "settlement for non-live payment intent ignored")
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent is no longer live")
		}
		s.logg.Info(s.logg.WithField(ctx, "gateway_order_id", intent.GatewayOrderID), "payment intent already settled")
	}
	return s.ordersSvc.ConfirmPayment(ctx, intent.OrderID)
}

func (s *service) failByGatewayOrderID(ctx context.Context, gatewayOrderID, reason string) error {
	intent, err := s.repo.FindIntentByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return err
	}
	failed, err := s.repo.MarkFailed(ctx, intent.ID, reason)
	if err != nil {
		return err
	}
	if !failed {
		// terminal or already failed; nothing to propagate
		return nil
	}
	_, err = s.ordersSvc.FailPayment(ctx, intent.OrderID, reason)
	return err
}
