package payments

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	stripeRefund "github.com/stripe/stripe-go/v84/refund"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgstripe "github.com/anaghvyas/trystyle-backend/pkg/stripe"
)

// RazorpayGateway exposes the subset of Razorpay operations required by the
// payment service. pkg/razorpay.Client satisfies it.
type RazorpayGateway interface {
	CreateOrder(amountPaise int64, currency, receipt string, notes map[string]any) (string, error)
	Refund(paymentID string, amountPaise int64, notes map[string]any) (string, error)
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
	KeyID() string
}

// StripeGateway exposes the subset of Stripe operations required by the
// payment service, wrapped so the service can be tested.
type StripeGateway interface {
	CreateIntent(ctx context.Context, amountPaise int64, currency string, metadata map[string]string) (id, clientSecret string, err error)
	Refund(ctx context.Context, paymentIntentID string, amountPaise int64) (string, error)
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type stripeGatewayWrapper struct {
	signingSecret string
}

// NewStripeGateway wraps the provided Stripe client.
func NewStripeGateway(api *pkgstripe.Client) StripeGateway {
	if api == nil {
		return nil
	}
	return &stripeGatewayWrapper{signingSecret: api.SigningSecret()}
}

func (w *stripeGatewayWrapper) CreateIntent(ctx context.Context, amountPaise int64, currency string, metadata map[string]string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountPaise),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}
	intent, err := paymentintent.New(params)
	if err != nil {
		return "", "", err
	}
	return intent.ID, intent.ClientSecret, nil
}

func (w *stripeGatewayWrapper) Refund(ctx context.Context, paymentIntentID string, amountPaise int64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountPaise),
	}
	params.Context = ctx
	refund, err := stripeRefund.New(params)
	if err != nil {
		return "", err
	}
	return refund.ID, nil
}

func (w *stripeGatewayWrapper) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, w.signingSecret)
}
