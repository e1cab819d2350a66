package razorpay

import (
	"context"
	"errors"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/anaghvyas/trystyle-backend/pkg/config"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

var (
	errKeyIDRequired         = errors.New("razorpay key id is required")
	errKeySecretRequired     = errors.New("razorpay key secret is required")
	errWebhookSecretRequired = errors.New("razorpay webhook secret is required")
)

// Client wraps the Razorpay SDK client plus the secrets needed for
// signature verification.
type Client struct {
	api           *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
}

// NewClient initializes Razorpay once with the configured credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}

	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	api := razorpay.NewClient(keyID, keySecret)

	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}

	return &Client{
		api:           api,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}, nil
}

// API returns the underlying Razorpay SDK client.
func (c *Client) API() *razorpay.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// KeyID returns the public key id (safe to hand to browser checkout).
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder creates a gateway order for the given amount in the smallest
// currency unit and returns the gateway order id.
func (c *Client) CreateOrder(amountPaise int64, currency, receipt string, notes map[string]any) (string, error) {
	data := map[string]any{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	order, err := c.api.Order.Create(data, nil)
	if err != nil {
		return "", err
	}

	id, _ := order["id"].(string)
	if id == "" {
		return "", errors.New("razorpay order response missing id")
	}
	return id, nil
}

// Refund issues a refund against a captured payment and returns the gateway
// refund id.
func (c *Client) Refund(paymentID string, amountPaise int64, notes map[string]any) (string, error) {
	data := map[string]any{}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	refund, err := c.api.Payment.Refund(paymentID, int(amountPaise), data, nil)
	if err != nil {
		return "", err
	}

	id, _ := refund["id"].(string)
	if id == "" {
		return "", errors.New("razorpay refund response missing id")
	}
	return id, nil
}
