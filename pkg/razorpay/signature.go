package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// VerifyPaymentSignature checks the checkout callback proof Razorpay sends
// the browser after a successful payment: HMAC-SHA256 over
// "<order_id>|<payment_id>" keyed with the key secret. Comparison is
// constant time.
func (c *Client) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	if c == nil || gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := hmacHex(c.keySecret, []byte(gatewayOrderID+"|"+paymentID))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw webhook body using the webhook secret.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c == nil || len(body) == 0 || signature == "" {
		return false
	}
	expected := hmacHex(c.webhookSecret, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func hmacHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
