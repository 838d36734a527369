package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// Signatures checks the two HMAC-SHA256 proofs Razorpay produces: the
// checkout signature over "order_id|payment_id" keyed by the API secret,
// and the webhook signature over the raw body keyed by the webhook secret.
type Signatures struct {
	keySecret     []byte
	webhookSecret []byte
}

func NewSignatures(keySecret, webhookSecret string) *Signatures {
	return &Signatures{keySecret: []byte(keySecret), webhookSecret: []byte(webhookSecret)}
}

func (s *Signatures) PaymentSignature(orderID, paymentID string) string {
	return Sign(s.keySecret, []byte(orderID+"|"+paymentID))
}

func (s *Signatures) VerifyPayment(orderID, paymentID, signature string) bool {
	return equal(s.PaymentSignature(orderID, paymentID), signature)
}

func (s *Signatures) WebhookSignature(body []byte) string {
	return Sign(s.webhookSecret, body)
}

func (s *Signatures) VerifyWebhook(body []byte, signature string) bool {
	return equal(s.WebhookSignature(body), signature)
}

// Sign returns the hex HMAC-SHA256 of payload.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func equal(expected, got string) bool {
	if got == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(got))
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Method           string `json:"method"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &ev, nil
}

func (e *WebhookEvent) Payment() PaymentEntity {
	return e.Payload.Payment.Entity
}
