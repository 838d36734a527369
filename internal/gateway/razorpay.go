package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/rs/zerolog"

	"symposium/internal/model"
)

var ErrTimeout = errors.New("payment gateway did not answer in time")

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type Refund struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

// Razorpay opens orders and issues refunds through the Razorpay REST API.
type Razorpay struct {
	client *razorpay.Client
	keyID  string
	log    *zerolog.Logger
}

// NewRazorpay bounds every SDK request by cfg.Timeout, rounded up to whole
// seconds since that is the SDK's resolution.
func NewRazorpay(cfg Config, log *zerolog.Logger) *Razorpay {
	seconds := math.Ceil(cfg.Timeout.Seconds())
	if seconds <= 0 {
		seconds = 10
	}
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	client.SetTimeout(int16(math.Min(seconds, math.MaxInt16)))
	return &Razorpay{
		client: client,
		keyID:  cfg.KeyID,
		log:    log,
	}
}

func (r *Razorpay) KeyID() string {
	return r.keyID
}

func (r *Razorpay) CreateOrder(ctx context.Context, amount model.Amount, currency, receipt string, notes map[string]string) (*Order, error) {
	data := map[string]interface{}{
		"amount":   amount.Paise(),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		err = classifyErr(err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	order := &Order{
		ID:       stringField(body, "id"),
		Amount:   intField(body, "amount"),
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
	}
	if order.ID == "" {
		return nil, errors.New("create order: gateway response has no order id")
	}
	r.log.Info().Str("order_id", order.ID).Str("receipt", receipt).Msg("gateway order created")
	return order, nil
}

// Refund returns amount of a captured payment to the payer. After a
// timeout the refund may still have been issued.
func (r *Razorpay) Refund(ctx context.Context, paymentID string, amount model.Amount) (*Refund, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refund payment %s: %w", paymentID, err)
	}
	body, err := r.client.Payment.Refund(paymentID, int(amount.Paise()), nil, nil)
	if err != nil {
		err = classifyErr(err)
		ev := r.log.Error()
		if errors.Is(err, ErrTimeout) {
			ev = r.log.Warn().Bool("outcome_unknown", true)
		}
		ev.Err(err).Str("payment_id", paymentID).Int64("amount_paise", amount.Paise()).Msg("gateway refund failed")
		return nil, fmt.Errorf("refund payment %s: %w", paymentID, err)
	}

	refund := &Refund{ID: stringField(body, "id"), Amount: intField(body, "amount")}
	r.log.Info().Str("payment_id", paymentID).Str("refund_id", refund.ID).Msg("gateway refund issued")
	return refund, nil
}

// classifyErr marks client-side timeouts with ErrTimeout.
func classifyErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func intField(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
