package model

import (
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSuccess    PaymentStatus = "success"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	MethodRazorpay PaymentMethod = "razorpay"
	MethodUPI      PaymentMethod = "upi"
	MethodCash     PaymentMethod = "cash"
	MethodFree     PaymentMethod = "free"
	MethodOther    PaymentMethod = "other"
)

const DefaultCurrency = "INR"

// processing is reserved by the schema; no flow moves a payment into it.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentSuccess, PaymentFailed},
	PaymentSuccess: {PaymentRefunded},
}

type Payment struct {
	ID               string        `db:"id" json:"id"`
	UserID           string        `db:"user_id" json:"user_id"`
	RegistrationID   string        `db:"registration_id" json:"registration_id"`
	Amount           Amount        `db:"amount" json:"amount"`
	Currency         string        `db:"currency" json:"currency"`
	Method           PaymentMethod `db:"method" json:"method"`
	GatewayOrderID   string        `db:"gateway_order_id" json:"razorpay_order_id,omitempty"`
	GatewayPaymentID string        `db:"gateway_payment_id" json:"razorpay_payment_id,omitempty"`
	GatewaySignature string        `db:"gateway_signature" json:"-"`
	TransactionID    string        `db:"transaction_id" json:"transaction_id"`
	Status           PaymentStatus `db:"status" json:"status"`
	PaidAt           *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	FailureReason    string        `db:"failure_reason" json:"failure_reason,omitempty"`
	RefundAmount     Amount        `db:"refund_amount" json:"refund_amount"`
	RefundReason     string        `db:"refund_reason" json:"refund_reason,omitempty"`
	RefundID         string        `db:"refund_id" json:"refund_id,omitempty"`
	RefundedAt       *time.Time    `db:"refunded_at" json:"refunded_at,omitempty"`
	VerifiedBy       *string       `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt       *time.Time    `db:"verified_at" json:"verified_at,omitempty"`
	Notes            string        `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

func (p *Payment) CanTransition(to PaymentStatus) bool {
	for _, s := range paymentTransitions[p.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// MarkSuccess settles the payment. Settling an already successful payment
// is a no-op and reports false.
func (p *Payment) MarkSuccess(gatewayPaymentID, signature string, now time.Time) (bool, error) {
	if p.Status == PaymentSuccess {
		return false, nil
	}
	if !p.CanTransition(PaymentSuccess) {
		return false, fmt.Errorf("%w: payment is %s", ErrInvalidTransition, p.Status)
	}
	if gatewayPaymentID != "" {
		p.GatewayPaymentID = gatewayPaymentID
	}
	if signature != "" {
		p.GatewaySignature = signature
	}
	p.Status = PaymentSuccess
	p.PaidAt = &now
	p.UpdatedAt = now
	return true, nil
}

func (p *Payment) MarkFailed(reason string, now time.Time) (bool, error) {
	if p.Status == PaymentFailed {
		return false, nil
	}
	if !p.CanTransition(PaymentFailed) {
		return false, fmt.Errorf("%w: payment is %s", ErrInvalidTransition, p.Status)
	}
	p.Status = PaymentFailed
	p.FailureReason = reason
	p.UpdatedAt = now
	return true, nil
}

func (p *Payment) MarkVerified(admin string, now time.Time) {
	p.VerifiedBy = &admin
	p.VerifiedAt = &now
	p.UpdatedAt = now
}

// Refund records amount as returned. The payment becomes refunded once the
// whole amount has been returned.
func (p *Payment) Refund(amount Amount, reason, refundID string, now time.Time) error {
	if p.Status != PaymentSuccess {
		return fmt.Errorf("%w: only successful payments can be refunded, payment is %s", ErrInvalidTransition, p.Status)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: refund amount must be positive", ErrInvalidTransition)
	}
	if p.RefundAmount+amount > p.Amount {
		return fmt.Errorf("%w: refund amount exceeds available balance", ErrInvalidTransition)
	}
	p.RefundAmount += amount
	p.RefundReason = reason
	p.RefundID = refundID
	p.RefundedAt = &now
	p.UpdatedAt = now
	if p.RefundAmount == p.Amount {
		p.Status = PaymentRefunded
	}
	return nil
}
