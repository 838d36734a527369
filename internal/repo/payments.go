package repo

import (
	"context"
	"fmt"

	"symposium/internal/model"
)

const paymentColumns = `id, user_id, registration_id, amount, currency, method, gateway_order_id, gateway_payment_id,
	gateway_signature, transaction_id, status, paid_at, failure_reason, refund_amount, refund_reason, refund_id,
	refunded_at, verified_by, verified_at, notes, created_at, updated_at`

func scanPayment(row rowScanner) (*model.Payment, error) {
	var p model.Payment
	if err := row.Scan(
		&p.ID, &p.UserID, &p.RegistrationID, &p.Amount, &p.Currency, &p.Method, &p.GatewayOrderID,
		&p.GatewayPaymentID, &p.GatewaySignature, &p.TransactionID, &p.Status, &p.PaidAt, &p.FailureReason,
		&p.RefundAmount, &p.RefundReason, &p.RefundID, &p.RefundedAt, &p.VerifiedBy, &p.VerifiedAt,
		&p.Notes, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Postgres) CreatePayment(ctx context.Context, p *model.Payment) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, p.ID, p.UserID, p.RegistrationID, p.Amount, p.Currency, p.Method, p.GatewayOrderID,
		p.GatewayPaymentID, p.GatewaySignature, p.TransactionID, p.Status, p.PaidAt, p.FailureReason,
		p.RefundAmount, p.RefundReason, p.RefundID, p.RefundedAt, p.VerifiedBy, p.VerifiedAt,
		p.Notes, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *Postgres) getPayment(ctx context.Context, column, value string) (*model.Payment, error) {
	p, err := scanPayment(r.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE `+column+` = $1`+r.forUpdate(), value))
	if err != nil {
		return nil, notFoundOr(err, "failed to get payment by %s", column)
	}
	return p, nil
}

func (r *Postgres) GetPaymentByID(ctx context.Context, id string) (*model.Payment, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	return r.getPayment(ctx, "id", id)
}

func (r *Postgres) GetPaymentByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	if orderID == "" {
		return nil, ErrNotFound
	}
	return r.getPayment(ctx, "gateway_order_id", orderID)
}

func (r *Postgres) GetPaymentByGatewayPaymentID(ctx context.Context, paymentID string) (*model.Payment, error) {
	if paymentID == "" {
		return nil, ErrNotFound
	}
	return r.getPayment(ctx, "gateway_payment_id", paymentID)
}

// UpdatePayment never rewrites amount, owner or transaction id.
func (r *Postgres) UpdatePayment(ctx context.Context, p *model.Payment) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE payments
		SET gateway_order_id = $2, gateway_payment_id = $3, gateway_signature = $4, status = $5, paid_at = $6,
		    failure_reason = $7, refund_amount = $8, refund_reason = $9, refund_id = $10, refunded_at = $11,
		    verified_by = $12, verified_at = $13, notes = $14, updated_at = $15
		WHERE id = $1
	`, p.ID, p.GatewayOrderID, p.GatewayPaymentID, p.GatewaySignature, p.Status, p.PaidAt,
		p.FailureReason, p.RefundAmount, p.RefundReason, p.RefundID, p.RefundedAt,
		p.VerifiedBy, p.VerifiedAt, p.Notes, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return expectOneRow(res)
}

func (r *Postgres) ListPayments(ctx context.Context, f PaymentFilter) ([]model.Payment, error) {
	var w whereBuilder
	if f.UserID != "" {
		w.addID("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	if w.empty {
		return nil, nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments`+w.String()+` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
