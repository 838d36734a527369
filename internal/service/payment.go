package service

import (
	"context"
	"errors"

	"symposium/internal/dto"
	"symposium/internal/gateway"
	"symposium/internal/model"
	"symposium/internal/repo"
)

type OrderResult struct {
	KeyID         string              `json:"key_id,omitempty"`
	OrderID       string              `json:"order_id,omitempty"`
	Amount        int64               `json:"amount"`
	Currency      string              `json:"currency"`
	PaymentID     string              `json:"payment_id"`
	TransactionID string              `json:"transaction_id"`
	Free          bool                `json:"free"`
	Registration  *model.Registration `json:"registration,omitempty"`
}

type PaymentResult struct {
	Payment      *model.Payment      `json:"payment"`
	Registration *model.Registration `json:"registration,omitempty"`
}

// CreateOrder opens a gateway order for a pending registration owned by
// payer. Registrations that cost nothing are confirmed on the spot.
func (s *Service) CreateOrder(ctx context.Context, registrationID string, payer *model.User) (*OrderResult, error) {
	reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return nil, classify(err, "registration")
	}
	if !reg.IsOwnedBy(payer.ID) {
		return nil, fail(ErrForbidden, "not authorized to pay for this registration")
	}
	if reg.Status != model.RegistrationPending {
		return nil, fail(ErrInvalidState, "registration is already %s", reg.Status)
	}

	now := s.now()
	txnID, err := model.NewTransactionID(now)
	if err != nil {
		return nil, err
	}
	p := &model.Payment{
		ID:             newID(),
		UserID:         payer.ID,
		RegistrationID: reg.ID,
		Amount:         reg.Amount,
		Currency:       s.cfg.Currency,
		Method:         model.MethodRazorpay,
		TransactionID:  txnID,
		Status:         model.PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if reg.Amount == 0 {
		return s.settleFree(ctx, p)
	}

	order, err := s.gw.CreateOrder(ctx, reg.Amount, p.Currency, reg.RegistrationNumber, map[string]string{
		"registration_id": reg.ID,
		"transaction_id":  txnID,
	})
	if err != nil {
		s.log.Error().Err(err).Str("registration_id", reg.ID).Msg("failed to create gateway order")
		return nil, fail(ErrUpstream, "payment gateway is unavailable, please try again later")
	}
	p.GatewayOrderID = order.ID

	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, classify(err, "payment")
	}
	s.log.Info().
		Str("payment_id", p.ID).
		Str("order_id", order.ID).
		Str("registration_id", reg.ID).
		Msg("payment order created")

	return &OrderResult{
		KeyID:         s.gw.KeyID(),
		OrderID:       order.ID,
		Amount:        reg.Amount.Paise(),
		Currency:      p.Currency,
		PaymentID:     p.ID,
		TransactionID: p.TransactionID,
	}, nil
}

func (s *Service) settleFree(ctx context.Context, p *model.Payment) (*OrderResult, error) {
	p.Method = model.MethodFree
	now := s.now()

	var reg *model.Registration
	err := s.repo.InTx(ctx, func(tx repo.Repository) error {
		if err := tx.CreatePayment(ctx, p); err != nil {
			return classify(err, "payment")
		}
		var err error
		reg, _, err = s.settle(ctx, tx, p, func(p *model.Payment) (bool, error) {
			return p.MarkSuccess("", "", now)
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("registration_id", reg.ID).Msg("free registration confirmed")
	s.notifyConfirmed(ctx, reg, p)
	return &OrderResult{
		Currency:      p.Currency,
		PaymentID:     p.ID,
		TransactionID: p.TransactionID,
		Free:          true,
		Registration:  reg,
	}, nil
}

// settle moves the locked payment p to success through mark and confirms
// its registration, reserving a seat when the registration was pending.
// An already successful payment is left untouched and reports false.
func (s *Service) settle(ctx context.Context, tx repo.Repository, p *model.Payment, mark func(*model.Payment) (bool, error)) (*model.Registration, bool, error) {
	if p.Status == model.PaymentSuccess {
		reg, err := tx.GetRegistrationByID(ctx, p.RegistrationID)
		return reg, false, classify(err, "registration")
	}
	if p.Status != model.PaymentPending {
		return nil, false, fail(ErrInvalidState, "payment is %s", p.Status)
	}

	reg, err := tx.GetRegistrationByID(ctx, p.RegistrationID)
	if err != nil {
		return nil, false, classify(err, "registration")
	}
	if reg.Status == model.RegistrationCancelled {
		return nil, false, fail(ErrInvalidState, "registration %s is cancelled", reg.RegistrationNumber)
	}

	if _, err := mark(p); err != nil {
		return nil, false, classify(err, "payment")
	}

	if reg.Status == model.RegistrationPending {
		if err := tx.ReserveSeat(ctx, reg.Target); err != nil {
			if errors.Is(err, repo.ErrCapacityFull) {
				return nil, false, fail(ErrInvalidState, "no seats left for this %s", reg.Target.Kind)
			}
			return nil, false, classify(err, string(reg.Target.Kind))
		}
	}
	if _, err := reg.Confirm(p.ID, s.now()); err != nil {
		return nil, false, classify(err, "registration")
	}

	if err := tx.UpdatePayment(ctx, p); err != nil {
		return nil, false, classify(err, "payment")
	}
	if err := tx.UpdateRegistration(ctx, reg); err != nil {
		return nil, false, classify(err, "registration")
	}
	return reg, true, nil
}

func (s *Service) notifyConfirmed(ctx context.Context, reg *model.Registration, p *model.Payment) {
	title := ""
	if l, err := s.repo.GetListing(ctx, reg.Target); err == nil {
		title = l.Name
	}
	s.notifyUser(ctx, reg.UserID, dto.NotificationMessage{
		Kind:               dto.NotifyPaymentConfirmed,
		RegistrationNumber: reg.RegistrationNumber,
		Title:              title,
		Amount:             p.Amount,
		TransactionID:      p.TransactionID,
	})
}

// VerifyPayment checks the checkout signature and settles the payment.
func (s *Service) VerifyPayment(ctx context.Context, req dto.VerifyPaymentRequest, payer *model.User) (*PaymentResult, error) {
	if !s.sigs.VerifyPayment(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.log.Warn().Str("order_id", req.RazorpayOrderID).Msg("payment signature mismatch")
		return nil, fail(ErrInvalidSignature, "payment verification failed, invalid signature")
	}

	now := s.now()
	var (
		payment *model.Payment
		reg     *model.Registration
		changed bool
	)
	err := s.repo.InTx(ctx, func(tx repo.Repository) error {
		var err error
		payment, err = tx.GetPaymentByOrderID(ctx, req.RazorpayOrderID)
		if err != nil {
			return classify(err, "payment")
		}
		if payment.UserID != payer.ID {
			return fail(ErrForbidden, "not authorized to verify this payment")
		}
		reg, changed, err = s.settle(ctx, tx, payment, func(p *model.Payment) (bool, error) {
			return p.MarkSuccess(req.RazorpayPaymentID, req.RazorpaySignature, now)
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info().Str("payment_id", payment.ID).Str("registration_id", reg.ID).Msg("payment verified")
		s.notifyConfirmed(ctx, reg, payment)
	}
	return &PaymentResult{Payment: payment, Registration: reg}, nil
}

// HandleWebhook applies a signed gateway event. Events that cannot be
// applied are logged and acknowledged so the gateway stops retrying.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.sigs.VerifyWebhook(body, signature) {
		s.log.Warn().Msg("webhook signature mismatch")
		return fail(ErrInvalidSignature, "invalid webhook signature")
	}
	ev, err := gateway.ParseWebhook(body)
	if err != nil {
		return fail(ErrValidation, "malformed webhook payload")
	}

	entity := ev.Payment()
	logger := s.log.With().
		Str("event", ev.Event).
		Str("gateway_payment_id", entity.ID).
		Str("order_id", entity.OrderID).
		Logger()

	switch ev.Event {
	case gateway.EventPaymentCaptured:
		err = s.webhookCaptured(ctx, entity)
	case gateway.EventPaymentFailed:
		err = s.webhookFailed(ctx, entity)
	default:
		logger.Info().Msg("webhook event ignored")
		return nil
	}

	switch {
	case err == nil:
		logger.Info().Msg("webhook processed")
		return nil
	case errors.Is(err, ErrNotFound):
		logger.Warn().Err(err).Msg("webhook for unknown payment acknowledged")
		return nil
	case errors.Is(err, ErrInvalidState):
		logger.Error().Err(err).Msg("captured payment could not confirm its registration, needs manual review")
		return nil
	}
	return err
}

func findGatewayPayment(ctx context.Context, tx repo.Repository, e gateway.PaymentEntity) (*model.Payment, error) {
	p, err := tx.GetPaymentByGatewayPaymentID(ctx, e.ID)
	if errors.Is(err, repo.ErrNotFound) {
		p, err = tx.GetPaymentByOrderID(ctx, e.OrderID)
	}
	if err != nil {
		return nil, classify(err, "payment")
	}
	return p, nil
}

func (s *Service) webhookCaptured(ctx context.Context, e gateway.PaymentEntity) error {
	now := s.now()
	var (
		payment *model.Payment
		reg     *model.Registration
		changed bool
	)
	err := s.repo.InTx(ctx, func(tx repo.Repository) error {
		var err error
		payment, err = findGatewayPayment(ctx, tx, e)
		if err != nil {
			return err
		}
		reg, changed, err = s.settle(ctx, tx, payment, func(p *model.Payment) (bool, error) {
			return p.MarkSuccess(e.ID, "", now)
		})
		return err
	})
	if err != nil {
		return err
	}
	if changed {
		s.notifyConfirmed(ctx, reg, payment)
	}
	return nil
}

func (s *Service) webhookFailed(ctx context.Context, e gateway.PaymentEntity) error {
	now := s.now()
	return s.repo.InTx(ctx, func(tx repo.Repository) error {
		p, err := findGatewayPayment(ctx, tx, e)
		if err != nil {
			return err
		}
		if p.Status != model.PaymentPending {
			return nil
		}
		reason := e.ErrorDescription
		if reason == "" {
			reason = "payment failed at gateway"
		}
		if _, err := p.MarkFailed(reason, now); err != nil {
			return classify(err, "payment")
		}
		if e.ID != "" {
			p.GatewayPaymentID = e.ID
		}
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return classify(err, "payment")
		}

		reg, err := tx.GetRegistrationByID(ctx, p.RegistrationID)
		if err != nil {
			return classify(err, "registration")
		}
		if reg.Status == model.RegistrationPending {
			reg.PaymentStatus = model.RegistrationPaymentFailed
			reg.UpdatedAt = now
			return tx.UpdateRegistration(ctx, reg)
		}
		return nil
	})
}

// ManualVerify settles a payment proven outside the gateway.
func (s *Service) ManualVerify(ctx context.Context, paymentID string, admin *model.User, notes string) (*PaymentResult, error) {
	now := s.now()
	var (
		payment *model.Payment
		reg     *model.Registration
		changed bool
	)
	err := s.repo.InTx(ctx, func(tx repo.Repository) error {
		var err error
		payment, err = tx.GetPaymentByID(ctx, paymentID)
		if err != nil {
			return classify(err, "payment")
		}
		reg, changed, err = s.settle(ctx, tx, payment, func(p *model.Payment) (bool, error) {
			ok, err := p.MarkSuccess("", "", now)
			if err != nil {
				return false, err
			}
			p.MarkVerified(admin.ID, now)
			if notes != "" {
				p.Notes = notes
			}
			return ok, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info().Str("payment_id", payment.ID).Str("verified_by", admin.ID).Msg("payment verified manually")
		s.notifyConfirmed(ctx, reg, payment)
	}
	return &PaymentResult{Payment: payment, Registration: reg}, nil
}

// RefundPayment returns the whole captured amount. A confirmed
// registration paid by this payment is cancelled and frees its seat.
func (s *Service) RefundPayment(ctx context.Context, paymentID string, admin *model.User, reason string) (*PaymentResult, error) {
	if reason == "" {
		reason = "refunded by admin"
	}
	now := s.now()
	var (
		payment *model.Payment
		reg     *model.Registration
	)
	err := s.repo.InTx(ctx, func(tx repo.Repository) error {
		var err error
		payment, err = tx.GetPaymentByID(ctx, paymentID)
		if err != nil {
			return classify(err, "payment")
		}
		if payment.Status != model.PaymentSuccess {
			return fail(ErrInvalidState, "only successful payments can be refunded, payment is %s", payment.Status)
		}
		remaining := payment.Amount - payment.RefundAmount
		if remaining <= 0 {
			return fail(ErrInvalidState, "nothing to refund")
		}

		refundID := ""
		if payment.Method == model.MethodRazorpay && payment.GatewayPaymentID != "" {
			refund, err := s.gw.Refund(ctx, payment.GatewayPaymentID, remaining)
			if errors.Is(err, gateway.ErrTimeout) {
				s.log.Error().Err(err).
					Str("payment_id", payment.ID).
					Str("gateway_payment_id", payment.GatewayPaymentID).
					Str("transaction_id", payment.TransactionID).
					Int64("amount", int64(remaining)).
					Msg("gateway refund timed out, outcome must be reconciled")
				return fail(ErrUpstream, "refund status is unknown, check the payment gateway before retrying")
			}
			if err != nil {
				s.log.Error().Err(err).Str("payment_id", payment.ID).Int64("amount", int64(remaining)).Msg("gateway refund failed")
				return fail(ErrUpstream, "refund could not be processed, please try again later")
			}
			refundID = refund.ID
		}
		if err := payment.Refund(remaining, reason, refundID, now); err != nil {
			return classify(err, "payment")
		}
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return classify(err, "payment")
		}

		reg, err = tx.GetRegistrationByID(ctx, payment.RegistrationID)
		if err != nil {
			return classify(err, "registration")
		}
		if reg.PaymentID == nil || *reg.PaymentID != payment.ID {
			return nil
		}
		switch reg.Status {
		case model.RegistrationConfirmed:
			if err := reg.CancelForRefund(admin.ID, now); err != nil {
				return classify(err, "registration")
			}
			if err := tx.ReleaseSeat(ctx, reg.Target); err != nil {
				return err
			}
		default:
			reg.PaymentStatus = model.RegistrationPaymentRefunded
			reg.UpdatedAt = now
		}
		return tx.UpdateRegistration(ctx, reg)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("payment_id", payment.ID).
		Str("refund_id", payment.RefundID).
		Int64("amount", int64(payment.RefundAmount)).
		Msg("payment refunded")
	s.notifyUser(ctx, payment.UserID, dto.NotificationMessage{
		Kind:          dto.NotifyPaymentRefunded,
		Amount:        payment.RefundAmount,
		TransactionID: payment.TransactionID,
		Reason:        reason,
	})
	return &PaymentResult{Payment: payment, Registration: reg}, nil
}

func (s *Service) GetPayment(ctx context.Context, id string, user *model.User) (*model.Payment, error) {
	p, err := s.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return nil, classify(err, "payment")
	}
	if !canAccess(p.UserID, user) {
		return nil, fail(ErrForbidden, "not authorized to access this payment")
	}
	return p, nil
}

func (s *Service) ListPayments(ctx context.Context, f repo.PaymentFilter) ([]model.Payment, error) {
	return s.repo.ListPayments(ctx, f)
}
