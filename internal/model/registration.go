package model

import (
	"errors"
	"fmt"
	"time"
)

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationAttended  RegistrationStatus = "attended"
)

// RegistrationPaymentStatus mirrors the state of the linked payment.
type RegistrationPaymentStatus string

const (
	RegistrationPaymentPending  RegistrationPaymentStatus = "pending"
	RegistrationPaymentPaid     RegistrationPaymentStatus = "paid"
	RegistrationPaymentFailed   RegistrationPaymentStatus = "failed"
	RegistrationPaymentRefunded RegistrationPaymentStatus = "refunded"
)

const CancellationLeadTime = 24 * time.Hour

var ErrInvalidTransition = errors.New("invalid status transition")

type TeamMember struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	College    string `json:"college,omitempty"`
	RollNumber string `json:"roll_number,omitempty"`
}

type Registration struct {
	ID                    string                    `db:"id" json:"id"`
	RegistrationNumber    string                    `db:"registration_number" json:"registration_number"`
	UserID                string                    `db:"user_id" json:"user_id"`
	Target                Target                    `db:"-" json:"target"`
	TeamName              string                    `db:"team_name" json:"team_name,omitempty"`
	TeamMembers           []TeamMember              `db:"team_members" json:"team_members,omitempty"`
	AccommodationRequired bool                      `db:"accommodation_required" json:"accommodation_required"`
	Amount                Amount                    `db:"amount" json:"amount"`
	PaymentStatus         RegistrationPaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentID             *string                   `db:"payment_id" json:"payment_id,omitempty"`
	Status                RegistrationStatus        `db:"status" json:"status"`
	EntryToken            string                    `db:"entry_token" json:"entry_token,omitempty"`
	CheckInTime           *time.Time                `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckInBy             *string                   `db:"check_in_by" json:"check_in_by,omitempty"`
	Notes                 string                    `db:"notes" json:"notes,omitempty"`
	CancelledAt           *time.Time                `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy           *string                   `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason    string                    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt             time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time                 `db:"updated_at" json:"updated_at"`
}

func (r *Registration) IsOwnedBy(userID string) bool {
	return r.UserID == userID
}

func (r *Registration) IsTerminal() bool {
	return r.Status == RegistrationCancelled || r.Status == RegistrationAttended
}

// Active registrations block a second registration for the same target.
func (r *Registration) IsActive() bool {
	return r.Status != RegistrationCancelled
}

// CanCancel reports why the registration may not be cancelled, or nil.
// startsAt is the start of the event or first workshop session; a zero
// value skips the lead-time rule.
func (r *Registration) CanCancel(startsAt, now time.Time) error {
	if r.IsTerminal() {
		return fmt.Errorf("%w: registration is already %s", ErrInvalidTransition, r.Status)
	}
	if r.CheckInTime != nil {
		return fmt.Errorf("%w: registration has been checked in", ErrInvalidTransition)
	}
	if !startsAt.IsZero() && startsAt.Sub(now) < CancellationLeadTime {
		return fmt.Errorf("%w: cannot cancel less than 24 hours before the start", ErrInvalidTransition)
	}
	return nil
}

func (r *Registration) Cancel(actor, reason string, startsAt, now time.Time) error {
	if err := r.CanCancel(startsAt, now); err != nil {
		return err
	}
	r.forceCancel(actor, reason, now)
	return nil
}

// CancelForRefund cancels a confirmed registration whose payment has been
// returned. The lead-time rule does not apply.
func (r *Registration) CancelForRefund(actor string, now time.Time) error {
	if r.IsTerminal() {
		return fmt.Errorf("%w: registration is already %s", ErrInvalidTransition, r.Status)
	}
	r.forceCancel(actor, "refunded", now)
	r.PaymentStatus = RegistrationPaymentRefunded
	return nil
}

func (r *Registration) forceCancel(actor, reason string, now time.Time) {
	r.Status = RegistrationCancelled
	r.CancelledAt = &now
	r.CancelledBy = &actor
	r.CancellationReason = reason
	r.UpdatedAt = now
}

// Confirm moves a pending registration to confirmed. It returns false
// without error when the registration is already confirmed or attended.
func (r *Registration) Confirm(paymentID string, now time.Time) (bool, error) {
	switch r.Status {
	case RegistrationConfirmed, RegistrationAttended:
		return false, nil
	case RegistrationCancelled:
		return false, fmt.Errorf("%w: registration is cancelled", ErrInvalidTransition)
	}
	r.Status = RegistrationConfirmed
	r.PaymentStatus = RegistrationPaymentPaid
	r.PaymentID = &paymentID
	r.UpdatedAt = now
	return true, nil
}

func (r *Registration) MarkAttended(actor string, now time.Time) error {
	if r.Status != RegistrationConfirmed {
		return fmt.Errorf("%w: only confirmed registrations can be checked in, status is %s", ErrInvalidTransition, r.Status)
	}
	r.Status = RegistrationAttended
	r.CheckInTime = &now
	r.CheckInBy = &actor
	r.UpdatedAt = now
	return nil
}
