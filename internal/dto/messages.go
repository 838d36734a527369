package dto

import (
	"symposium/internal/model"
)

type NotificationKind string

const (
	NotifyWelcome               NotificationKind = "welcome"
	NotifyRegistrationCreated   NotificationKind = "registration_created"
	NotifyPaymentConfirmed      NotificationKind = "payment_confirmed"
	NotifyRegistrationCancelled NotificationKind = "registration_cancelled"
	NotifyPaymentRefunded       NotificationKind = "payment_refunded"
	NotifyPasswordReset         NotificationKind = "password_reset"
)

// NotificationMessage is the queue payload consumed by the mail worker.
type NotificationMessage struct {
	Kind               NotificationKind `json:"kind"`
	Email              string           `json:"email"`
	Name               string           `json:"name"`
	RegistrationNumber string           `json:"registration_number,omitempty"`
	Title              string           `json:"title,omitempty"`
	Amount             model.Amount     `json:"amount,omitempty"`
	TransactionID      string           `json:"transaction_id,omitempty"`
	Reason             string           `json:"reason,omitempty"`
	Link               string           `json:"link,omitempty"`
	Attempt            int              `json:"attempt"`
}
