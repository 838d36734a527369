package model

import (
	"fmt"
	"time"
)

type CheckInMethod string

const (
	CheckInQR     CheckInMethod = "qr"
	CheckInManual CheckInMethod = "manual"
)

type Attendance struct {
	ID             string        `db:"id" json:"id"`
	RegistrationID string        `db:"registration_id" json:"registration_id"`
	UserID         string        `db:"user_id" json:"user_id"`
	Target         Target        `db:"-" json:"target"`
	CheckInTime    time.Time     `db:"check_in_time" json:"check_in_time"`
	CheckInBy      string        `db:"check_in_by" json:"check_in_by"`
	CheckInMethod  CheckInMethod `db:"check_in_method" json:"check_in_method"`
	CheckOutTime   *time.Time    `db:"check_out_time" json:"check_out_time,omitempty"`
	CheckOutBy     *string       `db:"check_out_by" json:"check_out_by,omitempty"`
	Notes          string        `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

func (a *Attendance) CheckOut(actor string, now time.Time) error {
	if a.CheckOutTime != nil {
		return fmt.Errorf("%w: already checked out", ErrInvalidTransition)
	}
	if now.Before(a.CheckInTime) {
		return fmt.Errorf("%w: check-out precedes check-in", ErrInvalidTransition)
	}
	a.CheckOutTime = &now
	a.CheckOutBy = &actor
	return nil
}

// Duration is the time between check-in and check-out, rounded to minutes.
func (a *Attendance) Duration() (time.Duration, bool) {
	if a.CheckOutTime == nil {
		return 0, false
	}
	return a.CheckOutTime.Sub(a.CheckInTime).Round(time.Minute), true
}

// AttendanceRow is an attendance record joined with the participant for
// listings and exports.
type AttendanceRow struct {
	Attendance
	RegistrationNumber string `json:"registration_number"`
	UserName           string `json:"user_name"`
	UserEmail          string `json:"user_email"`
	UserPhone          string `json:"user_phone"`
	UserCollege        string `json:"user_college"`
}
