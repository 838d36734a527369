package model

import (
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
	RoleVolunteer   Role = "volunteer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleAdmin, RoleVolunteer:
		return true
	}
	return false
}

type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	College      string    `db:"college" json:"college,omitempty"`
	Department   string    `db:"department" json:"department,omitempty"`
	Year         int       `db:"year" json:"year,omitempty"`
	Role         Role      `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// ResetTokenHash is the SHA-256 of the outstanding password reset
	// token, empty when none is pending.
	ResetTokenHash      string     `db:"reset_token_hash" json:"-"`
	ResetTokenExpiresAt *time.Time `db:"reset_token_expires_at" json:"-"`
}

func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleVolunteer
}

// Amount is a whole-rupee sum. The gateway works in paise.
type Amount int64

var ErrNegativeAmount = errors.New("amount cannot be negative")

func NewAmount(v int64) (Amount, error) {
	if v < 0 {
		return 0, ErrNegativeAmount
	}
	return Amount(v), nil
}

func (a Amount) Paise() int64 {
	return int64(a) * 100
}

type TargetKind string

const (
	TargetEvent    TargetKind = "event"
	TargetWorkshop TargetKind = "workshop"
)

// Target names exactly one catalog item. Build it with EventTarget or
// WorkshopTarget; the zero value is not a valid target.
type Target struct {
	Kind TargetKind `json:"type"`
	ID   string     `json:"id"`
}

func EventTarget(id string) Target {
	return Target{Kind: TargetEvent, ID: id}
}

func WorkshopTarget(id string) Target {
	return Target{Kind: TargetWorkshop, ID: id}
}

var ErrInvalidTarget = errors.New("registration must reference exactly one event or workshop")

func ParseTarget(kind, id string) (Target, error) {
	if id == "" {
		return Target{}, ErrInvalidTarget
	}
	switch TargetKind(kind) {
	case TargetEvent:
		return EventTarget(id), nil
	case TargetWorkshop:
		return WorkshopTarget(id), nil
	}
	return Target{}, fmt.Errorf("%w: unknown type %q", ErrInvalidTarget, kind)
}

func (t Target) IsZero() bool {
	return t.ID == ""
}

func (t Target) String() string {
	return string(t.Kind) + ":" + t.ID
}

func (t Target) RegistrationPrefix() string {
	if t.Kind == TargetWorkshop {
		return "WORK"
	}
	return "SHACK"
}

type ListingStatus string

const (
	ListingUpcoming  ListingStatus = "upcoming"
	ListingOngoing   ListingStatus = "ongoing"
	ListingCompleted ListingStatus = "completed"
	ListingCancelled ListingStatus = "cancelled"
)

type EventCategory string

const (
	CategoryTechnical    EventCategory = "technical"
	CategoryNonTechnical EventCategory = "non-technical"
	CategorySpecial      EventCategory = "special"
)

type Event struct {
	ID                   string        `db:"id" json:"id"`
	Name                 string        `db:"name" json:"name"`
	Description          string        `db:"description" json:"description"`
	Category             EventCategory `db:"category" json:"category"`
	IsTeam               bool          `db:"is_team" json:"is_team"`
	TeamSizeMin          int           `db:"team_size_min" json:"team_size_min,omitempty"`
	TeamSizeMax          int           `db:"team_size_max" json:"team_size_max,omitempty"`
	Venue                string        `db:"venue" json:"venue"`
	Date                 time.Time     `db:"date" json:"date"`
	StartTime            string        `db:"start_time" json:"start_time"`
	EndTime              string        `db:"end_time" json:"end_time"`
	RegistrationFee      Amount        `db:"registration_fee" json:"registration_fee"`
	MaxParticipants      *int          `db:"max_participants" json:"max_participants,omitempty"`
	CurrentParticipants  int           `db:"current_participants" json:"current_participants"`
	Status               ListingStatus `db:"status" json:"status"`
	IsActive             bool          `db:"is_active" json:"is_active"`
	RegistrationDeadline time.Time     `db:"registration_deadline" json:"registration_deadline"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
}

type WorkshopSession struct {
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Topic     string    `json:"topic,omitempty"`
}

type Workshop struct {
	ID                   string            `db:"id" json:"id"`
	Title                string            `db:"title" json:"title"`
	Description          string            `db:"description" json:"description"`
	Instructor           string            `db:"instructor" json:"instructor"`
	DurationHours        int               `db:"duration_hours" json:"duration_hours"`
	Schedule             []WorkshopSession `db:"schedule" json:"schedule"`
	Venue                string            `db:"venue" json:"venue"`
	RegistrationFee      Amount            `db:"registration_fee" json:"registration_fee"`
	MaxParticipants      int               `db:"max_participants" json:"max_participants"`
	CurrentParticipants  int               `db:"current_participants" json:"current_participants"`
	Status               ListingStatus     `db:"status" json:"status"`
	IsActive             bool              `db:"is_active" json:"is_active"`
	RegistrationDeadline time.Time         `db:"registration_deadline" json:"registration_deadline"`
	Certificate          bool              `db:"certificate" json:"certificate"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`
}

func (w *Workshop) StartsAt() time.Time {
	if len(w.Schedule) == 0 {
		return time.Time{}
	}
	first := w.Schedule[0].Date
	for _, s := range w.Schedule[1:] {
		if s.Date.Before(first) {
			first = s.Date
		}
	}
	return first
}

// Listing is the part of an event or workshop the registration and
// attendance flows care about.
type Listing struct {
	Target               Target
	Name                 string
	Venue                string
	Fee                  Amount
	MaxParticipants      *int
	CurrentParticipants  int
	StartsAt             time.Time
	RegistrationDeadline time.Time
	Status               ListingStatus
	IsActive             bool
	IsTeam               bool
	TeamSizeMin          int
	TeamSizeMax          int
}

func (e *Event) Listing() Listing {
	return Listing{
		Target:               EventTarget(e.ID),
		Name:                 e.Name,
		Venue:                e.Venue,
		Fee:                  e.RegistrationFee,
		MaxParticipants:      e.MaxParticipants,
		CurrentParticipants:  e.CurrentParticipants,
		StartsAt:             e.Date,
		RegistrationDeadline: e.RegistrationDeadline,
		Status:               e.Status,
		IsActive:             e.IsActive,
		IsTeam:               e.IsTeam,
		TeamSizeMin:          e.TeamSizeMin,
		TeamSizeMax:          e.TeamSizeMax,
	}
}

func (w *Workshop) Listing() Listing {
	max := w.MaxParticipants
	return Listing{
		Target:               WorkshopTarget(w.ID),
		Name:                 w.Title,
		Venue:                w.Venue,
		Fee:                  w.RegistrationFee,
		MaxParticipants:      &max,
		CurrentParticipants:  w.CurrentParticipants,
		StartsAt:             w.StartsAt(),
		RegistrationDeadline: w.RegistrationDeadline,
		Status:               w.Status,
		IsActive:             w.IsActive,
	}
}

func (l Listing) IsFull() bool {
	if l.MaxParticipants == nil || *l.MaxParticipants <= 0 {
		return false
	}
	return l.CurrentParticipants >= *l.MaxParticipants
}

func (l Listing) IsRegistrationOpen(now time.Time) bool {
	return l.IsActive && l.Status == ListingUpcoming && now.Before(l.RegistrationDeadline)
}

func (l Listing) AvailableSeats() *int {
	if l.MaxParticipants == nil || *l.MaxParticipants <= 0 {
		return nil
	}
	left := *l.MaxParticipants - l.CurrentParticipants
	if left < 0 {
		left = 0
	}
	return &left
}
