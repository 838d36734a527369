package dto

import (
	"time"

	"symposium/internal/model"
)

type RegisterUserRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Phone      string `json:"phone" validate:"required,phone"`
	College    string `json:"college" validate:"max=255"`
	Department string `json:"department" validate:"max=255"`
	Year       int    `json:"year" validate:"omitempty,min=1,max=5"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,phone"`
	College    *string `json:"college" validate:"omitempty,max=255"`
	Department *string `json:"department" validate:"omitempty,max=255"`
	Year       *int    `json:"year" validate:"omitempty,min=1,max=5"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

type EventRequest struct {
	Name                 string    `json:"name" validate:"required,max=200"`
	Description          string    `json:"description" validate:"max=5000"`
	Category             string    `json:"category" validate:"required,oneof=technical non-technical special"`
	IsTeam               bool      `json:"is_team"`
	TeamSizeMin          int       `json:"team_size_min" validate:"gte=0"`
	TeamSizeMax          int       `json:"team_size_max" validate:"gte=0"`
	Venue                string    `json:"venue" validate:"max=255"`
	Date                 time.Time `json:"date" validate:"required"`
	StartTime            string    `json:"start_time" validate:"max=10"`
	EndTime              string    `json:"end_time" validate:"max=10"`
	RegistrationFee      int64     `json:"registration_fee" validate:"gte=0"`
	MaxParticipants      *int      `json:"max_participants" validate:"omitempty,gte=0"`
	Status               string    `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	IsActive             *bool     `json:"is_active"`
	RegistrationDeadline time.Time `json:"registration_deadline" validate:"required"`
}

type WorkshopSessionRequest struct {
	Date      time.Time `json:"date" validate:"required"`
	StartTime string    `json:"start_time" validate:"max=10"`
	EndTime   string    `json:"end_time" validate:"max=10"`
	Topic     string    `json:"topic" validate:"max=255"`
}

type WorkshopRequest struct {
	Title                string                   `json:"title" validate:"required,max=200"`
	Description          string                   `json:"description" validate:"max=5000"`
	Instructor           string                   `json:"instructor" validate:"max=255"`
	DurationHours        int                      `json:"duration_hours" validate:"gte=0"`
	Schedule             []WorkshopSessionRequest `json:"schedule" validate:"required,min=1,dive"`
	Venue                string                   `json:"venue" validate:"max=255"`
	RegistrationFee      int64                    `json:"registration_fee" validate:"gte=0"`
	MaxParticipants      int                      `json:"max_participants" validate:"positive"`
	Status               string                   `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	IsActive             *bool                    `json:"is_active"`
	RegistrationDeadline time.Time                `json:"registration_deadline" validate:"required"`
	Certificate          *bool                    `json:"certificate"`
}

type TeamMemberRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,phone"`
	College    string `json:"college" validate:"max=255"`
	RollNumber string `json:"roll_number" validate:"max=50"`
}

type CreateRegistrationRequest struct {
	Type                  string              `json:"type" validate:"required,oneof=event workshop"`
	EventID               string              `json:"event_id"`
	WorkshopID            string              `json:"workshop_id"`
	TeamName              string              `json:"team_name" validate:"max=100"`
	TeamMembers           []TeamMemberRequest `json:"team_members" validate:"omitempty,max=10,dive"`
	AccommodationRequired bool                `json:"accommodation_required"`
	Notes                 string              `json:"notes" validate:"max=1000"`
}

// Target resolves the discriminator and the matching id. Supplying both
// ids, or the id that does not match the type, is rejected.
func (r CreateRegistrationRequest) Target() (model.Target, error) {
	return targetOf(r.Type, r.EventID, r.WorkshopID)
}

func (r CreateRegistrationRequest) Members() []model.TeamMember {
	out := make([]model.TeamMember, 0, len(r.TeamMembers))
	for _, m := range r.TeamMembers {
		out = append(out, model.TeamMember(m))
	}
	return out
}

type CancelRegistrationRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CreateOrderRequest struct {
	RegistrationID string `json:"registration_id" validate:"required"`
}

// VerifyPaymentRequest carries the fields Razorpay checkout hands back to
// the browser, under their checkout names.
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId" validate:"required"`
	RazorpayPaymentID string `json:"razorpayPaymentId" validate:"required"`
	RazorpaySignature string `json:"razorpaySignature" validate:"required"`
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ManualVerifyRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// CheckInRequest identifies the attendee by the scanned entry token or,
// at a manual desk, by the registration number.
type CheckInRequest struct {
	EntryToken         string `json:"entry_token" validate:"omitempty,max=200"`
	RegistrationNumber string `json:"registration_number" validate:"omitempty,regnumber"`
	Type               string `json:"type" validate:"required,oneof=event workshop"`
	EventID            string `json:"event_id"`
	WorkshopID         string `json:"workshop_id"`
	Method             string `json:"method" validate:"omitempty,oneof=qr manual"`
	Notes              string `json:"notes" validate:"max=500"`
}

func (r CheckInRequest) Target() (model.Target, error) {
	return targetOf(r.Type, r.EventID, r.WorkshopID)
}

func targetOf(kind, eventID, workshopID string) (model.Target, error) {
	if eventID != "" && workshopID != "" {
		return model.Target{}, model.ErrInvalidTarget
	}
	id := eventID
	if model.TargetKind(kind) == model.TargetWorkshop {
		if eventID != "" {
			return model.Target{}, model.ErrInvalidTarget
		}
		id = workshopID
	} else if workshopID != "" {
		return model.Target{}, model.ErrInvalidTarget
	}
	return model.ParseTarget(kind, id)
}
