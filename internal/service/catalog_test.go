package service

import (
	"testing"
	"time"

	"symposium/internal/dto"
)

func TestCreateEventRejects(t *testing.T) {
	f := newFixture(t)
	upcoming := t0.Add(10 * 24 * time.Hour)

	tests := []struct {
		name string
		req  dto.EventRequest
	}{
		{"negative fee", dto.EventRequest{Name: "Quiz", Category: "technical", Date: upcoming,
			RegistrationDeadline: upcoming.Add(-time.Hour), RegistrationFee: -1}},
		{"past date", dto.EventRequest{Name: "Quiz", Category: "technical", Date: t0.Add(-time.Hour),
			RegistrationDeadline: t0.Add(-2 * time.Hour)}},
		{"date now", dto.EventRequest{Name: "Quiz", Category: "technical", Date: t0,
			RegistrationDeadline: t0.Add(-time.Hour)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateEvent(f.ctx, tt.req)
			assertKind(t, err, ErrValidation)
		})
	}
}

func TestUpdateEventKeepsPastDates(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 100, nil)

	f.clock.Advance(30 * 24 * time.Hour)
	req := dto.EventRequest{
		Name:                 e.Name,
		Category:             string(e.Category),
		Date:                 e.Date,
		RegistrationDeadline: e.RegistrationDeadline,
		RegistrationFee:      150,
	}
	updated, err := f.svc.UpdateEvent(f.ctx, e.ID, req)
	if err != nil {
		t.Fatalf("UpdateEvent on a past event: %v", err)
	}
	if updated.RegistrationFee != 150 {
		t.Errorf("fee = %d, want 150", updated.RegistrationFee)
	}

	req.RegistrationFee = -5
	_, err = f.svc.UpdateEvent(f.ctx, e.ID, req)
	assertKind(t, err, ErrValidation)
}

func TestCreateWorkshopRejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateWorkshop(f.ctx, dto.WorkshopRequest{
		Title:                "Go",
		Schedule:             []dto.WorkshopSessionRequest{{Date: t0.AddDate(0, 0, 3)}},
		RegistrationFee:      -100,
		MaxParticipants:      10,
		RegistrationDeadline: t0.AddDate(0, 0, 1),
	})
	assertKind(t, err, ErrValidation)

	_, err = f.svc.CreateWorkshop(f.ctx, dto.WorkshopRequest{
		Title:                "Go",
		Schedule:             []dto.WorkshopSessionRequest{{Date: t0.AddDate(0, 0, -1)}},
		MaxParticipants:      10,
		RegistrationDeadline: t0.AddDate(0, 0, -2),
	})
	assertKind(t, err, ErrValidation)
}
