package service

import (
	"context"
	"strings"

	"symposium/internal/dto"
	"symposium/internal/model"
	"symposium/internal/repo"
)

// EventView is an event together with its remaining seats.
type EventView struct {
	model.Event
	AvailableSeats *int `json:"available_seats,omitempty"`
}

type WorkshopView struct {
	model.Workshop
	AvailableSeats *int `json:"available_seats,omitempty"`
}

func eventView(e *model.Event) EventView {
	l := e.Listing()
	return EventView{Event: *e, AvailableSeats: l.AvailableSeats()}
}

func workshopView(w *model.Workshop) WorkshopView {
	l := w.Listing()
	return WorkshopView{Workshop: *w, AvailableSeats: l.AvailableSeats()}
}

func (s *Service) ListEvents(ctx context.Context, category string, includeInactive bool) ([]EventView, error) {
	events, err := s.repo.ListEvents(ctx, repo.EventFilter{
		Category:        model.EventCategory(category),
		IncludeInactive: includeInactive,
	})
	if err != nil {
		return nil, err
	}
	out := make([]EventView, 0, len(events))
	for i := range events {
		out = append(out, eventView(&events[i]))
	}
	return out, nil
}

// GetEvent hides inactive events from everyone but staff.
func (s *Service) GetEvent(ctx context.Context, id string, includeInactive bool) (*EventView, error) {
	e, err := s.repo.GetEventByID(ctx, id)
	if err != nil {
		return nil, classify(err, "event")
	}
	if !e.IsActive && !includeInactive {
		return nil, fail(ErrNotFound, "event not found")
	}
	v := eventView(e)
	return &v, nil
}

func validateEvent(req dto.EventRequest) error {
	if req.RegistrationDeadline.After(req.Date) {
		return fail(ErrValidation, "registration deadline must not be after the event date")
	}
	if req.IsTeam {
		if req.TeamSizeMin < 1 || req.TeamSizeMax < req.TeamSizeMin {
			return fail(ErrValidation, "team events need 1 <= team_size_min <= team_size_max")
		}
	}
	return nil
}

func (s *Service) CreateEvent(ctx context.Context, req dto.EventRequest) (*model.Event, error) {
	if err := validateEvent(req); err != nil {
		return nil, err
	}
	now := s.now()
	if !req.Date.After(now) {
		return nil, fail(ErrValidation, "event date must be in the future")
	}
	e := &model.Event{
		ID:        newID(),
		CreatedAt: now,
		IsActive:  true,
		Status:    model.ListingUpcoming,
	}
	if err := applyEvent(e, req); err != nil {
		return nil, err
	}
	e.UpdatedAt = now

	if err := s.repo.CreateEvent(ctx, e); err != nil {
		return nil, classify(err, "event "+e.Name)
	}
	s.log.Info().Str("event_id", e.ID).Str("name", e.Name).Msg("event created")
	return e, nil
}

func (s *Service) UpdateEvent(ctx context.Context, id string, req dto.EventRequest) (*model.Event, error) {
	if err := validateEvent(req); err != nil {
		return nil, err
	}
	e, err := s.repo.GetEventByID(ctx, id)
	if err != nil {
		return nil, classify(err, "event")
	}
	if err := applyEvent(e, req); err != nil {
		return nil, err
	}
	e.UpdatedAt = s.now()
	if err := s.repo.UpdateEvent(ctx, e); err != nil {
		return nil, classify(err, "event "+e.Name)
	}
	return e, nil
}

// DeleteEvent is a soft delete.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	e, err := s.repo.GetEventByID(ctx, id)
	if err != nil {
		return classify(err, "event")
	}
	e.IsActive = false
	e.UpdatedAt = s.now()
	if err := s.repo.UpdateEvent(ctx, e); err != nil {
		return classify(err, "event")
	}
	s.log.Info().Str("event_id", id).Msg("event deactivated")
	return nil
}

func applyEvent(e *model.Event, req dto.EventRequest) error {
	fee, err := model.NewAmount(req.RegistrationFee)
	if err != nil {
		return classify(err, "event")
	}
	e.Name = strings.TrimSpace(req.Name)
	e.Description = req.Description
	e.Category = model.EventCategory(req.Category)
	e.IsTeam = req.IsTeam
	e.TeamSizeMin = req.TeamSizeMin
	e.TeamSizeMax = req.TeamSizeMax
	if !req.IsTeam {
		e.TeamSizeMin, e.TeamSizeMax = 1, 1
	}
	e.Venue = req.Venue
	e.Date = req.Date
	e.StartTime = req.StartTime
	e.EndTime = req.EndTime
	e.RegistrationFee = fee
	e.MaxParticipants = req.MaxParticipants
	if req.Status != "" {
		e.Status = model.ListingStatus(req.Status)
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}
	e.RegistrationDeadline = req.RegistrationDeadline
	return nil
}

func (s *Service) ListWorkshops(ctx context.Context, includeInactive bool) ([]WorkshopView, error) {
	workshops, err := s.repo.ListWorkshops(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]WorkshopView, 0, len(workshops))
	for i := range workshops {
		out = append(out, workshopView(&workshops[i]))
	}
	return out, nil
}

func (s *Service) GetWorkshop(ctx context.Context, id string, includeInactive bool) (*WorkshopView, error) {
	w, err := s.repo.GetWorkshopByID(ctx, id)
	if err != nil {
		return nil, classify(err, "workshop")
	}
	if !w.IsActive && !includeInactive {
		return nil, fail(ErrNotFound, "workshop not found")
	}
	v := workshopView(w)
	return &v, nil
}

func (s *Service) CreateWorkshop(ctx context.Context, req dto.WorkshopRequest) (*model.Workshop, error) {
	now := s.now()
	w := &model.Workshop{
		ID:          newID(),
		CreatedAt:   now,
		IsActive:    true,
		Status:      model.ListingUpcoming,
		Certificate: true,
	}
	if err := applyWorkshop(w, req); err != nil {
		return nil, err
	}
	w.UpdatedAt = now
	if err := validateWorkshop(w); err != nil {
		return nil, err
	}
	if !w.StartsAt().After(now) {
		return nil, fail(ErrValidation, "workshop must start in the future")
	}

	if err := s.repo.CreateWorkshop(ctx, w); err != nil {
		return nil, classify(err, "workshop "+w.Title)
	}
	s.log.Info().Str("workshop_id", w.ID).Str("title", w.Title).Msg("workshop created")
	return w, nil
}

func (s *Service) UpdateWorkshop(ctx context.Context, id string, req dto.WorkshopRequest) (*model.Workshop, error) {
	w, err := s.repo.GetWorkshopByID(ctx, id)
	if err != nil {
		return nil, classify(err, "workshop")
	}
	if err := applyWorkshop(w, req); err != nil {
		return nil, err
	}
	w.UpdatedAt = s.now()
	if err := validateWorkshop(w); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateWorkshop(ctx, w); err != nil {
		return nil, classify(err, "workshop "+w.Title)
	}
	return w, nil
}

func (s *Service) DeleteWorkshop(ctx context.Context, id string) error {
	w, err := s.repo.GetWorkshopByID(ctx, id)
	if err != nil {
		return classify(err, "workshop")
	}
	w.IsActive = false
	w.UpdatedAt = s.now()
	if err := s.repo.UpdateWorkshop(ctx, w); err != nil {
		return classify(err, "workshop")
	}
	s.log.Info().Str("workshop_id", id).Msg("workshop deactivated")
	return nil
}

func validateWorkshop(w *model.Workshop) error {
	if w.RegistrationDeadline.After(w.StartsAt()) {
		return fail(ErrValidation, "registration deadline must not be after the first session")
	}
	return nil
}

func applyWorkshop(w *model.Workshop, req dto.WorkshopRequest) error {
	fee, err := model.NewAmount(req.RegistrationFee)
	if err != nil {
		return classify(err, "workshop")
	}
	w.Title = strings.TrimSpace(req.Title)
	w.Description = req.Description
	w.Instructor = req.Instructor
	w.DurationHours = req.DurationHours
	w.Schedule = make([]model.WorkshopSession, 0, len(req.Schedule))
	for _, sess := range req.Schedule {
		w.Schedule = append(w.Schedule, model.WorkshopSession(sess))
	}
	w.Venue = req.Venue
	w.RegistrationFee = fee
	w.MaxParticipants = req.MaxParticipants
	if req.Status != "" {
		w.Status = model.ListingStatus(req.Status)
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
	w.RegistrationDeadline = req.RegistrationDeadline
	if req.Certificate != nil {
		w.Certificate = *req.Certificate
	}
	return nil
}

// SeatAvailable is an advisory read; the authoritative check is the
// bounded increment made at confirmation.
func (s *Service) SeatAvailable(ctx context.Context, t model.Target) (bool, error) {
	l, err := s.repo.GetListing(ctx, t)
	if err != nil {
		return false, classify(err, string(t.Kind))
	}
	return !l.IsFull(), nil
}
