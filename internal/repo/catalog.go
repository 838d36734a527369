package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"symposium/internal/model"
)

const eventColumns = `id, name, description, category, is_team, team_size_min, team_size_max, venue, date,
	start_time, end_time, registration_fee, max_participants, current_participants, status, is_active,
	registration_deadline, created_at, updated_at`

const workshopColumns = `id, title, description, instructor, duration_hours, schedule, venue, registration_fee,
	max_participants, current_participants, status, is_active, registration_deadline, certificate,
	created_at, updated_at`

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	if err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Category, &e.IsTeam, &e.TeamSizeMin, &e.TeamSizeMax,
		&e.Venue, &e.Date, &e.StartTime, &e.EndTime, &e.RegistrationFee, &e.MaxParticipants,
		&e.CurrentParticipants, &e.Status, &e.IsActive, &e.RegistrationDeadline, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanWorkshop(row rowScanner) (*model.Workshop, error) {
	var (
		w        model.Workshop
		schedule []byte
	)
	if err := row.Scan(
		&w.ID, &w.Title, &w.Description, &w.Instructor, &w.DurationHours, &schedule, &w.Venue,
		&w.RegistrationFee, &w.MaxParticipants, &w.CurrentParticipants, &w.Status, &w.IsActive,
		&w.RegistrationDeadline, &w.Certificate, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &w.Schedule); err != nil {
			return nil, fmt.Errorf("failed to decode workshop schedule: %w", err)
		}
	}
	return &w, nil
}

func (r *Postgres) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, e.ID, e.Name, e.Description, e.Category, e.IsTeam, e.TeamSizeMin, e.TeamSizeMax,
		e.Venue, e.Date, e.StartTime, e.EndTime, e.RegistrationFee, e.MaxParticipants,
		e.CurrentParticipants, e.Status, e.IsActive, e.RegistrationDeadline, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// UpdateEvent leaves current_participants alone; seats move only through
// ReserveSeat and ReleaseSeat.
func (r *Postgres) UpdateEvent(ctx context.Context, e *model.Event) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE events
		SET name = $2, description = $3, category = $4, is_team = $5, team_size_min = $6, team_size_max = $7,
		    venue = $8, date = $9, start_time = $10, end_time = $11, registration_fee = $12,
		    max_participants = $13, status = $14, is_active = $15, registration_deadline = $16, updated_at = $17
		WHERE id = $1
	`, e.ID, e.Name, e.Description, e.Category, e.IsTeam, e.TeamSizeMin, e.TeamSizeMax,
		e.Venue, e.Date, e.StartTime, e.EndTime, e.RegistrationFee, e.MaxParticipants,
		e.Status, e.IsActive, e.RegistrationDeadline, e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update event: %w", err)
	}
	return expectOneRow(res)
}

func (r *Postgres) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	e, err := scanEvent(r.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "failed to get event %s", id)
	}
	return e, nil
}

func (r *Postgres) ListEvents(ctx context.Context, f EventFilter) ([]model.Event, error) {
	var w whereBuilder
	if !f.IncludeInactive {
		w.add("is_active = $%d", true)
	}
	if f.Category != "" {
		w.add("category = $%d", f.Category)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+eventColumns+` FROM events`+w.String()+` ORDER BY date ASC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *Postgres) CreateWorkshop(ctx context.Context, w *model.Workshop) error {
	schedule, err := json.Marshal(w.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode workshop schedule: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO workshops (`+workshopColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, w.ID, w.Title, w.Description, w.Instructor, w.DurationHours, string(schedule), w.Venue,
		w.RegistrationFee, w.MaxParticipants, w.CurrentParticipants, w.Status, w.IsActive,
		w.RegistrationDeadline, w.Certificate, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert workshop: %w", err)
	}
	return nil
}

func (r *Postgres) UpdateWorkshop(ctx context.Context, w *model.Workshop) error {
	schedule, err := json.Marshal(w.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode workshop schedule: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE workshops
		SET title = $2, description = $3, instructor = $4, duration_hours = $5, schedule = $6::jsonb,
		    venue = $7, registration_fee = $8, max_participants = $9, status = $10, is_active = $11,
		    registration_deadline = $12, certificate = $13, updated_at = $14
		WHERE id = $1
	`, w.ID, w.Title, w.Description, w.Instructor, w.DurationHours, string(schedule), w.Venue,
		w.RegistrationFee, w.MaxParticipants, w.Status, w.IsActive, w.RegistrationDeadline,
		w.Certificate, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update workshop: %w", err)
	}
	return expectOneRow(res)
}

func (r *Postgres) GetWorkshopByID(ctx context.Context, id string) (*model.Workshop, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	w, err := scanWorkshop(r.q.QueryRowContext(ctx, `SELECT `+workshopColumns+` FROM workshops WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "failed to get workshop %s", id)
	}
	return w, nil
}

func (r *Postgres) ListWorkshops(ctx context.Context, includeInactive bool) ([]model.Workshop, error) {
	var w whereBuilder
	if !includeInactive {
		w.add("is_active = $%d", true)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+workshopColumns+` FROM workshops`+w.String()+` ORDER BY registration_deadline ASC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get workshops: %w", err)
	}
	defer rows.Close()

	var workshops []model.Workshop
	for rows.Next() {
		ws, err := scanWorkshop(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workshop: %w", err)
		}
		workshops = append(workshops, *ws)
	}
	return workshops, rows.Err()
}

func (r *Postgres) GetListing(ctx context.Context, t model.Target) (*model.Listing, error) {
	switch t.Kind {
	case model.TargetEvent:
		e, err := r.GetEventByID(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		l := e.Listing()
		return &l, nil
	case model.TargetWorkshop:
		w, err := r.GetWorkshopByID(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		l := w.Listing()
		return &l, nil
	}
	return nil, model.ErrInvalidTarget
}

// ReserveSeat increments the participant counter only while it is below
// the cap, in a single statement.
func (r *Postgres) ReserveSeat(ctx context.Context, t model.Target) error {
	var query string
	switch t.Kind {
	case model.TargetEvent:
		query = `
			UPDATE events SET current_participants = current_participants + 1, updated_at = NOW()
			WHERE id = $1 AND (max_participants IS NULL OR max_participants <= 0 OR current_participants < max_participants)`
	case model.TargetWorkshop:
		query = `
			UPDATE workshops SET current_participants = current_participants + 1, updated_at = NOW()
			WHERE id = $1 AND (max_participants <= 0 OR current_participants < max_participants)`
	default:
		return model.ErrInvalidTarget
	}
	if !isUUID(t.ID) {
		return ErrNotFound
	}

	res, err := r.q.ExecContext(ctx, query, t.ID)
	if err != nil {
		return fmt.Errorf("failed to reserve seat on %s: %w", t, err)
	}
	if err := expectOneRow(res); err != nil {
		if _, lerr := r.GetListing(ctx, t); lerr != nil {
			return lerr
		}
		return ErrCapacityFull
	}
	return nil
}

func (r *Postgres) ReleaseSeat(ctx context.Context, t model.Target) error {
	table := "events"
	if t.Kind == model.TargetWorkshop {
		table = "workshops"
	}
	if !isUUID(t.ID) {
		return ErrNotFound
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE `+table+` SET current_participants = GREATEST(current_participants - 1, 0), updated_at = NOW()
		WHERE id = $1
	`, t.ID)
	if err != nil {
		return fmt.Errorf("failed to release seat on %s: %w", t, err)
	}
	return expectOneRow(res)
}
