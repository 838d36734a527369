package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"symposium/internal/model"
)

const registrationColumns = `id, registration_number, user_id, type, event_id, workshop_id, team_name, team_members,
	accommodation_required, amount, payment_status, payment_id, status, entry_token, check_in_time, check_in_by,
	notes, cancelled_at, cancelled_by, cancellation_reason, created_at, updated_at`

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg                 model.Registration
		kind                string
		eventID, workshopID *string
		members             []byte
	)
	if err := row.Scan(
		&reg.ID, &reg.RegistrationNumber, &reg.UserID, &kind, &eventID, &workshopID, &reg.TeamName, &members,
		&reg.AccommodationRequired, &reg.Amount, &reg.PaymentStatus, &reg.PaymentID, &reg.Status, &reg.EntryToken,
		&reg.CheckInTime, &reg.CheckInBy, &reg.Notes, &reg.CancelledAt, &reg.CancelledBy, &reg.CancellationReason,
		&reg.CreatedAt, &reg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	reg.Target = targetFrom(kind, eventID, workshopID)
	if len(members) > 0 {
		if err := json.Unmarshal(members, &reg.TeamMembers); err != nil {
			return nil, fmt.Errorf("failed to decode team members: %w", err)
		}
	}
	return &reg, nil
}

func (r *Postgres) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	members, err := json.Marshal(reg.TeamMembers)
	if err != nil {
		return fmt.Errorf("failed to encode team members: %w", err)
	}
	eventID, workshopID := targetColumns(reg.Target)

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, reg.ID, reg.RegistrationNumber, reg.UserID, reg.Target.Kind, eventID, workshopID, reg.TeamName, string(members),
		reg.AccommodationRequired, reg.Amount, reg.PaymentStatus, reg.PaymentID, reg.Status, reg.EntryToken,
		reg.CheckInTime, reg.CheckInBy, reg.Notes, reg.CancelledAt, reg.CancelledBy, reg.CancellationReason,
		reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *Postgres) GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	reg, err := scanRegistration(r.q.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`+r.forUpdate(), id))
	if err != nil {
		return nil, notFoundOr(err, "failed to get registration %s", id)
	}
	return reg, nil
}

func (r *Postgres) GetRegistrationByNumber(ctx context.Context, number string) (*model.Registration, error) {
	if !model.IsRegistrationNumber(number) {
		return nil, ErrNotFound
	}
	reg, err := scanRegistration(r.q.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE registration_number = $1`+r.forUpdate(), number))
	if err != nil {
		return nil, notFoundOr(err, "failed to get registration %s", number)
	}
	return reg, nil
}

// UpdateRegistration writes the mutable lifecycle fields. Number, owner,
// target and amount are fixed at creation.
func (r *Postgres) UpdateRegistration(ctx context.Context, reg *model.Registration) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE registrations
		SET payment_status = $2, payment_id = $3, status = $4, check_in_time = $5, check_in_by = $6,
		    notes = $7, cancelled_at = $8, cancelled_by = $9, cancellation_reason = $10, updated_at = $11
		WHERE id = $1
	`, reg.ID, reg.PaymentStatus, reg.PaymentID, reg.Status, reg.CheckInTime, reg.CheckInBy,
		reg.Notes, reg.CancelledAt, reg.CancelledBy, reg.CancellationReason, reg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update registration: %w", err)
	}
	return expectOneRow(res)
}

func (r *Postgres) ListRegistrations(ctx context.Context, f RegistrationFilter) ([]model.Registration, error) {
	var w whereBuilder
	if f.UserID != "" {
		w.addID("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	w.addTarget("", f.Target)
	if w.empty {
		return nil, nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations`+w.String()+` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r *Postgres) HasActiveRegistration(ctx context.Context, userID string, t model.Target) (bool, error) {
	w := whereBuilder{}
	w.addID("user_id = $%d", userID)
	w.add("status <> $%d", model.RegistrationCancelled)
	w.addTarget("", &t)
	if w.empty {
		return false, nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations`+w.String()+`)`, w.args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check duplicate registration: %w", err)
	}
	return exists, nil
}
