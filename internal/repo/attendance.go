package repo

import (
	"context"
	"fmt"

	"symposium/internal/model"
)

const attendanceColumns = `a.id, a.registration_id, a.user_id, a.type, a.event_id, a.workshop_id, a.check_in_time,
	a.check_in_by, a.check_in_method, a.check_out_time, a.check_out_by, a.notes, a.created_at`

func scanAttendance(row rowScanner, extra ...any) (*model.Attendance, error) {
	var (
		a                   model.Attendance
		kind                string
		eventID, workshopID *string
	)
	dest := []any{
		&a.ID, &a.RegistrationID, &a.UserID, &kind, &eventID, &workshopID, &a.CheckInTime,
		&a.CheckInBy, &a.CheckInMethod, &a.CheckOutTime, &a.CheckOutBy, &a.Notes, &a.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Target = targetFrom(kind, eventID, workshopID)
	return &a, nil
}

// InsertAttendance relies on the unique (registration, target) index so
// that two gates scanning the same ticket at once record a single row.
func (r *Postgres) InsertAttendance(ctx context.Context, a *model.Attendance) (bool, error) {
	eventID, workshopID := targetColumns(a.Target)
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO attendance (id, registration_id, user_id, type, event_id, workshop_id, check_in_time,
		                        check_in_by, check_in_method, check_out_time, check_out_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT DO NOTHING
	`, a.ID, a.RegistrationID, a.UserID, a.Target.Kind, eventID, workshopID, a.CheckInTime,
		a.CheckInBy, a.CheckInMethod, a.CheckOutTime, a.CheckOutBy, a.Notes, a.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (r *Postgres) GetAttendance(ctx context.Context, registrationID string, t model.Target) (*model.Attendance, error) {
	var w whereBuilder
	w.addID("a.registration_id = $%d", registrationID)
	w.addTarget("a.", &t)
	if w.empty {
		return nil, ErrNotFound
	}

	a, err := scanAttendance(r.q.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendance a`+w.String(), w.args...))
	if err != nil {
		return nil, notFoundOr(err, "failed to get attendance for registration %s", registrationID)
	}
	return a, nil
}

func (r *Postgres) GetAttendanceByID(ctx context.Context, id string) (*model.Attendance, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	a, err := scanAttendance(r.q.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance a WHERE a.id = $1`+r.forUpdate(), id))
	if err != nil {
		return nil, notFoundOr(err, "failed to get attendance %s", id)
	}
	return a, nil
}

func (r *Postgres) UpdateAttendance(ctx context.Context, a *model.Attendance) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE attendance SET check_out_time = $2, check_out_by = $3, notes = $4 WHERE id = $1
	`, a.ID, a.CheckOutTime, a.CheckOutBy, a.Notes)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	return expectOneRow(res)
}

func (r *Postgres) ListAttendance(ctx context.Context, f AttendanceFilter) ([]model.AttendanceRow, error) {
	var w whereBuilder
	if f.UserID != "" {
		w.addID("a.user_id = $%d", f.UserID)
	}
	w.addTarget("a.", f.Target)
	if w.empty {
		return nil, nil
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+attendanceColumns+`, reg.registration_number, u.name, u.email, u.phone, u.college
		FROM attendance a
		JOIN registrations reg ON reg.id = a.registration_id
		JOIN users u ON u.id = a.user_id`+w.String()+`
		ORDER BY a.check_in_time DESC
	`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	defer rows.Close()

	var list []model.AttendanceRow
	for rows.Next() {
		var row model.AttendanceRow
		a, err := scanAttendance(rows, &row.RegistrationNumber, &row.UserName, &row.UserEmail, &row.UserPhone, &row.UserCollege)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		row.Attendance = *a
		list = append(list, row)
	}
	return list, rows.Err()
}
