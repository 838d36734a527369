package repo

import (
	"context"
	"fmt"

	"symposium/internal/model"
)

const userColumns = `id, name, email, phone, college, department, year, role, password_hash, is_active, created_at, updated_at,
	reset_token_hash, reset_token_expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.College, &u.Department, &u.Year,
		&u.Role, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
		&u.ResetTokenHash, &u.ResetTokenExpiresAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Postgres) CreateUser(ctx context.Context, u *model.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, u.ID, u.Name, u.Email, u.Phone, u.College, u.Department, u.Year,
		u.Role, u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt,
		u.ResetTokenHash, u.ResetTokenExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *Postgres) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "failed to get user %s", id)
	}
	return u, nil
}

func (r *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, notFoundOr(err, "failed to get user by email")
	}
	return u, nil
}

// GetUserByResetToken looks a user up by the hash of a pending reset
// token. Expiry is left to the caller.
func (r *Postgres) GetUserByResetToken(ctx context.Context, hash string) (*model.User, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1`, hash))
	if err != nil {
		return nil, notFoundOr(err, "failed to get user by reset token")
	}
	return u, nil
}

func (r *Postgres) UpdateUser(ctx context.Context, u *model.User) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET name = $2, phone = $3, college = $4, department = $5, year = $6,
		    role = $7, password_hash = $8, is_active = $9, updated_at = $10,
		    reset_token_hash = $11, reset_token_expires_at = $12
		WHERE id = $1
	`, u.ID, u.Name, u.Phone, u.College, u.Department, u.Year,
		u.Role, u.PasswordHash, u.IsActive, u.UpdatedAt,
		u.ResetTokenHash, u.ResetTokenExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOneRow(res)
}

func (r *Postgres) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
