package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"symposium/internal/model"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrCapacityFull = errors.New("no seats left")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

type RegistrationFilter struct {
	UserID string
	Status model.RegistrationStatus
	Target *model.Target
}

type PaymentFilter struct {
	UserID string
	Status model.PaymentStatus
}

type AttendanceFilter struct {
	UserID string
	Target *model.Target
}

type EventFilter struct {
	Category        model.EventCategory
	IncludeInactive bool
}

type Repository interface {
	// InTx runs fn inside one transaction. Single-row reads made through
	// the transactional repository lock the row until commit.
	InTx(ctx context.Context, fn func(Repository) error) error
	NextSequence(ctx context.Context, name string) (int, error)

	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByResetToken(ctx context.Context, hash string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)

	CreateEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]model.Event, error)
	CreateWorkshop(ctx context.Context, w *model.Workshop) error
	UpdateWorkshop(ctx context.Context, w *model.Workshop) error
	GetWorkshopByID(ctx context.Context, id string) (*model.Workshop, error)
	ListWorkshops(ctx context.Context, includeInactive bool) ([]model.Workshop, error)
	GetListing(ctx context.Context, t model.Target) (*model.Listing, error)
	ReserveSeat(ctx context.Context, t model.Target) error
	ReleaseSeat(ctx context.Context, t model.Target) error

	CreateRegistration(ctx context.Context, r *model.Registration) error
	GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error)
	GetRegistrationByNumber(ctx context.Context, number string) (*model.Registration, error)
	UpdateRegistration(ctx context.Context, r *model.Registration) error
	ListRegistrations(ctx context.Context, f RegistrationFilter) ([]model.Registration, error)
	HasActiveRegistration(ctx context.Context, userID string, t model.Target) (bool, error)

	CreatePayment(ctx context.Context, p *model.Payment) error
	GetPaymentByID(ctx context.Context, id string) (*model.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	GetPaymentByGatewayPaymentID(ctx context.Context, paymentID string) (*model.Payment, error)
	UpdatePayment(ctx context.Context, p *model.Payment) error
	ListPayments(ctx context.Context, f PaymentFilter) ([]model.Payment, error)

	// InsertAttendance reports false when a row for the same registration
	// and target already exists.
	InsertAttendance(ctx context.Context, a *model.Attendance) (bool, error)
	GetAttendance(ctx context.Context, registrationID string, t model.Target) (*model.Attendance, error)
	GetAttendanceByID(ctx context.Context, id string) (*model.Attendance, error)
	UpdateAttendance(ctx context.Context, a *model.Attendance) error
	ListAttendance(ctx context.Context, f AttendanceFilter) ([]model.AttendanceRow, error)

	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implements Repository over wbf/dbpg.
type Postgres struct {
	db  *dbpg.DB
	q   querier
	tx  *sql.Tx
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (*Postgres, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &Postgres{db: db, q: db, log: log}, nil
}

func (r *Postgres) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.Master.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *Postgres) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Postgres{db: r.db, q: tx, tx: tx, log: r.log}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// writer returns the handle for statements that write and read back rows.
// dbpg sends QueryRowContext to a replica when one is configured.
func (r *Postgres) writer() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db.Master
}

func (r *Postgres) NextSequence(ctx context.Context, name string) (int, error) {
	var value int
	err := r.writer().QueryRowContext(ctx, `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return value, nil
}

// forUpdate locks rows read inside a transaction.
func (r *Postgres) forUpdate() string {
	if r.tx != nil {
		return " FOR UPDATE"
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// isUUID reports whether s can be bound to a uuid column. Lookups by a
// malformed id are answered with ErrNotFound without a round trip.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func targetColumns(t model.Target) (eventID, workshopID *string) {
	id := t.ID
	if t.Kind == model.TargetWorkshop {
		return nil, &id
	}
	return &id, nil
}

func targetFrom(kind string, eventID, workshopID *string) model.Target {
	if model.TargetKind(kind) == model.TargetWorkshop && workshopID != nil {
		return model.WorkshopTarget(*workshopID)
	}
	if eventID != nil {
		return model.EventTarget(*eventID)
	}
	return model.Target{Kind: model.TargetKind(kind)}
}

// whereBuilder accumulates AND-ed conditions with positional args. empty
// is set once an id condition can match nothing.
type whereBuilder struct {
	conds []string
	args  []any
	empty bool
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

// addID adds a condition on a uuid column.
func (w *whereBuilder) addID(cond, id string) {
	if !isUUID(id) {
		w.empty = true
		return
	}
	w.add(cond, id)
}

func (w *whereBuilder) addTarget(prefix string, t *model.Target) {
	if t == nil {
		return
	}
	if t.Kind == model.TargetWorkshop {
		w.addID(prefix+"workshop_id = $%d", t.ID)
		return
	}
	w.addID(prefix+"event_id = $%d", t.ID)
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	s := " WHERE " + w.conds[0]
	for _, c := range w.conds[1:] {
		s += " AND " + c
	}
	return s
}

var _ Repository = (*Postgres)(nil)

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
