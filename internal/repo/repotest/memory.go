// Package repotest provides an in-memory repo.Repository for service and
// handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"symposium/internal/model"
	"symposium/internal/repo"
)

type state struct {
	users         map[string]model.User
	events        map[string]model.Event
	workshops     map[string]model.Workshop
	registrations map[string]model.Registration
	payments      map[string]model.Payment
	attendance    map[string]model.Attendance
	counters      map[string]int
}

func newState() *state {
	return &state{
		users:         map[string]model.User{},
		events:        map[string]model.Event{},
		workshops:     map[string]model.Workshop{},
		registrations: map[string]model.Registration{},
		payments:      map[string]model.Payment{},
		attendance:    map[string]model.Attendance{},
		counters:      map[string]int{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.workshops {
		c.workshops[k] = v
	}
	for k, v := range s.registrations {
		c.registrations[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.attendance {
		c.attendance[k] = v
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	return c
}

type shared struct {
	mu sync.Mutex
	// txMu serialises transactions, standing in for row locks.
	txMu sync.Mutex
	st   *state
}

// Memory keeps every table in maps and emulates the unique constraints
// of the Postgres schema. A failed transaction restores the snapshot
// taken when it began.
type Memory struct {
	sh   *shared
	inTx bool
}

func New() *Memory {
	return &Memory{sh: &shared{st: newState()}}
}

func (m *Memory) lock() func() {
	m.sh.mu.Lock()
	return m.sh.mu.Unlock
}

func (m *Memory) InTx(ctx context.Context, fn func(repo.Repository) error) error {
	if m.inTx {
		return fn(m)
	}
	m.sh.txMu.Lock()
	defer m.sh.txMu.Unlock()

	unlock := m.lock()
	snapshot := m.sh.st.clone()
	unlock()

	if err := fn(&Memory{sh: m.sh, inTx: true}); err != nil {
		defer m.lock()()
		m.sh.st = snapshot
		return err
	}
	return nil
}

func (m *Memory) NextSequence(ctx context.Context, name string) (int, error) {
	defer m.lock()()
	m.sh.st.counters[name]++
	return m.sh.st.counters[name], nil
}

func (m *Memory) CreateUser(ctx context.Context, u *model.User) error {
	defer m.lock()()
	for _, other := range m.sh.st.users {
		if strings.EqualFold(other.Email, u.Email) {
			return repo.ErrDuplicate
		}
	}
	m.sh.st.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	defer m.lock()()
	u, ok := m.sh.st.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	defer m.lock()()
	for _, u := range m.sh.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Memory) GetUserByResetToken(ctx context.Context, hash string) (*model.User, error) {
	defer m.lock()()
	if hash == "" {
		return nil, repo.ErrNotFound
	}
	for _, u := range m.sh.st.users {
		if u.ResetTokenHash == hash {
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Memory) UpdateUser(ctx context.Context, u *model.User) error {
	defer m.lock()()
	if _, ok := m.sh.st.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	m.sh.st.users[u.ID] = *u
	return nil
}

func (m *Memory) ListUsers(ctx context.Context) ([]model.User, error) {
	defer m.lock()()
	out := make([]model.User, 0, len(m.sh.st.users))
	for _, u := range m.sh.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateEvent(ctx context.Context, e *model.Event) error {
	defer m.lock()()
	for _, other := range m.sh.st.events {
		if other.Name == e.Name {
			return repo.ErrDuplicate
		}
	}
	m.sh.st.events[e.ID] = *e
	return nil
}

func (m *Memory) UpdateEvent(ctx context.Context, e *model.Event) error {
	defer m.lock()()
	cur, ok := m.sh.st.events[e.ID]
	if !ok {
		return repo.ErrNotFound
	}
	for id, other := range m.sh.st.events {
		if id != e.ID && other.Name == e.Name {
			return repo.ErrDuplicate
		}
	}
	next := *e
	next.CurrentParticipants = cur.CurrentParticipants
	m.sh.st.events[e.ID] = next
	return nil
}

func (m *Memory) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	defer m.lock()()
	e, ok := m.sh.st.events[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &e, nil
}

func (m *Memory) ListEvents(ctx context.Context, f repo.EventFilter) ([]model.Event, error) {
	defer m.lock()()
	var out []model.Event
	for _, e := range m.sh.st.events {
		if !f.IncludeInactive && !e.IsActive {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) CreateWorkshop(ctx context.Context, w *model.Workshop) error {
	defer m.lock()()
	m.sh.st.workshops[w.ID] = *w
	return nil
}

func (m *Memory) UpdateWorkshop(ctx context.Context, w *model.Workshop) error {
	defer m.lock()()
	cur, ok := m.sh.st.workshops[w.ID]
	if !ok {
		return repo.ErrNotFound
	}
	next := *w
	next.CurrentParticipants = cur.CurrentParticipants
	m.sh.st.workshops[w.ID] = next
	return nil
}

func (m *Memory) GetWorkshopByID(ctx context.Context, id string) (*model.Workshop, error) {
	defer m.lock()()
	w, ok := m.sh.st.workshops[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &w, nil
}

func (m *Memory) ListWorkshops(ctx context.Context, includeInactive bool) ([]model.Workshop, error) {
	defer m.lock()()
	var out []model.Workshop
	for _, w := range m.sh.st.workshops {
		if includeInactive || w.IsActive {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationDeadline.Before(out[j].RegistrationDeadline) })
	return out, nil
}

func (m *Memory) GetListing(ctx context.Context, t model.Target) (*model.Listing, error) {
	defer m.lock()()
	return m.listing(t)
}

func (m *Memory) listing(t model.Target) (*model.Listing, error) {
	switch t.Kind {
	case model.TargetEvent:
		e, ok := m.sh.st.events[t.ID]
		if !ok {
			return nil, repo.ErrNotFound
		}
		l := e.Listing()
		return &l, nil
	case model.TargetWorkshop:
		w, ok := m.sh.st.workshops[t.ID]
		if !ok {
			return nil, repo.ErrNotFound
		}
		l := w.Listing()
		return &l, nil
	}
	return nil, model.ErrInvalidTarget
}

func (m *Memory) ReserveSeat(ctx context.Context, t model.Target) error {
	defer m.lock()()
	l, err := m.listing(t)
	if err != nil {
		return err
	}
	if l.IsFull() {
		return repo.ErrCapacityFull
	}
	m.adjustSeats(t, 1)
	return nil
}

func (m *Memory) ReleaseSeat(ctx context.Context, t model.Target) error {
	defer m.lock()()
	if _, err := m.listing(t); err != nil {
		return err
	}
	m.adjustSeats(t, -1)
	return nil
}

func (m *Memory) adjustSeats(t model.Target, delta int) {
	if t.Kind == model.TargetWorkshop {
		w := m.sh.st.workshops[t.ID]
		w.CurrentParticipants = max(w.CurrentParticipants+delta, 0)
		m.sh.st.workshops[t.ID] = w
		return
	}
	e := m.sh.st.events[t.ID]
	e.CurrentParticipants = max(e.CurrentParticipants+delta, 0)
	m.sh.st.events[t.ID] = e
}

func (m *Memory) CreateRegistration(ctx context.Context, r *model.Registration) error {
	defer m.lock()()
	for _, other := range m.sh.st.registrations {
		if other.ID == r.ID || other.RegistrationNumber == r.RegistrationNumber {
			return repo.ErrDuplicate
		}
	}
	m.sh.st.registrations[r.ID] = *r
	return nil
}

func (m *Memory) GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error) {
	defer m.lock()()
	r, ok := m.sh.st.registrations[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &r, nil
}

func (m *Memory) GetRegistrationByNumber(ctx context.Context, number string) (*model.Registration, error) {
	defer m.lock()()
	for _, r := range m.sh.st.registrations {
		if r.RegistrationNumber == number {
			return &r, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Memory) UpdateRegistration(ctx context.Context, r *model.Registration) error {
	defer m.lock()()
	if _, ok := m.sh.st.registrations[r.ID]; !ok {
		return repo.ErrNotFound
	}
	m.sh.st.registrations[r.ID] = *r
	return nil
}

func (m *Memory) ListRegistrations(ctx context.Context, f repo.RegistrationFilter) ([]model.Registration, error) {
	defer m.lock()()
	var out []model.Registration
	for _, r := range m.sh.st.registrations {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Target != nil && r.Target != *f.Target {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) HasActiveRegistration(ctx context.Context, userID string, t model.Target) (bool, error) {
	defer m.lock()()
	for _, r := range m.sh.st.registrations {
		if r.UserID == userID && r.Target == t && r.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreatePayment(ctx context.Context, p *model.Payment) error {
	defer m.lock()()
	for _, other := range m.sh.st.payments {
		switch {
		case other.ID == p.ID, other.TransactionID == p.TransactionID:
			return repo.ErrDuplicate
		case p.GatewayOrderID != "" && other.GatewayOrderID == p.GatewayOrderID:
			return repo.ErrDuplicate
		case p.GatewayPaymentID != "" && other.GatewayPaymentID == p.GatewayPaymentID:
			return repo.ErrDuplicate
		}
	}
	m.sh.st.payments[p.ID] = *p
	return nil
}

func (m *Memory) findPayment(match func(model.Payment) bool) (*model.Payment, error) {
	defer m.lock()()
	for _, p := range m.sh.st.payments {
		if match(p) {
			return &p, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Memory) GetPaymentByID(ctx context.Context, id string) (*model.Payment, error) {
	return m.findPayment(func(p model.Payment) bool { return p.ID == id })
}

func (m *Memory) GetPaymentByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	if orderID == "" {
		return nil, repo.ErrNotFound
	}
	return m.findPayment(func(p model.Payment) bool { return p.GatewayOrderID == orderID })
}

func (m *Memory) GetPaymentByGatewayPaymentID(ctx context.Context, paymentID string) (*model.Payment, error) {
	if paymentID == "" {
		return nil, repo.ErrNotFound
	}
	return m.findPayment(func(p model.Payment) bool { return p.GatewayPaymentID == paymentID })
}

func (m *Memory) UpdatePayment(ctx context.Context, p *model.Payment) error {
	defer m.lock()()
	if _, ok := m.sh.st.payments[p.ID]; !ok {
		return repo.ErrNotFound
	}
	for id, other := range m.sh.st.payments {
		if id != p.ID && p.GatewayPaymentID != "" && other.GatewayPaymentID == p.GatewayPaymentID {
			return repo.ErrDuplicate
		}
	}
	m.sh.st.payments[p.ID] = *p
	return nil
}

func (m *Memory) ListPayments(ctx context.Context, f repo.PaymentFilter) ([]model.Payment, error) {
	defer m.lock()()
	var out []model.Payment
	for _, p := range m.sh.st.payments {
		if f.UserID != "" && p.UserID != f.UserID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) InsertAttendance(ctx context.Context, a *model.Attendance) (bool, error) {
	defer m.lock()()
	for _, other := range m.sh.st.attendance {
		if other.RegistrationID == a.RegistrationID && other.Target == a.Target {
			return false, nil
		}
	}
	m.sh.st.attendance[a.ID] = *a
	return true, nil
}

func (m *Memory) GetAttendance(ctx context.Context, registrationID string, t model.Target) (*model.Attendance, error) {
	defer m.lock()()
	for _, a := range m.sh.st.attendance {
		if a.RegistrationID == registrationID && a.Target == t {
			return &a, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Memory) GetAttendanceByID(ctx context.Context, id string) (*model.Attendance, error) {
	defer m.lock()()
	a, ok := m.sh.st.attendance[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &a, nil
}

func (m *Memory) UpdateAttendance(ctx context.Context, a *model.Attendance) error {
	defer m.lock()()
	if _, ok := m.sh.st.attendance[a.ID]; !ok {
		return repo.ErrNotFound
	}
	m.sh.st.attendance[a.ID] = *a
	return nil
}

func (m *Memory) ListAttendance(ctx context.Context, f repo.AttendanceFilter) ([]model.AttendanceRow, error) {
	defer m.lock()()
	var out []model.AttendanceRow
	for _, a := range m.sh.st.attendance {
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if f.Target != nil && a.Target != *f.Target {
			continue
		}
		u := m.sh.st.users[a.UserID]
		out = append(out, model.AttendanceRow{
			Attendance:         a,
			RegistrationNumber: m.sh.st.registrations[a.RegistrationID].RegistrationNumber,
			UserName:           u.Name,
			UserEmail:          u.Email,
			UserPhone:          u.Phone,
			UserCollege:        u.College,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInTime.After(out[j].CheckInTime) })
	return out, nil
}

func (m *Memory) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	defer m.lock()()
	st := m.sh.st
	stats := &model.DashboardStats{
		TotalUsers:            len(st.users),
		TotalRegistrations:    len(st.registrations),
		CheckIns:              len(st.attendance),
		RegistrationsByStatus: map[string]int{},
	}
	for _, e := range st.events {
		if e.IsActive {
			stats.ActiveEvents++
		}
	}
	for _, w := range st.workshops {
		if w.IsActive {
			stats.ActiveWorkshops++
		}
	}
	for _, r := range st.registrations {
		stats.RegistrationsByStatus[string(r.Status)]++
	}

	groups := map[string]*model.StatusTotal{}
	for _, p := range st.payments {
		g, ok := groups[string(p.Status)]
		if !ok {
			g = &model.StatusTotal{Status: string(p.Status)}
			groups[string(p.Status)] = g
		}
		g.Count++
		g.Total += p.Amount
		if p.Status == model.PaymentSuccess {
			stats.Revenue += p.Amount - p.RefundAmount
		}
	}
	for _, g := range groups {
		stats.Payments = append(stats.Payments, *g)
	}
	sort.Slice(stats.Payments, func(i, j int) bool { return stats.Payments[i].Status < stats.Payments[j].Status })
	return stats, nil
}

var _ repo.Repository = (*Memory)(nil)
