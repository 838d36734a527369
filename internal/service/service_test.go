package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"symposium/internal/dto"
	"symposium/internal/gateway"
	"symposium/internal/model"
	"symposium/internal/repo/repotest"
	"symposium/internal/ticket"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type refundCall struct {
	paymentID string
	amount    model.Amount
}

type fakeGateway struct {
	mu      sync.Mutex
	orders  int
	refunds []refundCall
	err     error
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(ctx context.Context, amount model.Amount, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.orders++
	return &gateway.Order{
		ID:       fmt.Sprintf("order_%d", g.orders),
		Amount:   amount.Paise(),
		Currency: currency,
		Receipt:  receipt,
	}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, paymentID string, amount model.Amount) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.refunds = append(g.refunds, refundCall{paymentID: paymentID, amount: amount})
	return &gateway.Refund{ID: fmt.Sprintf("rfnd_%d", len(g.refunds)), Amount: amount.Paise()}, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []dto.NotificationMessage
	err  error
}

func (p *recordingPublisher) Publish(message []byte, delaySeconds int) error {
	var msg dto.NotificationMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) count(kind dto.NotificationKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.msgs {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) last(kind dto.NotificationKind) (dto.NotificationMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.msgs) - 1; i >= 0; i-- {
		if p.msgs[i].Kind == kind {
			return p.msgs[i], true
		}
	}
	return dto.NotificationMessage{}, false
}

type fixture struct {
	svc   *Service
	repo  *repotest.Memory
	gw    *fakeGateway
	pub   *recordingPublisher
	clock *fakeClock
	sigs  *gateway.Signatures
	ctx   context.Context
	seq   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	f := &fixture{
		repo:  repotest.New(),
		gw:    &fakeGateway{},
		pub:   &recordingPublisher{},
		clock: &fakeClock{now: t0},
		sigs:  gateway.NewSignatures("key_secret", "webhook_secret"),
		ctx:   context.Background(),
	}
	f.svc = NewService(f.repo, &logger, f.gw, f.sigs, ticket.NewSigner("entry_secret"), f.pub, Config{
		AccommodationFee: 150,
		JWTSecret:        "jwt_secret",
	}, WithClock(f.clock.Now))
	return f
}

func (f *fixture) user(t *testing.T, role model.Role) *model.User {
	t.Helper()
	f.seq++
	u := &model.User{
		ID:        fmt.Sprintf("user-%d", f.seq),
		Name:      fmt.Sprintf("User %d", f.seq),
		Email:     fmt.Sprintf("user%d@example.com", f.seq),
		Phone:     "9876543210",
		Role:      role,
		IsActive:  true,
		CreatedAt: f.clock.Now(),
	}
	if err := f.repo.CreateUser(f.ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) event(t *testing.T, fee int64, capacity *int) *model.Event {
	t.Helper()
	f.seq++
	e, err := f.svc.CreateEvent(f.ctx, dto.EventRequest{
		Name:                 fmt.Sprintf("Event %d", f.seq),
		Category:             string(model.CategoryTechnical),
		Venue:                "Main Hall",
		Date:                 t0.Add(10 * 24 * time.Hour),
		RegistrationFee:      fee,
		MaxParticipants:      capacity,
		RegistrationDeadline: t0.Add(5 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func (f *fixture) register(t *testing.T, u *model.User, target model.Target) *model.Registration {
	t.Helper()
	req := dto.CreateRegistrationRequest{Type: string(target.Kind)}
	if target.Kind == model.TargetWorkshop {
		req.WorkshopID = target.ID
	} else {
		req.EventID = target.ID
	}
	reg, err := f.svc.CreateRegistration(f.ctx, u, req)
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}
	return reg
}

// verifyRequest signs what checkout would hand back for order.
func (f *fixture) verifyRequest(orderID string) dto.VerifyPaymentRequest {
	paymentID := "pay_" + orderID
	return dto.VerifyPaymentRequest{
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: f.sigs.PaymentSignature(orderID, paymentID),
	}
}

func (f *fixture) pay(t *testing.T, u *model.User, reg *model.Registration) *PaymentResult {
	t.Helper()
	order, err := f.svc.CreateOrder(f.ctx, reg.ID, u)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	res, err := f.svc.VerifyPayment(f.ctx, f.verifyRequest(order.OrderID), u)
	if err != nil {
		t.Fatalf("verify payment: %v", err)
	}
	return res
}

func (f *fixture) seats(t *testing.T, target model.Target) int {
	t.Helper()
	l, err := f.repo.GetListing(f.ctx, target)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	return l.CurrentParticipants
}

func (f *fixture) registration(t *testing.T, id string) *model.Registration {
	t.Helper()
	reg, err := f.repo.GetRegistrationByID(f.ctx, id)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	return reg
}

func intPtr(v int) *int { return &v }

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
