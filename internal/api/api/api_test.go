package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"
	"golang.org/x/crypto/bcrypt"

	"symposium/cmd/middleware"
	"symposium/internal/dto"
	"symposium/internal/gateway"
	"symposium/internal/model"
	"symposium/internal/repo/repotest"
	"symposium/internal/service"
	"symposium/internal/ticket"
	"symposium/pkg/validator"
)

type stubGateway struct {
	mu     sync.Mutex
	orders int
}

func (g *stubGateway) KeyID() string { return "rzp_test_key" }

func (g *stubGateway) CreateOrder(ctx context.Context, amount model.Amount, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	return &gateway.Order{ID: fmt.Sprintf("order_%d", g.orders), Amount: amount.Paise(), Currency: currency, Receipt: receipt}, nil
}

func (g *stubGateway) Refund(ctx context.Context, paymentID string, amount model.Amount) (*gateway.Refund, error) {
	return &gateway.Refund{ID: "rfnd_1", Amount: amount.Paise()}, nil
}

// mailbox keeps queued notifications so tests can read reset links.
type mailbox struct {
	mu   sync.Mutex
	msgs []dto.NotificationMessage
}

func (m *mailbox) Publish(message []byte, delaySeconds int) error {
	var msg dto.NotificationMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mailbox) last(kind dto.NotificationKind) (dto.NotificationMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].Kind == kind {
			return m.msgs[i], true
		}
	}
	return dto.NotificationMessage{}, false
}

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Errors  []validator.FieldError `json:"errors"`
}

type testServer struct {
	app  *ginext.Engine
	repo *repotest.Memory
	sigs *gateway.Signatures
	mail *mailbox
}

func newTestServer(t *testing.T, limits Limits) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	mem := repotest.New()
	sigs := gateway.NewSignatures("key_secret", "webhook_secret")
	mail := &mailbox{}
	svc := service.NewService(mem, &logger, &stubGateway{}, sigs, ticket.NewSigner("entry_secret"), mail, service.Config{
		AccommodationFee: 150,
		JWTSecret:        "jwt_secret",
		ResetURL:         "https://symposium.test/reset-password/",
	})
	return &testServer{
		app:  NewRouters(&Routers{Service: svc, Log: &logger, Limits: limits}),
		repo: mem,
		sigs: sigs,
		mail: mail,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.([]byte); ok {
			buf.Write(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.app.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(rec.Body.Bytes()), []byte("{")) {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

// seedUser stores a user directly so tests can hold roles that sign-up
// never grants, then logs in through the API.
func (s *testServer) seedUser(t *testing.T, email string, role model.Role) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &model.User{
		ID:           email,
		Name:         "Seeded",
		Email:        email,
		Phone:        "9876543210",
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	if code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, code, env.Message)
	}
	var res service.AuthResult
	decode(t, env, &res)
	return res.Token
}

func decode(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Limits{})
	code, env := s.do(t, http.MethodGet, "/health", "", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("health: %d %+v", code, env)
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t, Limits{})

	code, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "secret123",
		"phone":    "9876543210",
	})
	if code != http.StatusCreated {
		t.Fatalf("register: %d %s", code, env.Message)
	}
	var reg service.AuthResult
	decode(t, env, &reg)
	if reg.Token == "" || reg.User == nil || reg.User.Role != model.RoleParticipant {
		t.Fatalf("unexpected register result: %+v", reg)
	}

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Asha", "email": "ASHA@example.com", "password": "secret123", "phone": "9876543210",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate register: want 400, got %d", code)
	}

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "wrong-pass",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("bad password: want 401, got %d", code)
	}

	code, env = s.do(t, http.MethodGet, "/api/v1/auth/me", reg.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("me: %d %s", code, env.Message)
	}
	var me model.User
	decode(t, env, &me)
	if me.Email != "asha@example.com" {
		t.Fatalf("me returned %q", me.Email)
	}
}

func TestProtectRejectsMissingAndBadTokens(t *testing.T) {
	s := newTestServer(t, Limits{})

	code, env := s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	if code != http.StatusUnauthorized || env.Message != "Not authorized, no token" {
		t.Fatalf("no token: %d %q", code, env.Message)
	}
	code, _ = s.do(t, http.MethodGet, "/api/v1/registrations/my-registrations", "garbage", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("bad token: want 401, got %d", code)
	}
}

func TestValidationFailureListsFields(t *testing.T) {
	s := newTestServer(t, Limits{})

	code, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name":     "A",
		"password": "secret123",
		"phone":    "12",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", code)
	}
	if env.Success || len(env.Errors) == 0 {
		t.Fatalf("expected field errors, got %+v", env)
	}

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", []byte("{not json"))
	if code != http.StatusBadRequest || env.Message != "Invalid JSON format" {
		t.Fatalf("malformed json: %d %q", code, env.Message)
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	s := newTestServer(t, Limits{})
	participant := s.seedUser(t, "p@example.com", model.RoleParticipant)
	volunteer := s.seedUser(t, "v@example.com", model.RoleVolunteer)
	admin := s.seedUser(t, "a@example.com", model.RoleAdmin)

	code, env := s.do(t, http.MethodGet, "/api/v1/admin/dashboard", participant, nil)
	if code != http.StatusForbidden || env.Message != "User role participant is not authorized to access this route" {
		t.Fatalf("participant dashboard: %d %q", code, env.Message)
	}
	if code, _ = s.do(t, http.MethodGet, "/api/v1/admin/dashboard", volunteer, nil); code != http.StatusForbidden {
		t.Fatalf("volunteer dashboard: want 403, got %d", code)
	}
	if code, env = s.do(t, http.MethodGet, "/api/v1/admin/dashboard", admin, nil); code != http.StatusOK {
		t.Fatalf("admin dashboard: %d %s", code, env.Message)
	}

	// Volunteers may check people in but the request still has to be valid.
	if code, _ = s.do(t, http.MethodPost, "/api/v1/attendance/verify-qr", volunteer, map[string]any{}); code != http.StatusBadRequest {
		t.Fatalf("volunteer check-in without token: want 400, got %d", code)
	}
}

func TestUnknownResourceIsNotFound(t *testing.T) {
	s := newTestServer(t, Limits{})
	code, env := s.do(t, http.MethodGet, "/api/v1/events/does-not-exist", "", nil)
	if code != http.StatusNotFound || env.Success {
		t.Fatalf("want 404, got %d %+v", code, env)
	}
}

func TestWebhookSignature(t *testing.T) {
	s := newTestServer(t, Limits{})
	body := []byte(`{"event":"payment.authorized","payload":{}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/webhook", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	s.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad signature: want 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/webhook", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", s.sigs.WebhookSignature(body))
	rec = httptest.NewRecorder()
	s.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("signed webhook: want 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegistrationPaymentFlow(t *testing.T) {
	s := newTestServer(t, Limits{})
	admin := s.seedUser(t, "admin@example.com", model.RoleAdmin)
	buyer := s.seedUser(t, "buyer@example.com", model.RoleParticipant)
	other := s.seedUser(t, "other@example.com", model.RoleParticipant)

	now := time.Now().UTC()
	code, env := s.do(t, http.MethodPost, "/api/v1/events", admin, map[string]any{
		"name":                  "Hackathon",
		"category":              "technical",
		"date":                  now.Add(10 * 24 * time.Hour),
		"registration_deadline": now.Add(5 * 24 * time.Hour),
		"registration_fee":      299,
		"max_participants":      50,
	})
	if code != http.StatusCreated {
		t.Fatalf("create event: %d %s", code, env.Message)
	}
	var event model.Event
	decode(t, env, &event)

	code, env = s.do(t, http.MethodPost, "/api/v1/events", buyer, map[string]any{"name": "nope"})
	if code != http.StatusForbidden {
		t.Fatalf("participant create event: want 403, got %d", code)
	}

	code, env = s.do(t, http.MethodPost, "/api/v1/registrations", buyer, map[string]any{
		"type":     "event",
		"event_id": event.ID,
	})
	if code != http.StatusCreated {
		t.Fatalf("register: %d %s", code, env.Message)
	}
	var reg model.Registration
	decode(t, env, &reg)
	if reg.Status != model.RegistrationPending || !model.IsRegistrationNumber(reg.RegistrationNumber) {
		t.Fatalf("unexpected registration: %+v", reg)
	}

	if code, _ = s.do(t, http.MethodGet, "/api/v1/registrations/"+reg.ID, other, nil); code != http.StatusForbidden {
		t.Fatalf("stranger read: want 403, got %d", code)
	}

	code, env = s.do(t, http.MethodPost, "/api/v1/payments/create-order", buyer, map[string]string{
		"registration_id": reg.ID,
	})
	if code != http.StatusCreated {
		t.Fatalf("create order: %d %s", code, env.Message)
	}
	var order service.OrderResult
	decode(t, env, &order)
	if order.OrderID == "" || order.Amount != 29900 || order.KeyID != "rzp_test_key" {
		t.Fatalf("unexpected order: %+v", order)
	}

	code, env = s.do(t, http.MethodPost, "/api/v1/payments/verify", buyer, map[string]string{
		"razorpayOrderId":   order.OrderID,
		"razorpayPaymentId": "pay_1",
		"razorpaySignature": "deadbeef",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("forged signature: want 400, got %d", code)
	}

	code, env = s.do(t, http.MethodPost, "/api/v1/payments/verify", buyer, map[string]string{
		"razorpayOrderId":   order.OrderID,
		"razorpayPaymentId": "pay_1",
		"razorpaySignature": s.sigs.PaymentSignature(order.OrderID, "pay_1"),
	})
	if code != http.StatusOK {
		t.Fatalf("verify: %d %s", code, env.Message)
	}

	code, env = s.do(t, http.MethodGet, "/api/v1/registrations/"+reg.ID, buyer, nil)
	if code != http.StatusOK {
		t.Fatalf("get registration: %d %s", code, env.Message)
	}
	decode(t, env, &reg)
	if reg.Status != model.RegistrationConfirmed || reg.PaymentStatus != model.RegistrationPaymentPaid {
		t.Fatalf("registration not confirmed: %s/%s", reg.Status, reg.PaymentStatus)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/"+reg.ID+"/download-ticket", nil)
	req.Header.Set("Authorization", "Bearer "+buyer)
	rec := httptest.NewRecorder()
	s.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("ticket: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("ticket body is not a PDF")
	}
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, Limits{Auth: middleware.NewRateLimiter(2, time.Hour, "slow down")})
	body := map[string]string{"email": "nobody@example.com", "password": "whatever"}

	for i := 0; i < 2; i++ {
		if code, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", "", body); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: want 401, got %d", i+1, code)
		}
	}
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	if code != http.StatusTooManyRequests || env.Message != "slow down" {
		t.Fatalf("third attempt: %d %q", code, env.Message)
	}
	if code, _ = s.do(t, http.MethodGet, "/api/v1/events", "", nil); code != http.StatusOK {
		t.Fatalf("unlimited route: want 200, got %d", code)
	}
}

func TestPasswordResetRoutes(t *testing.T) {
	s := newTestServer(t, Limits{})
	s.seedUser(t, "forgetful@example.com", model.RoleParticipant)

	if code, _ := s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "not-an-email"}); code != http.StatusBadRequest {
		t.Fatalf("bad email: want 400, got %d", code)
	}
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "stranger@example.com"})
	if code != http.StatusOK {
		t.Fatalf("unknown email: want 200, got %d %s", code, env.Message)
	}
	code, env = s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "forgetful@example.com"})
	if code != http.StatusOK {
		t.Fatalf("forgot password: %d %s", code, env.Message)
	}
	msg, ok := s.mail.last(dto.NotifyPasswordReset)
	if !ok || !strings.HasPrefix(msg.Link, "https://symposium.test/reset-password/") {
		t.Fatalf("reset mail = %+v", msg)
	}
	token := strings.TrimPrefix(msg.Link, "https://symposium.test/reset-password/")

	if code, _ = s.do(t, http.MethodPut, "/api/v1/auth/reset-password/"+token, "", map[string]string{"password": "123"}); code != http.StatusBadRequest {
		t.Fatalf("short password: want 400, got %d", code)
	}
	code, env = s.do(t, http.MethodPut, "/api/v1/auth/reset-password/"+token, "", map[string]string{"password": "brand-new"})
	if code != http.StatusOK {
		t.Fatalf("reset password: %d %s", code, env.Message)
	}
	var res service.AuthResult
	decode(t, env, &res)
	if res.Token == "" {
		t.Fatal("reset did not sign the user in")
	}

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "forgetful@example.com", "password": "brand-new",
	})
	if code != http.StatusOK {
		t.Fatalf("login with new password: want 200, got %d", code)
	}
	if code, _ = s.do(t, http.MethodPut, "/api/v1/auth/reset-password/"+token, "", map[string]string{"password": "again-new"}); code != http.StatusBadRequest {
		t.Fatalf("reused token: want 400, got %d", code)
	}
}

func TestCheckInRegistrationNumberFormat(t *testing.T) {
	s := newTestServer(t, Limits{})
	volunteer := s.seedUser(t, "gate@example.com", model.RoleVolunteer)

	code, env := s.do(t, http.MethodPost, "/api/v1/attendance/verify-qr", volunteer, map[string]string{
		"registration_number": "TICKET-42",
		"type":                "event",
		"event_id":            "2b0c5b7e-8f1e-4d6a-9d59-3c1f0f4f1a11",
	})
	if code != http.StatusBadRequest || len(env.Errors) == 0 || env.Errors[0].Field != "registration_number" {
		t.Fatalf("malformed number: %d %+v", code, env)
	}

	code, _ = s.do(t, http.MethodPost, "/api/v1/attendance/verify-qr", volunteer, map[string]string{
		"registration_number": "SHACK202600001",
		"type":                "event",
		"event_id":            "2b0c5b7e-8f1e-4d6a-9d59-3c1f0f4f1a11",
	})
	if code != http.StatusNotFound {
		t.Fatalf("unknown number: want 404, got %d", code)
	}
}
