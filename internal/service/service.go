package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"symposium/internal/dto"
	"symposium/internal/gateway"
	"symposium/internal/model"
	"symposium/internal/repo"
	"symposium/internal/ticket"
)

// Publisher queues a message, optionally delayed. *rabbit.Client satisfies it.
type Publisher interface {
	Publish(message []byte, delaySeconds int) error
}

// Gateway is the payment provider. *gateway.Razorpay satisfies it.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount model.Amount, currency, receipt string, notes map[string]string) (*gateway.Order, error)
	Refund(ctx context.Context, paymentID string, amount model.Amount) (*gateway.Refund, error)
}

type Config struct {
	AccommodationFee model.Amount
	Currency         string
	JWTSecret        string
	JWTTTL           time.Duration
	// RegistrationRetries bounds how many fresh numbers are tried when an
	// insert collides on the registration number.
	RegistrationRetries int
	// ResetURL is prefixed to the raw token in password reset mails.
	ResetURL string
	ResetTTL time.Duration
}

type Service struct {
	repo   repo.Repository
	log    *zerolog.Logger
	gw     Gateway
	sigs   *gateway.Signatures
	tokens *ticket.Signer
	pub    Publisher
	cfg    Config
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	repository repo.Repository,
	logger *zerolog.Logger,
	gw Gateway,
	sigs *gateway.Signatures,
	tokens *ticket.Signer,
	pub Publisher,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = model.DefaultCurrency
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 7 * 24 * time.Hour
	}
	if cfg.RegistrationRetries <= 0 {
		cfg.RegistrationRetries = 3
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	s := &Service{
		repo:   repository,
		log:    logger,
		gw:     gw,
		sigs:   sigs,
		tokens: tokens,
		pub:    pub,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newID() string {
	return uuid.NewString()
}

// notify queues a mail. Failures are logged and never returned.
func (s *Service) notify(msg dto.NotificationMessage) {
	if s.pub == nil || msg.Email == "" {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Str("kind", string(msg.Kind)).Msg("failed to marshal notification")
		return
	}
	if err := s.pub.Publish(payload, 0); err != nil {
		s.log.Warn().Err(err).Str("kind", string(msg.Kind)).Str("email", msg.Email).Msg("failed to publish notification")
	}
}

// notifyUser fills in the recipient from the user record.
func (s *Service) notifyUser(ctx context.Context, userID string, msg dto.NotificationMessage) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("notification skipped, user lookup failed")
		return
	}
	msg.Email = u.Email
	msg.Name = u.Name
	s.notify(msg)
}
