package buildCFG

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"symposium/cmd/middleware"
	"symposium/internal/api/api"
	"symposium/internal/gateway"
	"symposium/internal/mailer"
	"symposium/internal/model"
	"symposium/internal/rabbit"
	"symposium/internal/service"
)

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		log.Warn().Msg("server.port is not set, using 5000")
		port = "5000"
	}
	return ServerConfig{
		Port:        port,
		CORSOrigins: splitList(cfg.GetString("server.cors_origins")),
	}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("database.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("database.master_dsn is required")
	}
	slaves := splitList(cfg.GetString("database.slave_dsns"))

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: cfg.GetDuration("database.conn_max_lifetime"),
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = 30 * time.Minute
	}
	log.Info().Int("slaves", len(slaves)).Int("max_open_conns", opts.MaxOpenConns).Msg("database config loaded")
	return masterDSN, slaves, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (rabbit.Config, error) {
	rc := rabbit.Config{
		URL:      cfg.GetString("rabbitmq.url"),
		Exchange: cfg.GetString("rabbitmq.exchange"),
		Queue:    cfg.GetString("rabbitmq.queue"),
	}
	if rc.URL == "" {
		return rc, fmt.Errorf("rabbitmq.url is required")
	}
	if rc.Exchange == "" {
		rc.Exchange = "notifications.delayed"
	}
	if rc.Queue == "" {
		rc.Queue = "notifications"
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("rabbitmq config loaded")
	return rc, nil
}

func BuildRazorpayConfig(cfg *config.Config, log *zerolog.Logger) (gateway.Config, error) {
	gc := gateway.Config{
		KeyID:         cfg.GetString("razorpay.key_id"),
		KeySecret:     cfg.GetString("razorpay.key_secret"),
		WebhookSecret: cfg.GetString("razorpay.webhook_secret"),
		Timeout:       cfg.GetDuration("razorpay.timeout"),
	}
	if gc.KeyID == "" || gc.KeySecret == "" {
		return gc, fmt.Errorf("razorpay.key_id and razorpay.key_secret are required")
	}
	if gc.WebhookSecret == "" {
		log.Warn().Msg("razorpay.webhook_secret is not set, webhooks will be rejected")
	}
	return gc, nil
}

func BuildServiceConfig(cfg *config.Config, log *zerolog.Logger) (service.Config, error) {
	fee, err := model.NewAmount(int64(cfg.GetInt("registration.accommodation_fee")))
	if err != nil {
		return service.Config{}, fmt.Errorf("registration.accommodation_fee: %w", err)
	}
	sc := service.Config{
		AccommodationFee:    fee,
		Currency:            cfg.GetString("registration.currency"),
		JWTSecret:           cfg.GetString("auth.jwt_secret"),
		JWTTTL:              cfg.GetDuration("auth.jwt_ttl"),
		RegistrationRetries: cfg.GetInt("registration.number_retries"),
		ResetURL:            cfg.GetString("auth.reset_url"),
		ResetTTL:            cfg.GetDuration("auth.reset_ttl"),
	}
	if sc.JWTSecret == "" {
		return sc, fmt.Errorf("auth.jwt_secret is required")
	}
	log.Info().Int64("accommodation_fee", int64(sc.AccommodationFee)).Dur("jwt_ttl", sc.JWTTTL).Msg("service config loaded")
	return sc, nil
}

// BuildTicketSecret returns the key that signs entry QR tokens. It falls
// back to the JWT secret when no dedicated one is configured.
func BuildTicketSecret(cfg *config.Config, log *zerolog.Logger) string {
	if s := cfg.GetString("ticket.secret"); s != "" {
		return s
	}
	log.Warn().Msg("ticket.secret is not set, signing entry tokens with the JWT secret")
	return cfg.GetString("auth.jwt_secret")
}

func BuildMailerConfig(cfg *config.Config, log *zerolog.Logger) mailer.Config {
	mc := mailer.Config{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetInt("smtp.port"),
		Username: cfg.GetString("smtp.username"),
		Password: cfg.GetString("smtp.password"),
		From:     cfg.GetString("smtp.from"),
		Timeout:  cfg.GetDuration("smtp.timeout"),
	}
	if mc.Port == 0 {
		mc.Port = 587
	}
	if mc.Host == "" {
		log.Warn().Msg("smtp.host is not set, notification delivery will fail")
	}
	return mc
}

type limitDefault struct {
	key      string
	requests int
	window   time.Duration
	message  string
}

// BuildRateLimits reads per-route budgets; unset keys keep the defaults
// below. A negative request count disables the limiter.
func BuildRateLimits(cfg *config.Config, log *zerolog.Logger) api.Limits {
	build := func(s limitDefault) *middleware.RateLimiter {
		if v := cfg.GetInt("rate_limit." + s.key + ".requests"); v != 0 {
			s.requests = v
		}
		if v := cfg.GetDuration("rate_limit." + s.key + ".window"); v > 0 {
			s.window = v
		}
		if s.requests < 0 {
			log.Warn().Str("limit", s.key).Msg("rate limit disabled")
			return nil
		}
		return middleware.NewRateLimiter(s.requests, s.window, s.message)
	}
	return api.Limits{
		API: build(limitDefault{"api", 100, 15 * time.Minute,
			"Too many requests from this IP, please try again later"}),
		Auth: build(limitDefault{"auth", 5, 15 * time.Minute,
			"Too many login attempts, please try again after 15 minutes"}),
		Registration: build(limitDefault{"registration", 20, time.Hour,
			"Too many registration attempts, please try again later"}),
		Payment: build(limitDefault{"payment", 10, time.Hour,
			"Too many payment attempts, please try again later"}),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
