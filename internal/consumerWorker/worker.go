package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"symposium/internal/dto"
	"symposium/internal/mailer"
)

const (
	MaxAttempts      = 3
	baseDelaySeconds = 30
)

// Queue is the consuming and republishing side of the broker.
// *rabbit.Client satisfies it.
type Queue interface {
	Consume(ctx context.Context, handler func([]byte) error) error
	Publish(message []byte, delaySeconds int) error
}

// Sender delivers one notification. *mailer.Mailer satisfies it.
type Sender interface {
	Send(msg dto.NotificationMessage) error
}

// Reader turns queued notifications into mail. A failed send is put back
// on the queue with a growing delay until MaxAttempts is reached.
type Reader struct {
	queue  Queue
	sender Sender
	log    *zerolog.Logger
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(queue Queue, sender Sender, log *zerolog.Logger) *Reader {
	return &Reader{
		queue:  queue,
		sender: sender,
		log:    log,
		done:   make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.log.Info().Msg("notification reader started")

	go func() {
		defer close(r.done)
		if err := r.queue.Consume(cctx, r.handle); err != nil {
			r.log.Error().Err(err).Msg("notification consumer stopped")
			return
		}
		r.log.Info().Msg("notification reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// retryDelay grows 30s, 60s, 120s... with the number of failed attempts.
func retryDelay(attempt int) int {
	return baseDelaySeconds << attempt
}

func (r *Reader) handle(body []byte) error {
	var msg dto.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		r.log.Error().Err(err).Str("body", string(body)).Msg("failed to unmarshal notification")
		return err
	}

	logger := r.log.With().
		Str("kind", string(msg.Kind)).
		Str("email", msg.Email).
		Int("attempt", msg.Attempt+1).
		Logger()

	err := r.sender.Send(msg)
	if err == nil {
		return nil
	}
	if errors.Is(err, mailer.ErrUnknownKind) {
		logger.Error().Err(err).Msg("notification cannot be rendered")
		return err
	}

	msg.Attempt++
	if msg.Attempt >= MaxAttempts {
		logger.Error().Err(err).Msg("giving up on notification")
		return nil
	}

	next, mErr := json.Marshal(msg)
	if mErr != nil {
		return mErr
	}
	delay := retryDelay(msg.Attempt - 1)
	if pErr := r.queue.Publish(next, delay); pErr != nil {
		return fmt.Errorf("requeue notification: %w", pErr)
	}
	logger.Warn().Err(err).Int("retry_in_seconds", delay).Msg("failed to send notification, retrying")
	return nil
}
