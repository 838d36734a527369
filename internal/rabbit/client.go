package rabbit

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

type Config struct {
	URL      string
	Exchange string
	Queue    string
}

// Client publishes to a delayed-message exchange bound to a single queue.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	log      *zerolog.Logger
	mu       sync.Mutex
}

func NewRabbit(cfg Config, log *zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open RabbitMQ channel: %w", err)
	}

	client := &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		log:      log,
	}

	args := amqp.Table{"x-delayed-type": "direct"}
	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"x-delayed-message",
		true,
		false,
		false,
		false,
		args,
	); err != nil {
		client.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	if _, err := ch.QueueDeclare(
		cfg.Queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		client.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}

	if err := ch.QueueBind(
		cfg.Queue,
		cfg.Queue,
		cfg.Exchange,
		false,
		nil,
	); err != nil {
		client.Close()
		return nil, fmt.Errorf("bind queue %s: %w", cfg.Queue, err)
	}

	log.Info().Str("exchange", cfg.Exchange).Str("queue", cfg.Queue).Msg("RabbitMQ initialized")
	return client, nil
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.log.Info().Msg("RabbitMQ connection closed")
}

// Publish queues message, held back by the exchange for delaySeconds.
func (c *Client) Publish(message []byte, delaySeconds int) error {
	headers := amqp.Table{}
	if delaySeconds > 0 {
		headers["x-delay"] = int32(delaySeconds * 1000)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	c.mu.Lock()
	err := c.channel.PublishWithContext(
		ctx,
		c.exchange,
		c.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         message,
			Timestamp:    time.Now(),
			Headers:      headers,
		},
	)
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("publish to %s: %w", c.exchange, err)
	}
	c.log.Debug().Str("exchange", c.exchange).Int("delay_seconds", delaySeconds).Msg("message published")
	return nil
}

// Consume delivers messages to handler until ctx is done. A handler error
// drops the message; retries are the handler's business.
func (c *Client) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.log.Info().Str("queue", c.queue).Msg("started consuming")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			if err := handler(d.Body); err != nil {
				c.log.Warn().Err(err).Msg("failed to process message, dropping")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
