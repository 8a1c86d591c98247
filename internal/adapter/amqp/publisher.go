// Package amqp publishes lending lifecycle events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/heartmarshall/mangalend-backend/pkg/ctxutil"
)

const (
	exchangeType = "topic"
	eventVersion = "1.0.0"

	maxAttempts    = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
	confirmTimeout = 5 * time.Second
)

var (
	errNotAcked       = errors.New("event not acknowledged")
	errConfirmTimeout = errors.New("confirmation timeout")
)

// Event is the envelope of every published message.
type Event struct {
	EventID       string         `json:"event_id"`
	EventType     string         `json:"event_type"`
	EventVersion  string         `json:"event_version"`
	Timestamp     string         `json:"timestamp"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Payload       map[string]any `json:"payload"`
}

// NewEvent wraps payload in an envelope. The request ID from ctx, if any,
// becomes the correlation ID.
func NewEvent(ctx context.Context, eventType string, payload map[string]any) Event {
	return Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: ctxutil.RequestIDFromCtx(ctx),
		Payload:       payload,
	}
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	Close() error
}

// Publisher sends events with publisher confirms. Every message waits on its
// own deferred confirmation.
// Retries reuse the event ID as MessageId; consumers deduplicate on it.
// Safe for concurrent use.
type Publisher struct {
	conn           *amqp.Connection
	channel        channel
	exchange       string
	confirmTimeout time.Duration
	log            *slog.Logger
}

// NewPublisher dials url, declares a durable topic exchange and enables
// publisher confirms.
func NewPublisher(url, exchange string, log *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	log = log.With("component", "amqp_publisher")
	log.Info("connected to rabbitmq", slog.String("exchange", exchange))

	return &Publisher{
		conn:           conn,
		channel:        ch,
		exchange:       exchange,
		confirmTimeout: confirmTimeout,
		log:            log,
	}, nil
}

// Publish sends one event under routing key eventType, retrying with
// exponential backoff until the broker confirms it or attempts run out.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	event := NewEvent(ctx, eventType, payload)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.EventID,
		Body:         body,
		Headers: amqp.Table{
			"event_type":    event.EventType,
			"event_version": event.EventVersion,
		},
	}

	attempt := 0
	op := func() error {
		attempt++
		err := p.publishOnce(ctx, eventType, msg)
		if err != nil {
			p.log.WarnContext(ctx, "publish event failed",
				slog.String("event_type", eventType),
				slog.String("event_id", event.EventID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialBackoff
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, maxAttempts-1), ctx)); err != nil {
		return fmt.Errorf("publish %s after %d attempts: %w", eventType, attempt, err)
	}

	p.log.DebugContext(ctx, "event published",
		slog.String("event_id", event.EventID),
		slog.String("event_type", eventType),
	)
	return nil
}

func (p *Publisher) publishOnce(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			return backoff.Permanent(err)
		}
		return err
	}
	if confirm == nil {
		// Channel not in confirm mode.
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.confirmTimeout)
	defer cancel()

	acked, err := confirm.WaitContext(waitCtx)
	switch {
	case err != nil && ctx.Err() != nil:
		return backoff.Permanent(ctx.Err())
	case err != nil:
		return errConfirmTimeout
	case !acked:
		return errNotAcked
	}
	return nil
}

// IsHealthy reports whether the broker connection is open.
func (p *Publisher) IsHealthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Error("close channel", slog.String("error", err.Error()))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
	}
	p.log.Info("publisher closed")
	return nil
}

// Noop discards events. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, map[string]any) error { return nil }

// IsHealthy is always true; there is no broker to lose.
func (Noop) IsHealthy() bool { return true }
