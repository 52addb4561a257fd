package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"transaction-ledger-go/internal/models"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	EventCreated   = "created"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Publisher delivers committed transaction lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event models.TransactionEvent) error
	Close()
}

// NewPublisher returns a NATS publisher when a URL is configured and a no-op one otherwise.
func NewPublisher(cfg models.EventsConfig) (Publisher, error) {
	if cfg.NatsURL == "" {
		zap.L().Info("No NATS_URL configured, lifecycle events disabled")
		return NopPublisher{}, nil
	}
	return NewNatsPublisher(cfg)
}

// EventTypeFor maps a status reached by a transition to its event type.
func EventTypeFor(status models.Status) string {
	return strings.ToLower(status.String())
}

// NewTransactionEvent builds an event for tx; previous is empty for creations.
func NewTransactionEvent(eventType string, tx *models.Transaction, previous models.Status) models.TransactionEvent {
	return models.TransactionEvent{
		Type:          eventType,
		Transaction:   tx.ToRecord(),
		PreviousState: previous,
		OccurredAt:    tx.UpdatedAt,
	}
}

// Subject returns the NATS subject for an event type, e.g. "transactions.created".
func Subject(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.TransactionEvent) error { return nil }
func (NopPublisher) Close()                                                 {}

type NatsPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNatsPublisher(cfg models.EventsConfig) (*NatsPublisher, error) {
	zap.L().Info("Connecting to NATS", zap.String("url", cfg.NatsURL))

	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name("transaction-ledger"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			zap.L().Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			zap.L().Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NatsPublisher{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, event models.TransactionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(p.prefix, event.Type)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	zap.L().Debug("Published transaction event",
		zap.String("subject", subject),
		zap.String("transaction_id", event.Transaction.Id))
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		zap.L().Warn("Failed to drain NATS connection", zap.Error(err))
	}
}
