// AngelaMos | 2026
// publisher.go
// Lifecycle event publishing over RabbitMQ. Publishing is
// fire-and-forget: a broker outage never fails the operation that
// produced the event, it only leaves a warning in the log.

package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/streampix/subscription-backend/internal/config"
)

const (
	RoutingCreated       = "subscription.created"
	RoutingPlanChanged   = "subscription.plan_changed"
	RoutingCanceled      = "subscription.canceled"
	RoutingStatusUpdated = "subscription.status_updated"
	RoutingRenewed       = "subscription.renewed"
	RoutingSuspended     = "subscription.suspended"
)

const dialTimeout = 10 * time.Second

// SubscriptionEvent is the payload for every lifecycle routing key.
// Fields that do not apply to a given event are left empty.
type SubscriptionEvent struct {
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	Plan           string    `json:"plan,omitempty"`
	PreviousPlan   string    `json:"previous_plan,omitempty"`
	Status         string    `json:"status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher emits subscription lifecycle events. Implementations must
// be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event SubscriptionEvent)
	Close()
}

// amqpChannel is the slice of *amqp091.Channel the publisher uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type amqpPublisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *slog.Logger

	// mu serializes publishes and protects channel; a reopen after a
	// broker hiccup must never race a concurrent publish.
	mu         sync.Mutex
	channel    amqpChannel
	newChannel func() (amqpChannel, error)
}

// NewPublisher connects to RabbitMQ and declares the topic exchange.
// When events are disabled in config it returns a no-op publisher and
// never dials.
func NewPublisher(cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	if !cfg.Enabled {
		logger.Info("event publishing disabled")
		return &noopPublisher{}, nil
	}

	conn, err := amqp091.DialConfig(cfg.URL, amqp091.Config{
		Dial: amqp091.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &amqpPublisher{
		conn:     conn,
		exchange: cfg.Exchange,
		logger:   logger,
		channel:  ch,
		newChannel: func() (amqpChannel, error) {
			return conn.Channel()
		},
	}, nil
}

func (p *amqpPublisher) Publish(
	ctx context.Context,
	routingKey string,
	event SubscriptionEvent,
) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal lifecycle event",
			"routing_key", routingKey,
			"error", err,
		)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.publishLocked(ctx, routingKey, body); err == nil {
		return
	}

	// One-shot retry over a fresh channel; broker hiccups close the
	// old channel and the next publish would fail forever otherwise.
	if retryErr := p.reopenAndPublishLocked(ctx, routingKey, body); retryErr != nil {
		p.logger.Warn("lifecycle event dropped",
			"routing_key", routingKey,
			"subscription_id", event.SubscriptionID,
			"error", retryErr,
		)
	}
}

func (p *amqpPublisher) publishLocked(
	ctx context.Context,
	routingKey string,
	body []byte,
) error {
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
}

func (p *amqpPublisher) reopenAndPublishLocked(
	ctx context.Context,
	routingKey string,
	body []byte,
) error {
	ch, err := p.newChannel()
	if err != nil {
		return err
	}

	if err := p.channel.Close(); err != nil {
		p.logger.Debug("closing broken channel", "error", err)
	}
	p.channel = ch

	err = ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return err
	}

	return p.publishLocked(ctx, routingKey, body)
}

func (p *amqpPublisher) Close() {
	p.mu.Lock()
	if p.channel != nil {
		p.channel.Close()
	}
	p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
	}
}

type noopPublisher struct{}

func (*noopPublisher) Publish(context.Context, string, SubscriptionEvent) {}

func (*noopPublisher) Close() {}
