package notify

import (
	"context"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"portal-chat/internal/models"
	"portal-chat/internal/observability"
)

// RoutingUnreadIncreased is the routing key and event type of unread-count
// notifications published to the exchange.
const RoutingUnreadIncreased = "chat.unread_increased"

// Publisher publishes events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// NewPublisher connects to RabbitMQ, or returns a noop publisher when the URL
// is empty or the broker cannot be reached.
func NewPublisher(amqpURL, exchange string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if amqpURL == "" {
		logger.Info("rabbitmq disabled, using noop", "reason", "empty amqp url")
		return noopPublisher{reason: "empty amqp url", logger: logger}
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		logger.Warn("rabbitmq disabled, using noop", "reason", err)
		return noopPublisher{reason: err.Error(), logger: logger}
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("rabbitmq disabled, using noop", "reason", err)
		_ = conn.Close()
		return noopPublisher{reason: err.Error(), logger: logger}
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Warn("rabbitmq disabled, using noop", "reason", err)
		_ = ch.Close()
		_ = conn.Close()
		return noopPublisher{reason: err.Error(), logger: logger}
	}

	logger.Info("rabbitmq connected", "exchange", exchange)
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *slog.Logger
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		observability.IncAMQPPublishError()
		p.logger.Error("rabbitmq publish failed", "routing_key", routingKey, "err", err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	reason string
	logger *slog.Logger
}

func (p noopPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	if env, ok := event.(Envelope); ok {
		p.logger.Debug("rabbitmq noop publish", "routing_key", routingKey, "event_type", env.EventType, "service", env.Service)
		return nil
	}
	p.logger.Debug("rabbitmq noop publish", "routing_key", routingKey)
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// PublisherMode reports the publisher mode for logging.
func PublisherMode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}

// Envelope wraps every event published by the portal.
type Envelope struct {
	SchemaVersion int                 `json:"schema_version"`
	EventType     string              `json:"event_type"`
	OccurredAt    string              `json:"occurred_at"`
	Service       string              `json:"service"`
	Payload       models.Notification `json:"payload"`
}

// AMQPNotifier fans unread notifications out to other services through the
// exchange.
type AMQPNotifier struct {
	publisher Publisher
	service   string
	now       func() time.Time
}

func NewAMQPNotifier(publisher Publisher, service string) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher, service: service, now: time.Now}
}

func (a *AMQPNotifier) Notify(ctx context.Context, n models.Notification) error {
	if a == nil || a.publisher == nil {
		return nil
	}
	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     RoutingUnreadIncreased,
		OccurredAt:    a.now().UTC().Format(time.RFC3339Nano),
		Service:       a.service,
		Payload:       n,
	}
	if err := a.publisher.Publish(ctx, RoutingUnreadIncreased, envelope); err != nil {
		return err
	}
	observability.IncNotification("amqp")
	return nil
}
