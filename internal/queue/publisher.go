package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"
)

const defaultDialTimeout = 5 * time.Second

// Publisher delivers account events.  Callers treat failures as non-fatal.
type Publisher interface {
	PublishAccountRegistered(ctx context.Context, event AccountRegisteredEvent) error
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishAccountRegistered(context.Context, AccountRegisteredEvent) error {
	return nil
}

// AMQPPublisher publishes to RabbitMQ.  It opens a connection per message,
// which is fine for the registration rate this service sees.
type AMQPPublisher struct {
	URL    string
	Logger *slog.Logger
}

// NewAMQPPublisher returns a publisher for url.
func NewAMQPPublisher(url string, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{URL: url, Logger: logger}
}

// PublishAccountRegistered declares the durable account.registered queue
// and publishes event to it as a persistent JSON message.
func (p *AMQPPublisher) PublishAccountRegistered(ctx context.Context, event AccountRegisteredEvent) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, AccountRegisteredQueue, msg)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	errb := oops.Code("EVENT_PUBLISH_FAILED").With("queue", queue)

	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Dial:      amqp.DefaultDial(dialTimeout(ctx)),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		p.Logger.Warn("rabbitmq dial failed", "queue", queue, "error", err)
		return errb.With("operation", "dial").Wrap(err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Logger.Warn("rabbitmq channel open failed", "queue", queue, "error", err)
		return errb.With("operation", "channel").Wrap(err)
	}
	defer func() { _ = ch.Close() }()

	// durable, not auto-deleted, not exclusive
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.Logger.Warn("rabbitmq queue declare failed", "queue", queue, "error", err)
		return errb.With("operation", "declare").Wrap(err)
	}

	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		p.Logger.Warn("rabbitmq publish failed", "queue", queue, "error", err)
		return errb.With("operation", "publish").Wrap(err)
	}
	return nil
}

// dialTimeout bounds the TCP connect and the AMQP handshake by ctx's
// deadline, or defaultDialTimeout when it has none.
func dialTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return time.Millisecond
}

func encode(v any) (amqp.Publishing, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return amqp.Publishing{}, oops.Code("EVENT_PUBLISH_FAILED").
			With("operation", "marshal").
			Wrap(err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
