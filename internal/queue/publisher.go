package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends persistent JSON messages to a named durable queue.  Each
// publish dials its own connection; recovery mails are rare enough that a
// pooled channel is not worth the reconnect bookkeeping.
type Publisher struct {
	URL string
	Log *slog.Logger
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{URL: url, Log: log}
}

// PublishRecoveryMail queues a recovery mail job.
func (p *Publisher) PublishRecoveryMail(ctx context.Context, m RecoveryMail) error {
	return p.publish(ctx, RecoveryMailQueue, m)
}

// PublishPasswordReset queues a password reset event.
func (p *Publisher) PublishPasswordReset(ctx context.Context, ev PasswordResetEvent) error {
	return p.publish(ctx, PasswordResetQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", queue, err)
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("rabbitmq dial failed", "queue", queue, "err", err)
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}

	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.Log.Warn("rabbitmq publish failed", "queue", queue, "err", err)
		return fmt.Errorf("publish %s: %w", queue, err)
	}
	return nil
}
