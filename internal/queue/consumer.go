package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the recovery mail and password reset queues.  Mails go to
// Mailer; reset events are appended to LogDir/auth.log.
type Consumer struct {
	URL      string
	Mailer   Mailer
	From     string
	LogDir   string
	Prefetch int
	Log      *slog.Logger
}

// Run connects to the broker and consumes until ctx is cancelled.  Broker
// failures are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Log == nil {
		c.Log = slog.Default()
	}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("mailer: dial broker failed", "err", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("mailer: consume loop ended, reconnecting", "err", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = 50
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.Log.Warn("mailer: set QoS failed", "err", err)
	}

	deliveries := make(map[string]<-chan amqp.Delivery, 2)
	for _, q := range []string{RecoveryMailQueue, PasswordResetQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		d, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		deliveries[q] = d
	}
	c.Log.Info("mailer: consuming", "queues", []string{RecoveryMailQueue, PasswordResetQueue})

	mails, resets := deliveries[RecoveryMailQueue], deliveries[PasswordResetQueue]
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-mails:
			if !ok {
				return errors.New("recovery mail deliveries closed")
			}
			c.settle(d, c.handleRecoveryMail(ctx, d.Body))
		case d, ok := <-resets:
			if !ok {
				return errors.New("password reset deliveries closed")
			}
			c.settle(d, c.handlePasswordReset(d.Body))
		}
	}
}

// settle acks handled messages and rejects failed ones without requeue so a
// poison message cannot spin the worker.
func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err != nil {
		c.Log.Error("mailer: handle message failed", "queue", d.RoutingKey, "err", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) handleRecoveryMail(ctx context.Context, body []byte) error {
	var job RecoveryMail
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal recovery mail: %w", err)
	}
	if job.Email == "" {
		return errors.New("recovery mail without recipient")
	}
	if err := c.Mailer.Send(ctx, RenderRecoveryMail(c.From, job)); err != nil {
		return err
	}
	c.Log.Info("mailer: recovery mail sent", "email", job.Email)
	return nil
}

func (c *Consumer) handlePasswordReset(body []byte) error {
	var ev PasswordResetEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal password reset: %w", err)
	}
	line := fmt.Sprintf("[%s] Password reset | user_id=%d | email=%s\n",
		ev.ResetAt.UTC().Format(time.RFC3339), ev.UserID, ev.Email)
	return appendLine(c.LogDir, "auth.log", line)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
