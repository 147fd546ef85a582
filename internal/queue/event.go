// Package queue defines the messages exchanged over RabbitMQ together with
// the publisher used by the API and the consumer run by the mailer worker.
package queue

import "time"

// Queue names.  Both queues are durable and fed through the default exchange.
const (
	RecoveryMailQueue  = "mail.password_recovery"
	PasswordResetQueue = "auth.password_reset"
)

// RecoveryMail asks the mailer to send a password recovery link.  Token is
// the raw reset token; it only travels to the mail worker, never to logs.
type RecoveryMail struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	Token            string `json:"token"`
	ResetURL         string `json:"reset_url"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

// PasswordResetEvent is published after a password was changed through the
// recovery flow.
type PasswordResetEvent struct {
	UserID  uint64    `json:"user_id"`
	Email   string    `json:"email"`
	ResetAt time.Time `json:"reset_at"`
}
