package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/iliyamo/lessons-api/internal/model"
	"github.com/iliyamo/lessons-api/internal/queue"
	"github.com/iliyamo/lessons-api/internal/repository"
	"github.com/iliyamo/lessons-api/internal/utils"
)

// ResetStore keeps one pending reset token hash per email.
type ResetStore interface {
	Get(ctx context.Context, email string) (model.PasswordReset, error)
	Put(ctx context.Context, email, tokenHash string, createdAt time.Time) error
	Consume(ctx context.Context, email, tokenHash string, notBefore time.Time) error
}

// MailPublisher hands recovery work to the mail worker.
type MailPublisher interface {
	PublishRecoveryMail(ctx context.Context, m queue.RecoveryMail) error
	PublishPasswordReset(ctx context.Context, ev queue.PasswordResetEvent) error
}

// RecoverySettings configure the reset token lifetime, the request cooldown
// and the link put into mails.
type RecoverySettings struct {
	TTL         time.Duration
	Throttle    time.Duration
	FrontendURL string
}

// RecoveryService implements the forgot/reset password flow.
type RecoveryService struct {
	users  UserStore
	resets ResetStore
	mail   MailPublisher
	auth   *AuthService
	cfg    RecoverySettings
	log    *slog.Logger
	now    func() time.Time
}

// NewRecoveryService wires the service.  Successful resets log the user in
// through authSvc.
func NewRecoveryService(users UserStore, resets ResetStore, mail MailPublisher, authSvc *AuthService, cfg RecoverySettings, log *slog.Logger) *RecoveryService {
	if log == nil {
		log = slog.Default()
	}
	return &RecoveryService{users: users, resets: resets, mail: mail, auth: authSvc, cfg: cfg, log: log, now: time.Now}
}

// RequestRecovery stores a new reset token for email and queues the mail.
func (s *RecoveryService) RequestRecovery(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	now := s.now().UTC()
	pending, err := s.resets.Get(ctx, email)
	switch {
	case err == nil:
		if s.cfg.Throttle > 0 && now.Sub(pending.CreatedAt) < s.cfg.Throttle {
			return ErrResetThrottled
		}
	case !errors.Is(err, repository.ErrTokenNotFound):
		return err
	}

	raw, err := utils.RandomHex(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.resets.Put(ctx, email, utils.HashToken(raw), now); err != nil {
		return err
	}

	job := queue.RecoveryMail{
		Email:            u.Email,
		Name:             u.Name,
		Token:            raw,
		ResetURL:         s.resetURL(raw, u.Email),
		ExpiresInMinutes: int(s.cfg.TTL / time.Minute),
	}
	if err := s.mail.PublishRecoveryMail(ctx, job); err != nil {
		s.log.Error("recovery mail dispatch failed", "user_id", u.ID, "err", err)
		return ErrMailDispatch
	}
	s.log.Info("recovery mail queued", "user_id", u.ID)
	return nil
}

func (s *RecoveryService) resetURL(token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	base, err := url.Parse(s.cfg.FrontendURL)
	if err != nil {
		return s.cfg.FrontendURL + "?" + q.Encode()
	}
	merged := base.Query()
	for k, v := range q {
		merged[k] = v
	}
	base.RawQuery = merged.Encode()
	return base.String()
}

// ResetInput is a validated password reset request.
type ResetInput struct {
	Token    string
	Email    string
	Password string
}

// Reset consumes the reset token, stores the new password and logs the
// user in.  Every token or user mismatch is ErrInvalidResetToken.
func (s *RecoveryService) Reset(ctx context.Context, in ResetInput) (TokenPair, error) {
	email := normalizeEmail(in.Email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return TokenPair{}, ErrInvalidResetToken
		}
		return TokenPair{}, err
	}

	notBefore := s.now().UTC().Add(-s.cfg.TTL)
	if err := s.resets.Consume(ctx, email, utils.HashToken(in.Token), notBefore); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return TokenPair{}, ErrInvalidResetToken
		}
		return TokenPair{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.auth.cfg.BcryptCost)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return TokenPair{}, err
	}

	ev := queue.PasswordResetEvent{UserID: u.ID, Email: u.Email, ResetAt: s.now().UTC()}
	if err := s.mail.PublishPasswordReset(ctx, ev); err != nil {
		s.log.Warn("password reset event not published", "user_id", u.ID, "err", err)
	}
	s.log.Info("password reset", "user_id", u.ID)
	return s.auth.Issue(ctx, u)
}
