// Package service holds the auth and password recovery use cases.  It
// talks to storage only through the small interfaces declared here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/lessons-api/internal/auth"
	"github.com/iliyamo/lessons-api/internal/model"
	"github.com/iliyamo/lessons-api/internal/repository"
	"github.com/iliyamo/lessons-api/internal/utils"
)

// maxIssueAttempts bounds refresh token re-rolls on hash collision.
const maxIssueAttempts = 5

// UserStore is the user persistence the services need.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Create(ctx context.Context, name, email, passwordHash string, roles ...string) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// RefreshStore keeps hashed refresh tokens.  Redeem must be atomic: of two
// concurrent calls for the same hash at most one succeeds.
type RefreshStore interface {
	Insert(ctx context.Context, tokenHash string, userID uint64, exp time.Time) error
	Redeem(ctx context.Context, tokenHash string) (uint64, error)
	Revoke(ctx context.Context, userID uint64, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AccessRevoker denies access tokens by jti until they expire.
type AccessRevoker interface {
	Deny(ctx context.Context, jti string, exp time.Time) error
}

// TokenSettings are the signing key and lifetimes used when issuing tokens.
type TokenSettings struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID    uint64   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// ProfileOf converts a stored user to its public view.
func ProfileOf(u model.User) UserProfile {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserProfile{ID: u.ID, Name: u.Name, Email: u.Email, Roles: roles}
}

// TokenPair is returned by login, refresh and reset.
type TokenPair struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	User         UserProfile `json:"user"`
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService implements registration, login, token rotation and logout.
type AuthService struct {
	users   UserStore
	tokens  RefreshStore
	revoker AccessRevoker
	cfg     TokenSettings
	log     *slog.Logger
}

// NewAuthService wires the service.  revoker may be nil, in which case
// logout only revokes refresh tokens.
func NewAuthService(users UserStore, tokens RefreshStore, revoker AccessRevoker, cfg TokenSettings, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, revoker: revoker, cfg: cfg, log: log}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates a user with the default role.  A taken email is a
// validation error on the email field.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (UserProfile, error) {
	email := normalizeEmail(in.Email)
	taken := NewValidationError("email", "The email has already been taken.")

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return UserProfile{}, taken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return UserProfile{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return UserProfile{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Create(ctx, strings.TrimSpace(in.Name), email, hash, auth.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return UserProfile{}, taken
		}
		return UserProfile{}, err
	}
	s.log.Info("user registered", "user_id", u.ID)
	return ProfileOf(u), nil
}

// Login checks credentials and issues a token pair.  Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if utils.NeedsRehash(u.PasswordHash, s.cfg.BcryptCost) {
		s.rehash(ctx, u.ID, password)
	}
	return s.Issue(ctx, u)
}

// rehash upgrades a stored hash to the configured cost.  Failures are
// logged and retried on the next login.
func (s *AuthService) rehash(ctx context.Context, userID uint64, password string) {
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hash)
	}
	if err != nil {
		s.log.Warn("password rehash failed", "user_id", userID, "err", err)
	}
}

// Refresh redeems a refresh token and issues a new pair.  The presented
// token is consumed before anything else happens, so it works exactly once.
func (s *AuthService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	userID, err := s.tokens.Redeem(ctx, utils.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	return s.Issue(ctx, u)
}

// Logout revokes the given refresh token, or every refresh token of the
// principal when refreshRaw is empty, and denies the current access token.
func (s *AuthService) Logout(ctx context.Context, p auth.Principal, refreshRaw string) error {
	refreshRaw = strings.TrimSpace(refreshRaw)
	var err error
	if refreshRaw != "" {
		err = s.tokens.Revoke(ctx, p.UserID, utils.HashToken(refreshRaw))
	} else {
		err = s.tokens.RevokeAllForUser(ctx, p.UserID)
	}
	if err != nil {
		return err
	}
	if s.revoker != nil {
		if err := s.revoker.Deny(ctx, p.TokenID, p.ExpiresAt); err != nil {
			return fmt.Errorf("deny access token: %w", err)
		}
	}
	return nil
}

// Me returns the profile of the principal.
func (s *AuthService) Me(ctx context.Context, p auth.Principal) (UserProfile, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return UserProfile{}, ErrUnauthenticated
		}
		return UserProfile{}, err
	}
	return ProfileOf(u), nil
}

// Issue signs an access token for u and stores a fresh refresh token,
// re-rolling the refresh token when the store reports a collision.
func (s *AuthService) Issue(ctx context.Context, u model.User) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.Secret, u.ID, u.Roles, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTL)
		if err != nil {
			return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
		}
		err = s.tokens.Insert(ctx, utils.HashToken(refresh.Raw), u.ID, refresh.Exp)
		if errors.Is(err, repository.ErrTokenExists) {
			continue
		}
		if err != nil {
			return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
		}
		return TokenPair{
			AccessToken:  access.Token,
			RefreshToken: refresh.Raw,
			TokenType:    "bearer",
			ExpiresIn:    int64(s.cfg.AccessTTL / time.Second),
			User:         ProfileOf(u),
		}, nil
	}
	return TokenPair{}, errors.New("store refresh token: too many collisions")
}
