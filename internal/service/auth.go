package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HA0N1/pre-onboarding/internal/audit"
	"github.com/HA0N1/pre-onboarding/internal/hash"
	"github.com/HA0N1/pre-onboarding/internal/logging"
	"github.com/HA0N1/pre-onboarding/internal/models"
	"github.com/HA0N1/pre-onboarding/internal/mykafka"
	"github.com/HA0N1/pre-onboarding/internal/repo"
	"github.com/HA0N1/pre-onboarding/internal/tokens"
)

var (
	ErrValidation = errors.New("required field missing")
	ErrConflict   = errors.New("user already exists")
	// ErrAuthFailed is returned both for an unknown username and a wrong
	// password, the caller must not learn which check failed.
	ErrAuthFailed    = errors.New("invalid username or password")
	ErrTokenMismatch = errors.New("token mismatch")
)

type AuthService struct {
	Repo     repo.GormRepo
	Hasher   hash.Hasher
	Issuer   tokens.Issuer
	Verifier tokens.Verifier
	Producer *mykafka.Producer
	Audit    *audit.Recorder
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *AuthService) Register(ctx context.Context, username, nickname, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if username == "" || nickname == "" || password == "" {
		return nil, ErrValidation
	}

	pwHash, err := s.Hasher.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Repo.CreateUser(ctx, username, nickname, pwHash)
	if err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "reason", "user already exist", "username", username)
			return nil, ErrConflict
		}
		l.Error("register_error", "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, username, "user_registered")
	l.Info("register_successful", "username", username, "roles", user.RoleNames())
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("login_failed", "reason", "auth failed")
			return nil, ErrAuthFailed
		}
		l.Error("login_failed", "error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.Hasher.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "reason", "auth failed")
		return nil, ErrAuthFailed
	}

	accessToken, accessExp, err := s.Issuer.IssueAccess(username)
	if err != nil {
		l.Error("login_failed", "error", err)
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, refreshExp, err := s.Issuer.IssueRefresh(username)
	if err != nil {
		l.Error("login_failed", "error", err)
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	// Overwriting here is what invalidates the previous session's refresh
	// token, one active refresh token per user.
	if err := s.Repo.SetRefreshToken(ctx, username, refreshToken); err != nil {
		l.Error("login_failed", "error", err)
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.publish(ctx, username, "user_logged_in")
	s.audit(ctx, username, "login")
	l.Info("login_successful")

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh mints a new access token from a valid refresh token. The token is
// not compared against the stored one, any unexpired refresh token with a
// good signature works.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Verifier.VerifyRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "error", err)
		return "", time.Time{}, err
	}

	accessToken, accessExp, err := s.Issuer.IssueAccess(claims.Username)
	if err != nil {
		l.Error("refresh_failed", "error", err)
		return "", time.Time{}, fmt.Errorf("issue access token: %w", err)
	}

	l.Info("refresh_successful", "username", claims.Username)
	return accessToken, accessExp, nil
}

// LogOut clears the stored refresh token for the token's user. The presented
// token must be byte-identical to the session token attached by the auth
// gate, so a caller cannot log out with a foreign token value.
func (s *AuthService) LogOut(ctx context.Context, presentedToken, sessionToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if presentedToken != sessionToken {
		l.Warn("logout_failed", "reason", "token mismatch")
		return ErrTokenMismatch
	}

	claims, err := s.Verifier.VerifyAccess(presentedToken)
	if err != nil {
		l.Warn("logout_failed", "error", err)
		return err
	}

	if err := s.Repo.ClearRefreshToken(ctx, claims.Username); err != nil {
		l.Error("logout_failed", "error", err)
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.publish(ctx, claims.Username, "user_logged_out")
	s.audit(ctx, claims.Username, "logout")
	l.Info("logout_successful", "username", claims.Username)
	return nil
}

// publish and audit are best effort, a broken broker or index never fails
// the auth operation itself.
func (s *AuthService) publish(ctx context.Context, username, eventType string) {
	event := map[string]interface{}{
		"type":     eventType,
		"username": username,
	}
	if err := s.Producer.PublishEvent(ctx, username, event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "error", err)
	}
}

func (s *AuthService) audit(ctx context.Context, username, event string) {
	entry := audit.Entry{
		Event:    event,
		Username: username,
		At:       time.Now().UTC(),
	}
	if err := s.Audit.Record(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("audit_record_error", "error", err)
	}
}
