package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/HA0N1/pre-onboarding/internal/hash"
	"github.com/HA0N1/pre-onboarding/internal/models"
	"github.com/HA0N1/pre-onboarding/internal/repo"
	"github.com/HA0N1/pre-onboarding/internal/tokens"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Authority{}))

	return &AuthService{
		Repo:   repo.GormRepo{DB: db},
		Hasher: hash.New(bcrypt.MinCost),
		Issuer: tokens.Issuer{
			AccessSecret:  []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		Verifier: tokens.Verifier{
			AccessSecret:  []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
	}
}

func TestAuthService_Register_SuccessAndConflict(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "Al", "pw1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Al", user.Nickname)
	assert.Equal(t, []string{models.RoleUser}, user.RoleNames())
	assert.NotEqual(t, "pw1", user.PasswordHash)

	dup, err := svc.Register(ctx, "alice", "Other", "pw2")
	assert.Nil(t, dup)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		nickname string
		password string
	}{
		{name: "empty username", username: "", nickname: "Al", password: "pw"},
		{name: "empty nickname", username: "alice", nickname: "", password: "pw"},
		{name: "empty password", username: "alice", nickname: "Al", password: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user, err := svc.Register(ctx, tt.username, tt.nickname, tt.password)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Login_IssuesAndStoresTokens(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Al", "pw1")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.NotNil(t, pair)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.AccessExp.After(time.Now()))
	assert.True(t, pair.RefreshExp.After(pair.AccessExp))

	claims, err := svc.Verifier.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	stored, err := svc.Repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, stored.RefreshToken)
}

func TestAuthService_Login_SameErrorForUnknownUserAndWrongPassword(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Al", "pw1")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody", "pw1")
	_, wrongPwErr := svc.Login(ctx, "alice", "wrong")

	require.Error(t, unknownErr)
	require.Error(t, wrongPwErr)
	assert.ErrorIs(t, unknownErr, ErrAuthFailed)
	assert.ErrorIs(t, wrongPwErr, ErrAuthFailed)
	assert.Equal(t, unknownErr.Error(), wrongPwErr.Error())
}

func TestAuthService_Login_Twice_OverwritesStoredRefreshToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Al", "pw1")
	require.NoError(t, err)

	first, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	stored, err := svc.Repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, second.RefreshToken, stored.RefreshToken)
	assert.NotEqual(t, first.RefreshToken, stored.RefreshToken)

	// Stored-token binding is not checked on refresh, so the superseded
	// token still mints access tokens until it expires.
	access, _, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, access)
}

func TestAuthService_Refresh_ReturnsAccessTokenForSameUser(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Al", "pw1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	access, exp, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	assert.True(t, exp.After(time.Now()))

	claims, err := svc.Verifier.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestAuthService_Refresh_ExpiredAndInvalid(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	expiredIssuer := svc.Issuer
	expiredIssuer.RefreshTTL = -time.Minute
	expired, _, err := expiredIssuer.IssueRefresh("alice")
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, expired)
	assert.ErrorIs(t, err, tokens.ErrExpired)

	_, _, err = svc.Refresh(ctx, "not-a-valid-jwt")
	assert.ErrorIs(t, err, tokens.ErrInvalid)
}

func TestAuthService_LogOut_TokenMismatch(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	err := svc.LogOut(context.Background(), "X", "Y")
	assert.ErrorIs(t, err, ErrTokenMismatch)
}

func TestAuthService_LogOut_ClearsStoredRefreshToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Al", "pw1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	require.NoError(t, svc.LogOut(ctx, pair.AccessToken, pair.AccessToken))

	stored, err := svc.Repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshToken)

	// Second logout hits an already cleared token and must not error.
	require.NoError(t, svc.LogOut(ctx, pair.AccessToken, pair.AccessToken))
}

func TestAuthService_LogOut_InvalidToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	err := svc.LogOut(context.Background(), "garbage", "garbage")
	assert.ErrorIs(t, err, tokens.ErrInvalid)
}
