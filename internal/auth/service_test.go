package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/gofer/internal/auth"
	"github.com/gosuda/gofer/internal/domain"
	"github.com/gosuda/gofer/internal/store/memory"
)

// mockServiceRepo is a configurable domain.UserRepository for failure paths
// the in-memory store cannot produce.
type mockServiceRepo struct {
	getByEmailUser *domain.User
	getByEmailErr  error

	getByIDUser *domain.User
	getByIDErr  error

	createErr   error
	createdUser *domain.User
}

func (m *mockServiceRepo) Create(_ context.Context, u *domain.User) error {
	m.createdUser = u
	return m.createErr
}

func (m *mockServiceRepo) GetByID(context.Context, uuid.UUID) (*domain.User, error) {
	return m.getByIDUser, m.getByIDErr
}

func (m *mockServiceRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return m.getByEmailUser, m.getByEmailErr
}

const (
	testJWTSecret = "test-secret-key-for-unit-tests-0123456789"
	testEmail     = "alice@campus.edu"
	testPassword  = "correct-horse-battery-staple"
	testUserName  = "Alice"
)

var (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

func newTestService(repo domain.UserRepository) *auth.Service {
	return auth.NewService(repo, testJWTSecret, testAccessTTL, testRefreshTTL)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("happy path creates user with hashed password", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		svc := newTestService(memory.NewUserRepo())
		user, err := svc.Register(ctx, "  Alice@Campus.edu ", testPassword, " Alice ")

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.Equal(t, testEmail, user.Email, "email is trimmed and lowercased")
		assert.Equal(t, testUserName, user.Name)
		assert.NotEqual(t, testPassword, user.PasswordHash)
		assert.Contains(t, user.PasswordHash, "$")
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		svc := newTestService(memory.NewUserRepo())
		_, err := svc.Register(ctx, testEmail, testPassword, testUserName)
		require.NoError(t, err)

		_, err = svc.Register(ctx, "ALICE@campus.edu", testPassword, "Other Alice")
		assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
	})

	t.Run("create conflict maps to already exists", func(t *testing.T) {
		t.Parallel()

		repo := &mockServiceRepo{
			getByEmailErr: domain.ErrNotFound,
			createErr:     domain.ErrConflict,
		}
		_, err := newTestService(repo).Register(t.Context(), testEmail, testPassword, testUserName)
		assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
	})

	t.Run("repo Create error is propagated", func(t *testing.T) {
		t.Parallel()

		repoErr := errors.New("database connection refused")
		repo := &mockServiceRepo{
			getByEmailErr: domain.ErrNotFound,
			createErr:     repoErr,
		}
		user, err := newTestService(repo).Register(t.Context(), testEmail, testPassword, testUserName)
		require.Error(t, err)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, repoErr)
	})

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()

		_, err := newTestService(memory.NewUserRepo()).Register(t.Context(), "not-an-email", testPassword, testUserName)
		assert.ErrorIs(t, err, auth.ErrInvalidEmail)
	})

	t.Run("short password", func(t *testing.T) {
		t.Parallel()

		_, err := newTestService(memory.NewUserRepo()).Register(t.Context(), testEmail, "short", testUserName)
		assert.ErrorIs(t, err, auth.ErrWeakPassword)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*auth.Service, *domain.User) {
		t.Helper()

		svc := newTestService(memory.NewUserRepo())
		user, err := svc.Register(t.Context(), testEmail, testPassword, testUserName)
		require.NoError(t, err)
		return svc, user
	}

	t.Run("happy path returns two valid tokens", func(t *testing.T) {
		t.Parallel()

		svc, user := setup(t)
		tokens, err := svc.Login(t.Context(), testEmail, testPassword)
		require.NoError(t, err)
		assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
		assert.Equal(t, testAccessTTL, tokens.ExpiresIn)

		access, err := auth.ValidateToken(testJWTSecret, tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "access", access.TokenType)
		assert.Equal(t, user.ID.String(), access.Subject)

		refresh, err := auth.ValidateToken(testJWTSecret, tokens.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "refresh", refresh.TokenType)
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		t.Parallel()

		svc, _ := setup(t)
		_, err := svc.Login(t.Context(), "ALICE@CAMPUS.EDU", testPassword)
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		svc, _ := setup(t)
		tokens, err := svc.Login(t.Context(), testEmail, "wrong-password")
		require.Error(t, err)
		assert.Nil(t, tokens)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		svc, _ := setup(t)
		_, err := svc.Login(t.Context(), "nobody@campus.edu", testPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("corrupt stored hash", func(t *testing.T) {
		t.Parallel()

		repo := &mockServiceRepo{getByEmailUser: &domain.User{ID: uuid.New(), Email: testEmail, PasswordHash: "no-separator"}}
		_, err := newTestService(repo).Login(t.Context(), testEmail, testPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("refresh token yields new access token", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		svc := newTestService(memory.NewUserRepo())
		user, err := svc.Register(ctx, testEmail, testPassword, testUserName)
		require.NoError(t, err)
		tokens, err := svc.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		access, err := svc.RefreshToken(ctx, tokens.RefreshToken)
		require.NoError(t, err)

		identity, err := svc.VerifyAccessToken(access)
		require.NoError(t, err)
		assert.Equal(t, user.ID, identity.UserID)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueAccessToken(testJWTSecret, uuid.New(), time.Minute)
		require.NoError(t, err)

		_, err = newTestService(&mockServiceRepo{}).RefreshToken(t.Context(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("deleted user", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueRefreshToken(testJWTSecret, uuid.New(), time.Hour)
		require.NoError(t, err)

		repo := &mockServiceRepo{getByIDErr: domain.ErrNotFound}
		_, err = newTestService(repo).RefreshToken(t.Context(), token)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()

		_, err := newTestService(&mockServiceRepo{}).RefreshToken(t.Context(), "garbage")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestVerifyAccessToken_RejectsRefreshToken(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueRefreshToken(testJWTSecret, uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = newTestService(&mockServiceRepo{}).VerifyAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
