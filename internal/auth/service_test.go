package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]User)}
}

func (m *memUsers) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return ErrEmailTaken
	}
	m.users[u.Email] = u
	return nil
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func newTestService() *Service {
	return NewService(newMemUsers(), "test-secret", time.Minute, time.Hour, nil)
}

func TestSignUpAndSignIn(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tokens, err := s.SignUp(ctx, "User@Example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	// Email is normalized, so sign-in with any casing works.
	again, err := s.SignInWithPassword(ctx, "user@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, tokens.UserID, again.UserID)

	userID, err := s.ValidateAccessToken(again.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.UserID, userID)
}

func TestSignUpRejectsDuplicatesAndWeakInput(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SignUp(ctx, "a@b.c", "long enough pw")
	require.NoError(t, err)

	_, err = s.SignUp(ctx, "a@b.c", "another password")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.SignUp(ctx, "not-an-email", "long enough pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.SignUp(ctx, "b@b.c", "short")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.SignUp(ctx, "a@b.c", "correct horse")
	require.NoError(t, err)

	_, err = s.SignInWithPassword(ctx, "a@b.c", "wrong horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.SignInWithPassword(ctx, "nobody@b.c", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tokens, err := s.SignUp(ctx, "a@b.c", "correct horse")
	require.NoError(t, err)

	rotated, err := s.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.UserID, rotated.UserID)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The old refresh token is dead after rotation.
	_, err = s.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestSignOutInvalidatesRefreshToken(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tokens, err := s.SignUp(ctx, "a@b.c", "correct horse")
	require.NoError(t, err)

	s.SignOut(ctx, tokens.RefreshToken)
	_, err = s.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	s := newTestService()

	_, err := s.ValidateAccessToken("not a token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(newMemUsers(), "other-secret", time.Minute, time.Hour, nil)
	tokens, err := other.SignUp(context.Background(), "a@b.c", "correct horse")
	require.NoError(t, err)

	_, err = s.ValidateAccessToken(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "token signed with a different secret")
}
