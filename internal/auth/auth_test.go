package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

func TestJWTSignParseRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.Sign(42, "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := manager.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestJWTParseRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-one", time.Hour).Sign(1, "a@example.com")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-two", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTParseRejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.Sign(1, "a@example.com")
	require.NoError(t, err)

	_, err = manager.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTParseRejectsGarbage(t *testing.T) {
	_, err := NewJWTManager("test-secret", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "hunter2hunter2"))
	assert.False(t, CheckPassword(hash, "wrong-password"))
}

func TestTokenFromRequestQueryParameter(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	assert.Equal(t, "from-query", TokenFromRequest(r))
}

func TestTokenFromRequestBearerHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r))
}

func TestTokenFromRequestQueryWinsOverHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-query", TokenFromRequest(r))
}

func TestTokenFromRequestMalformedHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, TokenFromRequest(r))
}

func TestTokenFromRequestNoToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	assert.Empty(t, TokenFromRequest(r))
}

type stubUserRepo struct {
	users map[int]models.User
}

func (s stubUserRepo) CreateUser(ctx context.Context, email, name, passwordHash string) (models.User, error) {
	return models.User{}, errors.New("not implemented")
}

func (s stubUserRepo) GetByID(ctx context.Context, userID int) (models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, repositories.ErrUserNotFound
	}
	return user, nil
}

func (s stubUserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return models.User{}, repositories.ErrUserNotFound
}

func (s stubUserRepo) SearchUsers(ctx context.Context, query string, excludeUserID, limit int) ([]models.PublicProfile, error) {
	return nil, nil
}

func TestVerifierRejectsEmptyToken(t *testing.T) {
	verifier := NewTokenVerifier(NewJWTManager("test-secret", time.Hour), stubUserRepo{})

	_, err := verifier.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestVerifierResolvesUser(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	repo := stubUserRepo{users: map[int]models.User{7: {ID: 7, Email: "bob@example.com"}}}
	verifier := NewTokenVerifier(manager, repo)

	token, err := manager.Sign(7, "bob@example.com")
	require.NoError(t, err)

	user, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
}

func TestVerifierMissingUser(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	verifier := NewTokenVerifier(manager, stubUserRepo{})

	token, err := manager.Sign(99, "ghost@example.com")
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
