package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// Verifier resolves a raw bearer token to an existing user. It is the only
// authentication capability the gateway and middleware consume.
type Verifier interface {
	Verify(ctx context.Context, token string) (models.User, error)
}

// TokenVerifier validates the JWT and loads the subject from the user store.
type TokenVerifier struct {
	jwt   *JWTManager
	users repositories.UserRepository
}

// NewTokenVerifier builds a TokenVerifier.
func NewTokenVerifier(jwtManager *JWTManager, users repositories.UserRepository) *TokenVerifier {
	return &TokenVerifier{jwt: jwtManager, users: users}
}

// Verify implements Verifier.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrTokenMissing
	}

	userID, err := v.jwt.Parse(token)
	if err != nil {
		return models.User{}, err
	}

	user, err := v.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// TokenFromRequest extracts the bearer token from the handshake request,
// checking the query parameter first and the Authorization header second.
// An empty result means the client still may supply the token in an auth
// payload frame after the upgrade.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func jwtSubject(userID int) string {
	return strconv.Itoa(userID)
}

func jwtUserID(subject string) (int, error) {
	return strconv.Atoi(subject)
}
