package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/atinyakov/go-shortlink/internal/storage"
)

// AuthIface defines the session authentication interface used in middleware.
type AuthIface interface {
	BuildJWTString(ctx context.Context) (string, string, error)
	ParseClaims(c *http.Cookie) (*Claims, error)
}

// Claims represents the claims included in the session token. It embeds the
// RegisteredClaims from the JWT package and adds a custom UserID field.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenExp defines the expiration time of the session token (1 year).
const TokenExp = time.Hour * 24 * 365

// Auth provides methods for building and parsing session tokens. A new
// session also creates the backing user row, so every session identity can
// own links and be issued an API key.
type Auth struct {
	storage storage.Storage
	secret  []byte
}

// NewAuth creates a new Auth instance signing tokens with the server secret.
func NewAuth(s storage.Storage, secret string) *Auth {
	return &Auth{
		storage: s,
		secret:  []byte(secret),
	}
}

// BuildJWTString registers a new user and returns a signed session token for
// them along with the user id.
func (a *Auth) BuildJWTString(ctx context.Context) (string, string, error) {
	var userID string

	// UUID collisions are vanishingly rare, but the storage constraint is
	// what actually guarantees uniqueness.
	for {
		tempID := uuid.New().String()
		now := time.Now()
		err := a.storage.CreateUser(ctx, storage.User{ID: tempID, CreatedAt: now, UpdatedAt: now})
		if err == nil {
			userID = tempID
			break
		}
		if !errors.Is(err, storage.ErrConflict) {
			return "", "", fmt.Errorf("auth: creating user: %w", err)
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenExp)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", "", err
	}

	return tokenString, userID, nil
}

// ParseClaims parses the session token from the provided HTTP cookie and
// returns the claims embedded within it.
func (a *Auth) ParseClaims(c *http.Cookie) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: invalid token")
	}

	return claims, nil
}
