// Package auth resolves the signed-in user from a session token.
package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken means no session token was found.
	ErrNoToken = errors.New("no session token")
	// ErrNoSubject means the token names no user.
	ErrNoSubject = errors.New("session token has no user id")
)

// Identity is the signed-in user.
type Identity struct {
	UserID string
	Email  string
}

// Provider reports the current identity, if any.
type Provider interface {
	Current() (Identity, bool)
}

// Static is a Provider with a fixed identity. The zero value is signed out.
type Static Identity

// Current returns the identity when it has a user id.
func (s Static) Current() (Identity, bool) {
	return Identity(s), s.UserID != ""
}

// Claims is the session token payload. Tokens issued by the hosted
// identity service carry user_id; others carry only sub.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (c *Claims) identity() Identity {
	id := Identity{UserID: c.UserID, Email: c.Email}
	if id.UserID == "" {
		id.UserID = c.Subject
	}
	return id
}

// TokenProvider reads the identity out of a session JWT.
type TokenProvider struct {
	token string
	key   []byte
	now   func() time.Time
}

// NewTokenProvider verifies tokens with signingKey when it is non-empty.
// Without a key the token is only decoded and checked for expiry; the
// backend remains the authority on whether it is accepted.
func NewTokenProvider(token string, signingKey []byte) *TokenProvider {
	return &TokenProvider{token: token, key: signingKey, now: time.Now}
}

// Current returns the token's identity, or false when the token is
// missing, invalid or expired.
func (p *TokenProvider) Current() (Identity, bool) {
	id, err := p.Parse()
	if err != nil {
		return Identity{}, false
	}
	return id, true
}

// Parse decodes the token and returns its identity.
func (p *TokenProvider) Parse() (Identity, error) {
	if p.token == "" {
		return Identity{}, ErrNoToken
	}

	claims := &Claims{}
	if len(p.key) > 0 {
		_, err := jwt.ParseWithClaims(p.token, claims,
			func(_ *jwt.Token) (any, error) {
				return p.key, nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(p.now),
		)
		if err != nil {
			return Identity{}, fmt.Errorf("verifying session token: %w", err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(p.token, claims); err != nil {
			return Identity{}, fmt.Errorf("decoding session token: %w", err)
		}
		if claims.ExpiresAt != nil && !p.now().Before(claims.ExpiresAt.Time) {
			return Identity{}, fmt.Errorf("decoding session token: %w", jwt.ErrTokenExpired)
		}
	}

	id := claims.identity()
	if id.UserID == "" {
		return Identity{}, ErrNoSubject
	}
	return id, nil
}

// GenerateToken signs a development session token for userID.
func GenerateToken(signingKey []byte, userID, email string, ttl time.Duration) (string, error) {
	if len(signingKey) == 0 {
		return "", errors.New("signing key is required")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "notifier",
		},
		UserID: userID,
		Email:  email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Lookup reads a secret by key, e.g. from the system keyring.
type Lookup func(key string) (string, error)

// Resolve returns the value of the environment variable env when set,
// otherwise the result of lookup(key). A missing secret is "".
func Resolve(env, key string, lookup Lookup) string {
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if lookup == nil {
		return ""
	}
	v, err := lookup(key)
	if err != nil {
		return ""
	}
	return v
}
