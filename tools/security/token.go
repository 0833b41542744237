package security

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// TokenInfo holds the claims the client cares about. Platform access tokens
// are JWTs; the client cannot verify the signature (the secret lives server
// side), it only inspects claims to fail fast on an obviously dead token
// before paying for a gateway handshake.
type TokenInfo struct {
	Raw       string
	Subject   string
	ExpiresAt time.Time
}

// Inspect parses a bearer token without verifying its signature.
// A leading "Bearer " prefix is tolerated.
func Inspect(token string) (*TokenInfo, error) {
	raw := strings.TrimSpace(token)
	if lower := strings.ToLower(raw); strings.HasPrefix(lower, "bearer ") {
		raw = strings.TrimSpace(raw[len("bearer "):])
	}
	if raw == "" {
		return nil, errors.New("empty token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrap(err, "parse token")
	}

	info := &TokenInfo{Raw: raw}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// Expired reports whether the token has an expiry in the past.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && t.ExpiresAt.Before(now)
}
