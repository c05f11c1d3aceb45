package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the backend's token claims the client reads
type Claims struct {
	Subject   string    `json:"sub"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

// Expired reports whether the token carries an expiry that has passed.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseClaims decodes token without verifying its signature. The client never
// holds the signing key; the result is informational only and the backend
// remains the authority on validity.
func ParseClaims(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid expiry claim: %w", err)
	}

	claims := &Claims{Subject: sub}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// expiredToken reports whether a persisted token is known to be expired.
// Tokens that cannot be parsed are kept; the backend decides.
func expiredToken(token string, now time.Time) bool {
	claims, err := ParseClaims(token)
	if err != nil {
		return false
	}
	return claims.Expired(now)
}
