package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the locally decoded view of a bearer token. The decode is
// unverified and for display only; token lifetime is server-enforced and a
// 401 response remains the authoritative expiry signal.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// InspectToken decodes the token's claims without verifying its signature.
func InspectToken(token string) (*Claims, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	out := &Claims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// Expired reports whether the token's embedded expiry has passed. A token
// without an expiry claim is treated as not expired; the server decides.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return now.After(c.ExpiresAt)
}
