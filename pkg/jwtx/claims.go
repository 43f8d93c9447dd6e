package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the default lifetime for access tokens issued by
// the local provider. Short-lived so a revoked administrator loses access
// quickly.
const DefaultAccessTokenTTL = time.Hour

// Claims are the access-token claims carried by marketplace bearer tokens.
// Keep changes additive to preserve compatibility with tokens in flight.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the provider session id, stable across token refreshes within
	// one sign-in.
	SID string `json:"sid,omitempty"`

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// Role is the administrator role string (empty for non-admin users).
	Role string `json:"role,omitempty"`

	// UserType is the marketplace user kind (consumer, producer, partner, admin).
	UserType string `json:"user_type,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for a session token.
func NewSessionClaims(
	subject, sid, email, role, userType string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:      sid,
		Email:    email,
		Role:     role,
		UserType: userType,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Every
// minted token gets a fresh one, which is what makes two refreshes of the
// same session produce distinct token strings.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}

// ExpiresAtTime returns the exp claim as a time.Time, zero when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the iat claim as a time.Time, zero when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
