package domain

import "time"

// CredentialClaims are the identity facts embedded in a bearer token.
type CredentialClaims struct {
	Subject string
	Email   string
	Role    Role
	SID     string // Provider session id, stable across refreshes
}

// Credential is an opaque bearer token plus its metadata. It is owned by the
// session manager and replaced wholesale on every refresh, never mutated
// field by field.
type Credential struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Claims      CredentialClaims
}

// TTL returns the remaining lifetime of the credential at time now.
func (c Credential) TTL(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// SessionUser identifies who the provider says is currently signed in.
type SessionUser struct {
	ID    string
	Email string
	Role  Role
}
