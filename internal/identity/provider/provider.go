// Package provider defines the identity-provider boundary consumed by the
// session manager: sign-in/out primitives, token fetch, and two independent
// push event streams (auth-state and token-change). The two streams are not
// synchronized with each other; consumers must not assume an ordering
// between them.
package provider

import (
	"context"
	"errors"

	"github.com/fairmarket/identity/internal/identity/domain"
)

var (
	ErrInvalidCredentials = errors.New("provider: invalid credentials")
	ErrTooManyRequests    = errors.New("provider: too many requests")
	ErrNetwork            = errors.New("provider: network error")
	ErrNoSession          = errors.New("provider: no active session")
)

// AuthStateCallback receives the new session user on sign-in and nil on
// sign-out.
type AuthStateCallback func(user *domain.SessionUser)

// TokenCallback receives every freshly minted credential for the current
// session.
type TokenCallback func(cred *domain.Credential)

// IdentityProvider supplies authentication primitives and event streams.
type IdentityProvider interface {
	// SignIn authenticates the user and establishes the provider session.
	SignIn(ctx context.Context, email, password string) (domain.SessionUser, error)

	// SignOut tears down the provider session.
	SignOut(ctx context.Context) error

	// GetToken returns a credential for the current session. force bypasses
	// any provider-side cache and mints a fresh token.
	GetToken(ctx context.Context, force bool) (domain.Credential, error)

	// SubscribeAuthState registers cb on the auth-state stream and returns
	// its removal function.
	SubscribeAuthState(cb AuthStateCallback) (unsubscribe func())

	// SubscribeTokenChange registers cb on the token stream and returns its
	// removal function.
	SubscribeTokenChange(cb TokenCallback) (unsubscribe func())
}
