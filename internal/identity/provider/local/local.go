// Package local implements provider.IdentityProvider in-process: argon2id
// password accounts and Ed25519-signed JWT credentials. It backs the service
// binary in dev and the test suites; production deployments swap in a real
// provider behind the same interface.
package local

import (
	"context"
	"sync"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/fairmarket/identity/internal/identity/provider"
	"github.com/fairmarket/identity/pkg/cryptox"
	"github.com/fairmarket/identity/pkg/jwtx"
)

type account struct {
	id           string
	email        string
	role         domain.Role
	userType     domain.UserType
	passwordHash string
}

type session struct {
	user domain.SessionUser
	sid  string
}

// Provider is an in-process identity provider. One provider holds one
// current session, mirroring the one-session-per-process model of the
// upstream service.
type Provider struct {
	signer *jwtx.EdDSASigner
	issuer string
	ttl    time.Duration

	mu             sync.Mutex
	accounts       map[string]account // keyed by email
	current        *session
	nextListener   int
	authListeners  map[int]provider.AuthStateCallback
	tokenListeners map[int]provider.TokenCallback
}

func New(signer *jwtx.EdDSASigner, issuer string, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}
	return &Provider{
		signer:         signer,
		issuer:         issuer,
		ttl:            ttl,
		accounts:       make(map[string]account),
		authListeners:  make(map[int]provider.AuthStateCallback),
		tokenListeners: make(map[int]provider.TokenCallback),
	}
}

// Register creates a provider account. Used by bootstrap and tests; the
// admin creation flow calls this after writing the role records.
func (p *Provider) Register(id, email, password string, role domain.Role, userType domain.UserType) error {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[email] = account{
		id:           id,
		email:        email,
		role:         role,
		userType:     userType,
		passwordHash: hash,
	}
	return nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (domain.SessionUser, error) {
	p.mu.Lock()
	acct, ok := p.accounts[email]
	p.mu.Unlock()

	if !ok {
		return domain.SessionUser{}, provider.ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, acct.passwordHash); err != nil {
		return domain.SessionUser{}, provider.ErrInvalidCredentials
	}

	user := domain.SessionUser{ID: acct.id, Email: acct.email, Role: acct.role}

	p.mu.Lock()
	p.current = &session{
		user: user,
		sid:  cryptox.MustGenerateToken(cryptox.TokenSize128),
	}
	authCbs := p.snapshotAuthListeners()
	p.mu.Unlock()

	for _, cb := range authCbs {
		cb(&user)
	}

	return user, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	authCbs := p.snapshotAuthListeners()
	p.mu.Unlock()

	for _, cb := range authCbs {
		cb(nil)
	}
	return nil
}

// GetToken mints a credential for the current session. Every call produces a
// distinct token string (fresh jti) while the embedded claims stay stable
// for the session's lifetime.
func (p *Provider) GetToken(ctx context.Context, force bool) (domain.Credential, error) {
	p.mu.Lock()
	sess := p.current
	p.mu.Unlock()

	if sess == nil {
		return domain.Credential{}, provider.ErrNoSession
	}

	userType := domain.UserTypeAdmin
	p.mu.Lock()
	if acct, ok := p.accounts[sess.user.Email]; ok {
		userType = acct.userType
	}
	p.mu.Unlock()

	now := time.Now().UTC()
	claims := jwtx.NewSessionClaims(
		sess.user.ID, sess.sid, sess.user.Email,
		sess.user.Role.String(), string(userType),
		p.ttl, p.issuer, now,
	)

	signed, err := p.signer.Sign(claims)
	if err != nil {
		return domain.Credential{}, err
	}

	cred := domain.Credential{
		AccessToken: signed,
		IssuedAt:    now,
		ExpiresAt:   now.Add(p.ttl),
		Claims: domain.CredentialClaims{
			Subject: sess.user.ID,
			Email:   sess.user.Email,
			Role:    sess.user.Role,
			SID:     sess.sid,
		},
	}

	p.mu.Lock()
	tokenCbs := p.snapshotTokenListeners()
	p.mu.Unlock()

	for _, cb := range tokenCbs {
		cb(&cred)
	}

	return cred, nil
}

func (p *Provider) SubscribeAuthState(cb provider.AuthStateCallback) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextListener
	p.nextListener++
	p.authListeners[id] = cb

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.authListeners, id)
	}
}

func (p *Provider) SubscribeTokenChange(cb provider.TokenCallback) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextListener
	p.nextListener++
	p.tokenListeners[id] = cb

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.tokenListeners, id)
	}
}

// snapshot helpers run under p.mu; callbacks are invoked outside the lock.

func (p *Provider) snapshotAuthListeners() []provider.AuthStateCallback {
	cbs := make([]provider.AuthStateCallback, 0, len(p.authListeners))
	for _, cb := range p.authListeners {
		cbs = append(cbs, cb)
	}
	return cbs
}

func (p *Provider) snapshotTokenListeners() []provider.TokenCallback {
	cbs := make([]provider.TokenCallback, 0, len(p.tokenListeners))
	for _, cb := range p.tokenListeners {
		cbs = append(cbs, cb)
	}
	return cbs
}
