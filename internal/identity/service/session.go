package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/fairmarket/identity/internal/identity/provider"
)

const (
	// DefaultSignInTimeout bounds how long a sign-in waits on the provider.
	DefaultSignInTimeout = 15 * time.Second

	// DefaultRefreshLead is how far before token expiry the proactive
	// refresh fires.
	DefaultRefreshLead = 5 * time.Minute
)

// Stable error codes attached to provider failures.
const (
	CodeInvalidCredential = "invalid-credential"
	CodeTooManyRequests   = "too-many-requests"
	CodeNetworkError      = "network-error"
	CodeTimeout           = "timeout"
	CodeUnknown           = "unknown"
)

// SessionError enriches a provider failure with a stable code and a message
// suitable for end users. The original error stays reachable via Unwrap.
type SessionError struct {
	Code    string
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SessionError) Unwrap() error { return e.Err }

// SessionConfig tunes the session manager. Zero values fall back to the
// defaults above.
type SessionConfig struct {
	SignInTimeout time.Duration
	RefreshLead   time.Duration
}

type authListener struct {
	id int
	cb provider.AuthStateCallback
}

type tokenListener struct {
	id int
	cb provider.TokenCallback
}

// SessionManager presents a single coherent view of who is authenticated
// and what the current bearer credential is, reconciling the provider's two
// independent event streams with the local credential cache. Construct one
// per process and inject it; there is deliberately no package-level
// singleton so tests can run isolated instances.
type SessionManager struct {
	provider      provider.IdentityProvider
	creds         *CredentialStore
	logger        *slog.Logger
	signInTimeout time.Duration
	refreshLead   time.Duration

	mu             sync.Mutex
	current        *domain.SessionUser
	sessionGen     int // bumped on every sign-in attempt and sign-out
	suppressed     bool
	nextListenerID int
	authListeners  []authListener
	tokenListeners []tokenListener
	unsubAuth      func()
	unsubToken     func()
	refreshTimer   *time.Timer
	refreshGen     int // invalidates timers armed for an older session state
}

func NewSessionManager(
	p provider.IdentityProvider,
	creds *CredentialStore,
	logger *slog.Logger,
	cfg SessionConfig,
) *SessionManager {
	if cfg.SignInTimeout <= 0 {
		cfg.SignInTimeout = DefaultSignInTimeout
	}
	if cfg.RefreshLead <= 0 {
		cfg.RefreshLead = DefaultRefreshLead
	}
	return &SessionManager{
		provider:      p,
		creds:         creds,
		logger:        logger,
		signInTimeout: cfg.SignInTimeout,
		refreshLead:   cfg.RefreshLead,
	}
}

// CurrentUser returns the signed-in user, if any.
func (m *SessionManager) CurrentUser() (domain.SessionUser, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return domain.SessionUser{}, false
	}
	return *m.current, true
}

// Credentials exposes the credential cache (read-side; handlers use it to
// report session state).
func (m *SessionManager) Credentials() *CredentialStore { return m.creds }

// SignIn authenticates against the provider, racing the call against the
// configured timeout. On success it forces a fresh token fetch, persists it
// to the credential cache, and arms the proactive refresh before returning.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (domain.SessionUser, domain.Credential, error) {
	m.mu.Lock()
	m.sessionGen++
	gen := m.sessionGen
	m.mu.Unlock()

	type signInResult struct {
		user domain.SessionUser
		err  error
	}
	resCh := make(chan signInResult, 1)
	go func() {
		user, err := m.provider.SignIn(ctx, email, password)
		resCh <- signInResult{user: user, err: err}
	}()

	timer := time.NewTimer(m.signInTimeout)
	defer timer.Stop()

	var user domain.SessionUser
	select {
	case res := <-resCh:
		if res.err != nil {
			return domain.SessionUser{}, domain.Credential{}, m.mapProviderError("sign-in failed", res.err)
		}
		user = res.user
	case <-timer.C:
		// The provider call is not cancelled; drain its eventual result so
		// a late completion is observed but never acted on.
		go func() {
			res := <-resCh
			m.logger.Warn("provider sign-in completed after timeout, ignoring",
				"email", email, "err", res.err)
		}()
		return domain.SessionUser{}, domain.Credential{}, &SessionError{
			Code:    CodeTimeout,
			Message: "Sign-in timed out. Please try again.",
		}
	}

	m.mu.Lock()
	if gen != m.sessionGen {
		// A newer sign-in or sign-out raced us; drop this result.
		m.mu.Unlock()
		return domain.SessionUser{}, domain.Credential{}, &SessionError{
			Code:    CodeUnknown,
			Message: "Session changed during sign-in.",
		}
	}
	m.current = &user
	m.mu.Unlock()

	// Force a fresh token, bypassing any provider-side cache.
	cred, err := m.provider.GetToken(ctx, true)
	if err != nil {
		return domain.SessionUser{}, domain.Credential{}, m.mapProviderError("token fetch failed", err)
	}
	m.creds.Set(cred)

	m.mu.Lock()
	m.armRefreshLocked(user.ID, cred)
	m.mu.Unlock()

	return user, cred, nil
}

// SignOut clears the credential cache before the provider call so no
// concurrent reader can pick up stale credentials while the provider
// sign-out is in flight.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.creds.Clear()

	m.mu.Lock()
	m.sessionGen++
	m.current = nil
	m.cancelRefreshLocked()
	m.mu.Unlock()

	if err := m.provider.SignOut(ctx); err != nil {
		return m.mapProviderError("sign-out failed", err)
	}
	return nil
}

// RefreshToken fetches a fresh credential and overwrites the cache slot in
// a single assignment. Returns nil without error when nobody is signed in.
func (m *SessionManager) RefreshToken(ctx context.Context, force bool) (*domain.Credential, error) {
	m.mu.Lock()
	signedIn := m.current != nil
	m.mu.Unlock()

	if !signedIn {
		return nil, nil
	}

	cred, err := m.provider.GetToken(ctx, force)
	if err != nil {
		return nil, m.mapProviderError("token refresh failed", err)
	}
	m.creds.Set(cred)
	return &cred, nil
}

// armRefreshLocked arms the one-shot proactive refresh, cancelling any
// previously armed timer first. There is never more than one outstanding
// timer. Callers must hold m.mu.
func (m *SessionManager) armRefreshLocked(userID string, cred domain.Credential) {
	m.cancelRefreshLocked()

	m.refreshGen++
	gen := m.refreshGen

	delay := max(0, cred.TTL(time.Now())-m.refreshLead)
	m.refreshTimer = time.AfterFunc(delay, func() {
		m.onRefreshTimer(gen, userID)
	})
}

func (m *SessionManager) cancelRefreshLocked() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
	m.refreshGen++
}

func (m *SessionManager) onRefreshTimer(gen int, userID string) {
	m.mu.Lock()
	stale := gen != m.refreshGen || m.current == nil || m.current.ID != userID
	m.mu.Unlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.signInTimeout)
	defer cancel()

	cred, err := m.RefreshToken(ctx, true)
	if err != nil || cred == nil {
		m.logger.Warn("scheduled token refresh failed", "user_id", userID, "err", err)
		return
	}

	m.mu.Lock()
	if m.current != nil && m.current.ID == userID {
		m.armRefreshLocked(userID, *cred)
	}
	m.mu.Unlock()
}

// OnAuthStateChanged registers cb for auth-state events and returns its
// unsubscribe function. The provider stream is installed lazily for the
// first subscriber and torn down when the last one leaves.
func (m *SessionManager) OnAuthStateChanged(cb provider.AuthStateCallback) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextListenerID
	m.nextListenerID++
	m.authListeners = append(m.authListeners, authListener{id: id, cb: cb})

	if m.unsubAuth == nil {
		m.unsubAuth = m.provider.SubscribeAuthState(m.handleAuthEvent)
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.authListeners = slices.DeleteFunc(m.authListeners, func(l authListener) bool {
			return l.id == id
		})
		if len(m.authListeners) == 0 && m.unsubAuth != nil {
			m.unsubAuth()
			m.unsubAuth = nil
		}
	}
}

// OnIDTokenChanged registers cb for token-change events, with the same
// reference-counted provider subscription behavior as OnAuthStateChanged.
func (m *SessionManager) OnIDTokenChanged(cb provider.TokenCallback) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextListenerID
	m.nextListenerID++
	m.tokenListeners = append(m.tokenListeners, tokenListener{id: id, cb: cb})

	if m.unsubToken == nil {
		m.unsubToken = m.provider.SubscribeTokenChange(m.handleTokenEvent)
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.tokenListeners = slices.DeleteFunc(m.tokenListeners, func(l tokenListener) bool {
			return l.id == id
		})
		if len(m.tokenListeners) == 0 && m.unsubToken != nil {
			m.unsubToken()
			m.unsubToken = nil
		}
	}
}

// PerformSensitiveOperation runs op with provider events suppressed. Flows
// like MFA enrollment cause transient provider events that are not the real
// final state; while op runs those events neither reach subscribers nor
// touch the credential cache. The flag is always reset, even when op
// panics.
func (m *SessionManager) PerformSensitiveOperation(ctx context.Context, op func(ctx context.Context) error) error {
	m.mu.Lock()
	m.suppressed = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.suppressed = false
		m.mu.Unlock()
	}()

	return op(ctx)
}

// handleAuthEvent is the single provider-level auth-state callback.
func (m *SessionManager) handleAuthEvent(user *domain.SessionUser) {
	m.mu.Lock()
	if m.suppressed {
		m.mu.Unlock()
		m.logger.Debug("auth-state event suppressed during sensitive operation")
		return
	}
	m.current = user
	if user == nil {
		m.cancelRefreshLocked()
	}
	listeners := slices.Clone(m.authListeners)
	m.mu.Unlock()

	if user == nil {
		m.creds.Clear()
	}

	for _, l := range listeners {
		m.invoke(func() { l.cb(user) })
	}
}

// handleTokenEvent is the single provider-level token-change callback.
func (m *SessionManager) handleTokenEvent(cred *domain.Credential) {
	m.mu.Lock()
	if m.suppressed {
		m.mu.Unlock()
		m.logger.Debug("token event suppressed during sensitive operation")
		return
	}
	listeners := slices.Clone(m.tokenListeners)
	m.mu.Unlock()

	if cred != nil {
		m.creds.Set(*cred)
	}

	for _, l := range listeners {
		m.invoke(func() { l.cb(cred) })
	}
}

// invoke isolates a subscriber callback so one panicking listener cannot
// stop delivery to the rest.
func (m *SessionManager) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("session listener panicked", "panic", r)
		}
	}()
	fn()
}

// mapProviderError attaches a stable code and a friendly message to a
// provider failure. Nothing is swallowed; the original error is wrapped.
func (m *SessionManager) mapProviderError(msg string, err error) error {
	var code, message string
	switch {
	case errors.Is(err, provider.ErrInvalidCredentials):
		code, message = CodeInvalidCredential, "Invalid email or password."
	case errors.Is(err, provider.ErrTooManyRequests):
		code, message = CodeTooManyRequests, "Too many attempts. Please try again later."
	case errors.Is(err, provider.ErrNetwork):
		code, message = CodeNetworkError, "Could not reach the identity provider."
	case errors.Is(err, context.DeadlineExceeded):
		code, message = CodeTimeout, "The operation timed out."
	default:
		code, message = CodeUnknown, "Something went wrong. Please try again."
	}

	m.logger.Warn(msg, "code", code, "err", err)
	return &SessionError{Code: code, Message: message, Err: err}
}
