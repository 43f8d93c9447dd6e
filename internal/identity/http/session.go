package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fairmarket/identity/internal/identity/service"
	"github.com/fairmarket/identity/pkg/httpx"
	"github.com/fairmarket/identity/pkg/slogx"
)

type SessionHandler struct {
	Sessions *service.SessionManager
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Role        string    `json:"role,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// HandleSignIn handles the sign-in endpoint
//
//	@Summary		Sign in
//	@Description	Authenticates against the identity provider and establishes the session.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		signInRequest	true	"Credentials"
//	@Success		200		{object}	sessionResponse	"Authenticated session"
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		429		{object}	httpx.ErrorResponse
//	@Failure		504		{object}	httpx.ErrorResponse
//	@Router			/v1/session [post].
func (h *SessionHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	user, cred, err := h.Sessions.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		writeSessionError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role.String(),
		AccessToken: cred.AccessToken,
		ExpiresAt:   cred.ExpiresAt,
	})
}

// HandleSignOut handles the sign-out endpoint
//
//	@Summary		Sign out
//	@Description	Clears the cached credential and tears down the provider session.
//	@Tags			Session
//	@Produce		json
//	@Success		204	"Signed out"
//	@Failure		502	{object}	httpx.ErrorResponse
//	@Router			/v1/session [delete].
func (h *SessionHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.Sessions.SignOut(ctx); err != nil {
		writeSessionError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh handles the token refresh endpoint
//
//	@Summary		Refresh token
//	@Description	Forces a fresh credential from the provider and replaces the cached one.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	sessionResponse	"Fresh credential"
//	@Failure		401	{object}	httpx.ErrorResponse	"No active session"
//	@Router			/v1/session/refresh [post].
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	cred, err := h.Sessions.RefreshToken(ctx, true)
	if err != nil {
		writeSessionError(w, log, err)
		return
	}
	if cred == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "no active session")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		UserID:      cred.Claims.Subject,
		Email:       cred.Claims.Email,
		Role:        cred.Claims.Role.String(),
		AccessToken: cred.AccessToken,
		ExpiresAt:   cred.ExpiresAt,
	})
}

// HandleCurrent handles the current-session endpoint
//
//	@Summary		Current session
//	@Description	Reports the signed-in user without minting a new credential.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	sessionResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"No active session"
//	@Router			/v1/session [get].
func (h *SessionHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	user, ok := h.Sessions.CurrentUser()
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "no active session")
		return
	}

	resp := sessionResponse{UserID: user.ID, Email: user.Email, Role: user.Role.String()}
	if cred, ok := h.Sessions.Credentials().Get(); ok {
		resp.ExpiresAt = cred.ExpiresAt
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// writeSessionError maps enriched session error codes onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, log *slog.Logger, err error) {
	var sessErr *service.SessionError
	if !errors.As(err, &sessErr) {
		log.Warn("session operation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "operation failed")
		return
	}

	status := http.StatusInternalServerError
	switch sessErr.Code {
	case service.CodeInvalidCredential:
		status = http.StatusUnauthorized
	case service.CodeTooManyRequests:
		status = http.StatusTooManyRequests
	case service.CodeTimeout:
		status = http.StatusGatewayTimeout
	case service.CodeNetworkError:
		status = http.StatusBadGateway
	}

	log.Warn("session operation failed", "code", sessErr.Code, "err", err)
	httpx.WriteError(w, status, sessErr.Code, sessErr.Message)
}
