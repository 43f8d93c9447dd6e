package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairmarket/identity/internal/identity/service"
	"github.com/fairmarket/identity/internal/identity/store"
	"github.com/fairmarket/identity/pkg/httpx"
	"github.com/fairmarket/identity/pkg/slogx"
)

type MFAHandler struct {
	MFA *service.MFAService
}

type mfaEnrollResponse struct {
	Secret  string `json:"secret"`
	QRCode  string `json:"qr_code"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

// HandleEnroll handles TOTP enrollment
//
//	@Summary		Enroll in TOTP MFA
//	@Description	Generates a TOTP secret for the authenticated administrator. MFA is not active until the first code is verified.
//	@Tags			MFA
//	@Produce		json
//	@Success		200	{object}	mfaEnrollResponse
//	@Failure		409	{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/mfa/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	subject, ok := httpx.SubjectFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing subject")
		return
	}

	enrollment, err := h.MFA.EnrollTOTP(ctx, subject)
	switch {
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict, "already_enabled", "MFA is already enabled")
		return
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "administrator not found")
		return
	case err != nil:
		log.Error("failed to enroll TOTP", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to enroll")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfaEnrollResponse{
		Secret:  enrollment.Secret,
		QRCode:  enrollment.QRCode,
		Issuer:  enrollment.Issuer,
		Account: enrollment.Account,
	})
}

// HandleVerify handles TOTP verification
//
//	@Summary		Verify a TOTP code
//	@Description	Verifies the first code after enrollment and activates MFA.
//	@Tags			MFA
//	@Accept			json
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/mfa/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	h.codeEndpoint(w, r, h.MFA.VerifyTOTP)
}

// HandleDisable handles MFA disable
//
//	@Summary		Disable MFA
//	@Description	Disables MFA after confirming a current TOTP code.
//	@Tags			MFA
//	@Accept			json
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/mfa/disable [post].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.codeEndpoint(w, r, h.MFA.DisableMFA)
}

func (h *MFAHandler) codeEndpoint(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, adminID, code string) error) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	subject, ok := httpx.SubjectFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing subject")
		return
	}

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	err := fn(ctx, subject, req.Code)
	switch {
	case errors.Is(err, service.ErrInvalidTOTPCode):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_code", "invalid TOTP code")
		return
	case errors.Is(err, service.ErrMFANotEnrolled):
		httpx.WriteError(w, http.StatusBadRequest, "not_enrolled", "MFA is not enrolled")
		return
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "administrator not found")
		return
	case err != nil:
		log.Error("MFA operation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "operation failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
