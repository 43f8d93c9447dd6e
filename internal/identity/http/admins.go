package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/fairmarket/identity/internal/identity/service"
	"github.com/fairmarket/identity/internal/identity/store"
	"github.com/fairmarket/identity/pkg/httpx"
	"github.com/fairmarket/identity/pkg/slogx"
)

type AdminsHandler struct {
	Admins *service.AdminService
}

type adminResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toAdminResponse(a domain.Administrator) adminResponse {
	return adminResponse{
		ID:         a.ID,
		Email:      a.Email,
		Role:       a.Role.String(),
		Department: a.Department,
		Position:   a.Position,
		IsActive:   a.IsActive,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

type createAdminRequest struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type deleteAdminResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HandleGet handles the get-administrator endpoint
//
//	@Summary		Get administrator
//	@Tags			Admins
//	@Produce		json
//	@Param			id	path		string	true	"Administrator id"
//	@Success		200	{object}	adminResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admins/{id} [get].
func (h *AdminsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	admin, err := h.Admins.GetAdministrator(ctx, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "administrator not found")
		return
	}
	if err != nil {
		log.Error("failed to load administrator", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to load administrator")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toAdminResponse(admin))
}

// HandleList handles the list-administrators endpoint
//
//	@Summary		List administrators
//	@Tags			Admins
//	@Produce		json
//	@Success		200	{array}	adminResponse
//	@Security		BearerAuth
//	@Router			/v1/admins [get].
func (h *AdminsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	admins, err := h.Admins.ListAdministrators(ctx)
	if err != nil {
		log.Error("failed to list administrators", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to list administrators")
		return
	}

	resp := make([]adminResponse, len(admins))
	for i, a := range admins {
		resp[i] = toAdminResponse(a)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate handles the create-administrator endpoint
//
//	@Summary		Create administrator
//	@Description	Creates a pending administrator record plus its directory shadow. Super admin only.
//	@Tags			Admins
//	@Accept			json
//	@Produce		json
//	@Param			body	body		createAdminRequest	true	"New administrator"
//	@Success		201		{object}	adminResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admins [post].
func (h *AdminsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actorID, ok := httpx.SubjectFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing subject")
		return
	}

	var req createAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown role")
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	id, err := h.Admins.CreateAdministrator(ctx, actorID, domain.NewAdministrator{
		Email:      req.Email,
		Role:       role,
		Department: req.Department,
		Position:   req.Position,
	})
	switch {
	case errors.Is(err, service.ErrNotAdmin):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", msgNotAdmin)
		return
	case errors.Is(err, service.ErrInsufficientPermission):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", msgInsufficient)
		return
	case errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "already_exists", "administrator with this email already exists")
		return
	case err != nil:
		log.Error("failed to create administrator", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to create administrator")
		return
	}

	admin, err := h.Admins.GetAdministrator(ctx, id)
	if err != nil {
		log.Error("failed to reload created administrator", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to load administrator")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAdminResponse(admin))
}

// HandleUpdateRole handles the role update endpoint
//
//	@Summary		Update administrator role
//	@Description	Changes the target's role in both role stores. Super admin only; failures report success=false.
//	@Tags			Admins
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Administrator id"
//	@Param			body	body		updateRoleRequest	true	"New role"
//	@Success		200		{object}	deleteAdminResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admins/{id}/role [put].
func (h *AdminsHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actorID, ok := httpx.SubjectFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing subject")
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown role")
		return
	}

	updated, err := h.Admins.UpdateRole(ctx, actorID, r.PathValue("id"), role)
	if err != nil {
		log.Error("failed to update role", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to update role")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, deleteAdminResponse{Success: updated})
}

// HandleSetActive handles the activation endpoint
//
//	@Summary		Set administrator activation
//	@Description	Approves a pending administrator or suspends an existing one in both role stores. Super admin only; the last active super admin can never be suspended.
//	@Tags			Admins
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Administrator id"
//	@Param			body	body		setActiveRequest	true	"Activation flag"
//	@Success		200		{object}	deleteAdminResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admins/{id}/active [put].
func (h *AdminsHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actorID, ok := httpx.SubjectFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing subject")
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	updated, err := h.Admins.SetAdministratorActive(ctx, actorID, r.PathValue("id"), req.Active)
	if err != nil {
		log.Error("failed to update activation", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to update activation")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, deleteAdminResponse{Success: updated})
}

// HandleDelete handles the delete-administrator endpoint
//
//	@Summary		Delete administrator
//	@Description	Removes the administrator record and marks the directory shadow deleted. The last active super admin can never be removed.
//	@Tags			Admins
//	@Produce		json
//	@Param			id	path		string	true	"Administrator id"
//	@Success		200	{object}	deleteAdminResponse
//	@Security		BearerAuth
//	@Router			/v1/admins/{id} [delete].
func (h *AdminsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actorID, ok := httpx.SubjectFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing subject")
		return
	}

	result, err := h.Admins.DeleteAdministrator(ctx, actorID, r.PathValue("id"))
	if err != nil {
		log.Error("failed to delete administrator", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to delete administrator")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, deleteAdminResponse{
		Success: result.Success,
		Message: result.Message,
	})
}

// HandleStats handles the role-count endpoint
//
//	@Summary		Count administrators by role
//	@Tags			Admins
//	@Produce		json
//	@Param			role	query		string	true	"Role to count"
//	@Success		200		{object}	map[string]int
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admins/stats [get].
func (h *AdminsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	role, err := domain.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown role")
		return
	}

	count, err := h.Admins.CountByRole(ctx, role)
	if err != nil {
		log.Error("failed to count administrators", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to count administrators")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}
