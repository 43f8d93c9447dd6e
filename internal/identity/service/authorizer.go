package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/fairmarket/identity/internal/identity/store"
	"github.com/fairmarket/identity/pkg/idx"
)

// LastSuperAdminMessage is returned when a deletion would remove the final
// active super admin. Callers surface it verbatim.
const LastSuperAdminMessage = "Cannot delete the last Super Admin"

var (
	// ErrNotAdmin means the subject has no administrator record at all.
	ErrNotAdmin = errors.New("not an admin")

	// ErrInsufficientPermission means the acting administrator's rank is too
	// low for the operation. Distinct from ErrNotAdmin so callers can tell
	// "forbidden" apart from "not found".
	ErrInsufficientPermission = errors.New("insufficient permissions")
)

// AdminService is the RBAC engine over the two denormalized role stores. It
// enforces the privilege hierarchy and the active-super-admin invariant, and
// keeps admin_users and harmonized_users consistent by running every
// dual-write inside one transaction.
type AdminService struct {
	Store  store.Store
	Logger *slog.Logger
}

// GetAdministrator is a pure read; store errors propagate unchanged.
func (s *AdminService) GetAdministrator(ctx context.Context, id string) (domain.Administrator, error) {
	return s.Store.Admins().GetAdminByID(ctx, id)
}

// AdministratorExists reports whether an administrator record exists.
func (s *AdminService) AdministratorExists(ctx context.Context, id string) (bool, error) {
	_, err := s.Store.Admins().GetAdminByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountByRole counts active administrators holding the given role.
func (s *AdminService) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	return s.Store.Admins().CountActiveByRole(ctx, role)
}

// ListAdministrators returns all administrator records, newest first.
func (s *AdminService) ListAdministrators(ctx context.Context) ([]domain.Administrator, error) {
	return s.Store.Admins().ListAdmins(ctx)
}

// CreateAdministrator creates a pending administrator plus its directory
// shadow. Only a super admin may create administrators. The record starts
// inactive unless in.Active is set (bootstrap paths). Provider account
// creation and the invitation email are the caller's concern.
func (s *AdminService) CreateAdministrator(ctx context.Context, actorID string, in domain.NewAdministrator) (string, error) {
	actor, err := s.Store.Admins().GetAdminByID(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotAdmin
	}
	if err != nil {
		return "", err
	}
	if actor.Role != domain.RoleSuperAdmin {
		return "", ErrInsufficientPermission
	}

	now := time.Now().UTC()
	id := idx.New().String()

	admin := domain.Administrator{
		ID:         id,
		Email:      in.Email,
		Role:       in.Role,
		Department: in.Department,
		Position:   in.Position,
		IsActive:   in.Active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	shadow := domain.DirectoryUser{
		ID:          id,
		Email:       in.Email,
		UserType:    domain.UserTypeAdmin,
		Role:        in.Role,
		DisplayName: in.Email,
		IsActive:    in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Admins().CreateAdmin(ctx, admin); err != nil {
			return err
		}
		return tx.Directory().UpsertUser(ctx, shadow)
	})
	if err != nil {
		return "", err
	}

	s.Logger.Info("administrator created",
		"admin_id", id, "role", in.Role.String(), "actor_id", actorID)
	return id, nil
}

// UpdateRole changes the target's role in both stores. Only a super admin
// may change roles; the requirement is flat, so an admin can never update
// any role including their own. Missing actor, underprivileged actor, and
// missing target all report false without an error; only store I/O failures
// surface as errors.
func (s *AdminService) UpdateRole(ctx context.Context, actorID, targetID string, newRole domain.Role) (bool, error) {
	actor, err := s.Store.Admins().GetAdminByID(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if actor.Role != domain.RoleSuperAdmin {
		return false, nil
	}

	notFound := false
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Admins().GetAdminByID(ctx, targetID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				notFound = true
				return nil
			}
			return err
		}
		if err := tx.Admins().UpdateAdminRole(ctx, targetID, newRole); err != nil {
			return err
		}
		return tx.Directory().UpdateUserRole(ctx, targetID, newRole)
	})
	if err != nil {
		return false, err
	}
	if notFound {
		return false, nil
	}

	s.Logger.Info("administrator role updated",
		"admin_id", targetID, "role", newRole.String(), "actor_id", actorID)
	return true, nil
}

// SetAdministratorActive approves a pending administrator or suspends an
// existing one, flipping is_active in both stores. Only a super admin may
// change activation. Deactivating the last active super admin is refused
// for the same reason deleting one is: with none left, every privileged
// operation becomes unreachable. Missing actor, underprivileged actor, and
// missing target all report false without an error, as UpdateRole does.
func (s *AdminService) SetAdministratorActive(ctx context.Context, actorID, targetID string, active bool) (bool, error) {
	actor, err := s.Store.Admins().GetAdminByID(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if actor.Role != domain.RoleSuperAdmin {
		return false, nil
	}

	refused := false
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		target, err := tx.Admins().GetAdminByID(ctx, targetID)
		if errors.Is(err, store.ErrNotFound) {
			refused = true
			return nil
		}
		if err != nil {
			return err
		}

		if !active && target.IsActive && target.Role == domain.RoleSuperAdmin {
			count, err := tx.Admins().CountActiveByRole(ctx, domain.RoleSuperAdmin)
			if err != nil {
				return err
			}
			if count <= 1 {
				refused = true
				return nil
			}
		}

		if err := tx.Admins().SetAdminActive(ctx, targetID, active); err != nil {
			return err
		}
		return tx.Directory().SetUserActive(ctx, targetID, active)
	})
	if err != nil {
		return false, err
	}
	if refused {
		return false, nil
	}

	s.Logger.Info("administrator activation updated",
		"admin_id", targetID, "active", active, "actor_id", actorID)
	return true, nil
}

// DeleteAdministrator removes the authoritative record and marks the
// directory shadow deleted. Checks resolve in order: actor existence, actor
// privilege, target existence, then the super-admin invariant. The
// invariant count and the mutation run inside one transaction so two
// concurrent deletions cannot both pass the count check.
func (s *AdminService) DeleteAdministrator(ctx context.Context, actorID, targetID string) (domain.DeleteResult, error) {
	actor, err := s.Store.Admins().GetAdminByID(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.DeleteResult{Success: false, Message: "Acting administrator not found"}, nil
	}
	if err != nil {
		return domain.DeleteResult{}, err
	}
	if actor.Role != domain.RoleSuperAdmin {
		return domain.DeleteResult{Success: false, Message: "Insufficient permissions"}, nil
	}

	var result domain.DeleteResult
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		target, err := tx.Admins().GetAdminByID(ctx, targetID)
		if errors.Is(err, store.ErrNotFound) {
			result = domain.DeleteResult{Success: false, Message: "Administrator not found"}
			return nil
		}
		if err != nil {
			return err
		}

		if target.Role == domain.RoleSuperAdmin {
			count, err := tx.Admins().CountActiveByRole(ctx, domain.RoleSuperAdmin)
			if err != nil {
				return err
			}
			if count <= 1 {
				result = domain.DeleteResult{Success: false, Message: LastSuperAdminMessage}
				return nil
			}
		}

		if err := tx.Admins().DeleteAdmin(ctx, targetID); err != nil {
			return err
		}
		if err := tx.Directory().MarkUserDeleted(ctx, targetID, time.Now().UTC()); err != nil {
			return err
		}
		result = domain.DeleteResult{Success: true}
		return nil
	})
	if err != nil {
		return domain.DeleteResult{}, err
	}

	if result.Success {
		s.Logger.Info("administrator deleted", "admin_id", targetID, "actor_id", actorID)
	}
	return result, nil
}

// Authorize resolves a bearer subject to an administrator and compares its
// rank against the route's requirement. Errors distinguish "not an admin"
// from "insufficient permissions" for the request gate.
func (s *AdminService) Authorize(ctx context.Context, subjectID string, required domain.Role) (domain.Administrator, error) {
	admin, err := s.Store.Admins().GetAdminByID(ctx, subjectID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Administrator{}, ErrNotAdmin
	}
	if err != nil {
		return domain.Administrator{}, err
	}
	if !admin.IsActive {
		return domain.Administrator{}, ErrNotAdmin
	}
	if !admin.Role.AtLeast(required) {
		return domain.Administrator{}, ErrInsufficientPermission
	}
	return admin, nil
}
