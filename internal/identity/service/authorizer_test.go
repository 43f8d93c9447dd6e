package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/fairmarket/identity/internal/identity/store"
	"github.com/fairmarket/identity/internal/identity/store/drivers/sqlite"
	"github.com/fairmarket/identity/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func newTestAdminService(t *testing.T) (*AdminService, store.Store) {
	t.Helper()
	st := newTestStore(t)
	return &AdminService{Store: st, Logger: slog.Default()}, st
}

// seedAdmin inserts an administrator plus its directory shadow, the way
// CreateAdministrator would, and returns the new id.
func seedAdmin(t *testing.T, st store.Store, email string, role domain.Role, active bool) string {
	t.Helper()

	ctx := context.Background()
	id := idx.New().String()
	now := time.Now().UTC()

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Admins().CreateAdmin(ctx, domain.Administrator{
			ID:        id,
			Email:     email,
			Role:      role,
			IsActive:  active,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		return tx.Directory().UpsertUser(ctx, domain.DirectoryUser{
			ID:        id,
			Email:     email,
			UserType:  domain.UserTypeAdmin,
			Role:      role,
			IsActive:  active,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	require.NoError(t, err)

	return id
}

func TestUpdateRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("super admin updates both stores", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)
		target := seedAdmin(t, st, "mod@example.com", domain.RoleModerator, true)

		ok, err := svc.UpdateRole(ctx, actor, target, domain.RoleAdmin)
		require.NoError(t, err)
		require.True(t, ok)

		admin, err := st.Admins().GetAdminByID(ctx, target)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, admin.Role)

		shadow, err := st.Directory().GetUserByID(ctx, target)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, shadow.Role)
	})

	t.Run("plain admin cannot update roles", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "admin@example.com", domain.RoleAdmin, true)
		target := seedAdmin(t, st, "mod@example.com", domain.RoleModerator, true)

		ok, err := svc.UpdateRole(ctx, actor, target, domain.RoleAdmin)
		require.NoError(t, err)
		require.False(t, ok)

		admin, err := st.Admins().GetAdminByID(ctx, target)
		require.NoError(t, err)
		require.Equal(t, domain.RoleModerator, admin.Role, "role must be unchanged")
	})

	t.Run("admin cannot raise their own role", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "admin@example.com", domain.RoleAdmin, true)

		ok, err := svc.UpdateRole(ctx, actor, actor, domain.RoleSuperAdmin)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("missing actor reports false", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		target := seedAdmin(t, st, "mod@example.com", domain.RoleModerator, true)

		ok, err := svc.UpdateRole(ctx, idx.New().String(), target, domain.RoleAdmin)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("missing target reports false", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)

		ok, err := svc.UpdateRole(ctx, actor, idx.New().String(), domain.RoleAdmin)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestSetAdministratorActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("super admin approves a pending administrator", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)

		target, err := svc.CreateAdministrator(ctx, actor, domain.NewAdministrator{
			Email: "new@example.com",
			Role:  domain.RoleAdmin,
		})
		require.NoError(t, err)

		// A freshly created administrator is pending and cannot authorize.
		_, err = svc.Authorize(ctx, target, domain.RoleModerator)
		require.ErrorIs(t, err, ErrNotAdmin)

		ok, err := svc.SetAdministratorActive(ctx, actor, target, true)
		require.NoError(t, err)
		require.True(t, ok)

		admin, err := svc.Authorize(ctx, target, domain.RoleModerator)
		require.NoError(t, err)
		require.True(t, admin.IsActive)

		shadow, err := st.Directory().GetUserByID(ctx, target)
		require.NoError(t, err)
		require.True(t, shadow.IsActive, "directory shadow must be activated too")
	})

	t.Run("super admin suspends an administrator in both stores", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)
		target := seedAdmin(t, st, "admin@example.com", domain.RoleAdmin, true)

		ok, err := svc.SetAdministratorActive(ctx, actor, target, false)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = svc.Authorize(ctx, target, domain.RoleModerator)
		require.ErrorIs(t, err, ErrNotAdmin)

		shadow, err := st.Directory().GetUserByID(ctx, target)
		require.NoError(t, err)
		require.False(t, shadow.IsActive)
	})

	t.Run("last active super admin cannot be suspended", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)
		seedAdmin(t, st, "inactive@example.com", domain.RoleSuperAdmin, false)

		ok, err := svc.SetAdministratorActive(ctx, actor, actor, false)
		require.NoError(t, err)
		require.False(t, ok)

		admin, err := st.Admins().GetAdminByID(ctx, actor)
		require.NoError(t, err)
		require.True(t, admin.IsActive, "must remain active")
	})

	t.Run("suspending works while another super admin remains", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)
		other := seedAdmin(t, st, "other@example.com", domain.RoleSuperAdmin, true)

		ok, err := svc.SetAdministratorActive(ctx, actor, other, false)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("plain admin cannot change activation", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "admin@example.com", domain.RoleAdmin, true)
		target := seedAdmin(t, st, "mod@example.com", domain.RoleModerator, false)

		ok, err := svc.SetAdministratorActive(ctx, actor, target, true)
		require.NoError(t, err)
		require.False(t, ok)

		admin, err := st.Admins().GetAdminByID(ctx, target)
		require.NoError(t, err)
		require.False(t, admin.IsActive, "must stay pending")
	})

	t.Run("missing actor and target report false", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)

		ok, err := svc.SetAdministratorActive(ctx, idx.New().String(), actor, false)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = svc.SetAdministratorActive(ctx, actor, idx.New().String(), true)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestDeleteAdministrator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("refuses to delete the last super admin", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)

		result, err := svc.DeleteAdministrator(ctx, actor, actor)
		require.NoError(t, err)
		require.False(t, result.Success)
		require.Equal(t, LastSuperAdminMessage, result.Message)

		// Record must be untouched.
		admin, err := st.Admins().GetAdminByID(ctx, actor)
		require.NoError(t, err)
		require.True(t, admin.IsActive)
	})

	t.Run("inactive super admins do not count towards the invariant", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)
		seedAdmin(t, st, "retired@example.com", domain.RoleSuperAdmin, false)

		result, err := svc.DeleteAdministrator(ctx, actor, actor)
		require.NoError(t, err)
		require.False(t, result.Success)
		require.Equal(t, LastSuperAdminMessage, result.Message)
	})

	t.Run("deletes a super admin when another remains", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)
		target := seedAdmin(t, st, "second@example.com", domain.RoleSuperAdmin, true)

		result, err := svc.DeleteAdministrator(ctx, actor, target)
		require.NoError(t, err)
		require.True(t, result.Success)

		_, err = st.Admins().GetAdminByID(ctx, target)
		require.ErrorIs(t, err, store.ErrNotFound)

		// The directory shadow survives as a soft-deleted row.
		shadow, err := st.Directory().GetUserByID(ctx, target)
		require.NoError(t, err)
		require.False(t, shadow.IsActive)
		require.NotNil(t, shadow.DeletedAt)
	})

	t.Run("deletes lower roles without an invariant check", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)
		target := seedAdmin(t, st, "mod@example.com", domain.RoleModerator, true)

		result, err := svc.DeleteAdministrator(ctx, actor, target)
		require.NoError(t, err)
		require.True(t, result.Success)
	})

	t.Run("plain admin cannot delete", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "admin@example.com", domain.RoleAdmin, true)
		target := seedAdmin(t, st, "mod@example.com", domain.RoleModerator, true)

		result, err := svc.DeleteAdministrator(ctx, actor, target)
		require.NoError(t, err)
		require.False(t, result.Success)
		require.Equal(t, "Insufficient permissions", result.Message)
	})

	t.Run("missing actor fails", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		target := seedAdmin(t, st, "mod@example.com", domain.RoleModerator, true)

		result, err := svc.DeleteAdministrator(ctx, idx.New().String(), target)
		require.NoError(t, err)
		require.False(t, result.Success)
	})

	t.Run("missing target fails", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)

		result, err := svc.DeleteAdministrator(ctx, actor, idx.New().String())
		require.NoError(t, err)
		require.False(t, result.Success)
	})
}

func TestCreateAdministrator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates record plus directory shadow", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)

		id, err := svc.CreateAdministrator(ctx, actor, domain.NewAdministrator{
			Email:      "new@example.com",
			Role:       domain.RoleModerator,
			Department: "Trust & Safety",
			Position:   "Reviewer",
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		admin, err := st.Admins().GetAdminByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "new@example.com", admin.Email)
		require.Equal(t, domain.RoleModerator, admin.Role)
		require.False(t, admin.IsActive, "new administrators start pending")

		shadow, err := st.Directory().GetUserByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.UserTypeAdmin, shadow.UserType)
		require.Equal(t, domain.RoleModerator, shadow.Role)
	})

	t.Run("rejects non-super actors", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "admin@example.com", domain.RoleAdmin, true)

		_, err := svc.CreateAdministrator(ctx, actor, domain.NewAdministrator{
			Email: "new@example.com",
			Role:  domain.RoleModerator,
		})
		require.ErrorIs(t, err, ErrInsufficientPermission)
	})

	t.Run("rejects unknown actors", func(t *testing.T) {
		svc, _ := newTestAdminService(t)

		_, err := svc.CreateAdministrator(ctx, idx.New().String(), domain.NewAdministrator{
			Email: "new@example.com",
			Role:  domain.RoleModerator,
		})
		require.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		actor := seedAdmin(t, st, "root@example.com", domain.RoleSuperAdmin, true)
		seedAdmin(t, st, "taken@example.com", domain.RoleModerator, true)

		_, err := svc.CreateAdministrator(ctx, actor, domain.NewAdministrator{
			Email: "taken@example.com",
			Role:  domain.RoleModerator,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})
}

func TestAuthorize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("active admin passes at its rank", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		id := seedAdmin(t, st, "admin@example.com", domain.RoleAdmin, true)

		admin, err := svc.Authorize(ctx, id, domain.RoleModerator)
		require.NoError(t, err)
		require.Equal(t, id, admin.ID)
	})

	t.Run("unknown subject is not an admin", func(t *testing.T) {
		svc, _ := newTestAdminService(t)

		_, err := svc.Authorize(ctx, idx.New().String(), domain.RoleModerator)
		require.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("inactive admin is not an admin", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		id := seedAdmin(t, st, "admin@example.com", domain.RoleAdmin, false)

		_, err := svc.Authorize(ctx, id, domain.RoleModerator)
		require.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("rank below requirement is insufficient", func(t *testing.T) {
		svc, st := newTestAdminService(t)
		id := seedAdmin(t, st, "mod@example.com", domain.RoleModerator, true)

		_, err := svc.Authorize(ctx, id, domain.RoleSuperAdmin)
		require.ErrorIs(t, err, ErrInsufficientPermission)
	})
}
