package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/fairmarket/identity/internal/identity/store"
	"github.com/fairmarket/identity/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func testAdmin(email string, role domain.Role, active bool) domain.Administrator {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Administrator{
		ID:        idx.New().String(),
		Email:     email,
		Role:      role,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAdminsRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		st := newStore(t)
		a := testAdmin("a@example.com", domain.RoleAdmin, true)
		a.Department = "Payments"
		a.Position = "Lead"
		require.NoError(t, st.Admins().CreateAdmin(ctx, a))

		got, err := st.Admins().GetAdminByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, a.Email, got.Email)
		require.Equal(t, domain.RoleAdmin, got.Role)
		require.Equal(t, "Payments", got.Department)
		require.True(t, got.IsActive)
		require.Nil(t, got.MFAEnabled)
		require.Nil(t, got.MFASecret)

		byEmail, err := st.Admins().GetAdminByEmail(ctx, a.Email)
		require.NoError(t, err)
		require.Equal(t, a.ID, byEmail.ID)
	})

	t.Run("missing rows map to ErrNotFound", func(t *testing.T) {
		st := newStore(t)

		_, err := st.Admins().GetAdminByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.ErrorIs(t, st.Admins().UpdateAdminRole(ctx, "missing", domain.RoleAdmin), store.ErrNotFound)
		require.ErrorIs(t, st.Admins().SetAdminActive(ctx, "missing", true), store.ErrNotFound)
		require.ErrorIs(t, st.Admins().DeleteAdmin(ctx, "missing"), store.ErrNotFound)
	})

	t.Run("duplicate email maps to ErrAlreadyExists", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.Admins().CreateAdmin(ctx, testAdmin("dup@example.com", domain.RoleAdmin, true)))

		err := st.Admins().CreateAdmin(ctx, testAdmin("dup@example.com", domain.RoleModerator, true))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("count active by role ignores inactive rows", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.Admins().CreateAdmin(ctx, testAdmin("s1@example.com", domain.RoleSuperAdmin, true)))
		require.NoError(t, st.Admins().CreateAdmin(ctx, testAdmin("s2@example.com", domain.RoleSuperAdmin, false)))
		require.NoError(t, st.Admins().CreateAdmin(ctx, testAdmin("a1@example.com", domain.RoleAdmin, true)))

		count, err := st.Admins().CountActiveByRole(ctx, domain.RoleSuperAdmin)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("activation flip persists", func(t *testing.T) {
		st := newStore(t)
		a := testAdmin("pending@example.com", domain.RoleAdmin, false)
		require.NoError(t, st.Admins().CreateAdmin(ctx, a))

		require.NoError(t, st.Admins().SetAdminActive(ctx, a.ID, true))

		got, err := st.Admins().GetAdminByID(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, got.IsActive)
	})

	t.Run("role update persists", func(t *testing.T) {
		st := newStore(t)
		a := testAdmin("a@example.com", domain.RoleModerator, true)
		require.NoError(t, st.Admins().CreateAdmin(ctx, a))

		require.NoError(t, st.Admins().UpdateAdminRole(ctx, a.ID, domain.RoleAdmin))

		got, err := st.Admins().GetAdminByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, got.Role)
	})

	t.Run("MFA lifecycle", func(t *testing.T) {
		st := newStore(t)
		a := testAdmin("a@example.com", domain.RoleAdmin, true)
		require.NoError(t, st.Admins().CreateAdmin(ctx, a))

		require.NoError(t, st.Admins().UpdateMFASecret(ctx, a.ID, "SECRET"))
		require.NoError(t, st.Admins().EnableMFA(ctx, a.ID))

		got, err := st.Admins().GetAdminByID(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, got.MFAEnabled)
		require.NotNil(t, got.MFASecret)
		require.Equal(t, "SECRET", *got.MFASecret)

		require.NoError(t, st.Admins().DisableMFA(ctx, a.ID))
		got, err = st.Admins().GetAdminByID(ctx, a.ID)
		require.NoError(t, err)
		require.Nil(t, got.MFAEnabled)
		require.Nil(t, got.MFASecret)
	})

	t.Run("list orders newest first", func(t *testing.T) {
		st := newStore(t)
		old := testAdmin("old@example.com", domain.RoleAdmin, true)
		old.CreatedAt = old.CreatedAt.Add(-time.Hour)
		require.NoError(t, st.Admins().CreateAdmin(ctx, old))
		require.NoError(t, st.Admins().CreateAdmin(ctx, testAdmin("new@example.com", domain.RoleAdmin, true)))

		admins, err := st.Admins().ListAdmins(ctx)
		require.NoError(t, err)
		require.Len(t, admins, 2)
		require.Equal(t, "new@example.com", admins[0].Email)
		require.Equal(t, "old@example.com", admins[1].Email)
	})
}

func TestDirectoryRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newUser := func(email string, userType domain.UserType, role domain.Role) domain.DirectoryUser {
		now := time.Now().UTC().Truncate(time.Second)
		return domain.DirectoryUser{
			ID:        idx.New().String(),
			Email:     email,
			UserType:  userType,
			Role:      role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	t.Run("upsert inserts then updates in place", func(t *testing.T) {
		st := newStore(t)
		u := newUser("a@example.com", domain.UserTypeAdmin, domain.RoleModerator)
		require.NoError(t, st.Directory().UpsertUser(ctx, u))

		u.Role = domain.RoleAdmin
		u.DisplayName = "A. Admin"
		require.NoError(t, st.Directory().UpsertUser(ctx, u))

		got, err := st.Directory().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, got.Role)
		require.Equal(t, "A. Admin", got.DisplayName)
	})

	t.Run("non-admin rows carry no role", func(t *testing.T) {
		st := newStore(t)
		u := newUser("buyer@example.com", domain.UserTypeConsumer, "")
		require.NoError(t, st.Directory().UpsertUser(ctx, u))

		got, err := st.Directory().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Empty(t, got.Role)
		require.Equal(t, domain.UserTypeConsumer, got.UserType)
	})

	t.Run("mark deleted keeps the shadow row", func(t *testing.T) {
		st := newStore(t)
		u := newUser("a@example.com", domain.UserTypeAdmin, domain.RoleAdmin)
		require.NoError(t, st.Directory().UpsertUser(ctx, u))

		deletedAt := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, st.Directory().MarkUserDeleted(ctx, u.ID, deletedAt))

		got, err := st.Directory().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.IsActive)
		require.NotNil(t, got.DeletedAt)
	})

	t.Run("activation flips with updated_at and maps missing rows", func(t *testing.T) {
		st := newStore(t)
		u := newUser("flip@example.com", domain.UserTypeAdmin, domain.RoleAdmin)
		require.NoError(t, st.Directory().UpsertUser(ctx, u))

		require.NoError(t, st.Directory().SetUserActive(ctx, u.ID, false))
		got, err := st.Directory().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.IsActive)

		require.NoError(t, st.Directory().SetUserActive(ctx, u.ID, true))
		got, err = st.Directory().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.IsActive)

		err = st.Directory().SetUserActive(ctx, idx.New().String(), true)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list filters by type", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.Directory().UpsertUser(ctx, newUser("a@example.com", domain.UserTypeAdmin, domain.RoleAdmin)))
		require.NoError(t, st.Directory().UpsertUser(ctx, newUser("p@example.com", domain.UserTypeProducer, "")))

		producers, err := st.Directory().ListByType(ctx, domain.UserTypeProducer)
		require.NoError(t, err)
		require.Len(t, producers, 1)
		require.Equal(t, "p@example.com", producers[0].Email)
	})
}

func TestWithTx(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("commit persists both writes", func(t *testing.T) {
		st := newStore(t)
		a := testAdmin("a@example.com", domain.RoleAdmin, true)

		err := st.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Admins().CreateAdmin(ctx, a); err != nil {
				return err
			}
			return tx.Directory().UpsertUser(ctx, domain.DirectoryUser{
				ID:        a.ID,
				Email:     a.Email,
				UserType:  domain.UserTypeAdmin,
				Role:      a.Role,
				IsActive:  true,
				CreatedAt: a.CreatedAt,
				UpdatedAt: a.UpdatedAt,
			})
		})
		require.NoError(t, err)

		_, err = st.Admins().GetAdminByID(ctx, a.ID)
		require.NoError(t, err)
		_, err = st.Directory().GetUserByID(ctx, a.ID)
		require.NoError(t, err)
	})

	t.Run("error rolls back everything", func(t *testing.T) {
		st := newStore(t)
		a := testAdmin("a@example.com", domain.RoleAdmin, true)

		err := st.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Admins().CreateAdmin(ctx, a); err != nil {
				return err
			}
			// Duplicate insert forces a failure after the first write.
			return tx.Admins().CreateAdmin(ctx, a)
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		_, err = st.Admins().GetAdminByID(ctx, a.ID)
		require.ErrorIs(t, err, store.ErrNotFound, "first write must be rolled back")
	})
}
