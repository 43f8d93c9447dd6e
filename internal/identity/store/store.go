package store

import (
	"context"
	"errors"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface over the two denormalized role
// tables. Concrete drivers (sqlite today) implement this. Sub-repositories
// keep the two tables' concerns separate while WithTx lets callers span
// both in a single transaction, which the role dual-writes require.
type Store interface {
	Admins() Admins
	Directory() Directory

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended entry point for the dual-store writes.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Admins interface {
	// GetAdminByID returns an administrator by id.
	GetAdminByID(ctx context.Context, id string) (domain.Administrator, error)

	// GetAdminByEmail returns an administrator by email.
	GetAdminByEmail(ctx context.Context, email string) (domain.Administrator, error)

	// CreateAdmin inserts a new administrator (id is provided by the app via ULID).
	CreateAdmin(ctx context.Context, a domain.Administrator) error

	// UpdateAdminRole sets the role and bumps updated_at.
	UpdateAdminRole(ctx context.Context, id string, role domain.Role) error

	// SetAdminActive flips is_active and bumps updated_at.
	SetAdminActive(ctx context.Context, id string, active bool) error

	// DeleteAdmin removes the authoritative record. The directory shadow is
	// untouched; callers pair this with Directory().MarkUserDeleted.
	DeleteAdmin(ctx context.Context, id string) error

	// CountActiveByRole counts administrators with the given role and
	// is_active = true.
	CountActiveByRole(ctx context.Context, role domain.Role) (int, error)

	// ListAdmins returns all administrators ordered by creation date (newest first).
	ListAdmins(ctx context.Context) ([]domain.Administrator, error)

	// UpdateMFASecret sets the TOTP secret for an administrator.
	UpdateMFASecret(ctx context.Context, id string, secret string) error

	// EnableMFA marks MFA as enabled (sets the mfa_enabled timestamp).
	EnableMFA(ctx context.Context, id string) error

	// DisableMFA clears mfa_enabled and mfa_secret.
	DisableMFA(ctx context.Context, id string) error
}

type Directory interface {
	// GetUserByID returns a directory projection by id.
	GetUserByID(ctx context.Context, id string) (domain.DirectoryUser, error)

	// UpsertUser writes the full projection, inserting or replacing.
	UpsertUser(ctx context.Context, u domain.DirectoryUser) error

	// UpdateUserRole mirrors an admin role change into the projection.
	UpdateUserRole(ctx context.Context, id string, role domain.Role) error

	// SetUserActive mirrors an admin activation change into the projection.
	SetUserActive(ctx context.Context, id string, active bool) error

	// MarkUserDeleted performs the logical delete: is_active = false,
	// deleted_at = deletedAt, updated_at bumped. The row is kept as the
	// shadow of a removed administrator.
	MarkUserDeleted(ctx context.Context, id string, deletedAt time.Time) error

	// ListByType returns directory users of one kind, newest first.
	ListByType(ctx context.Context, t domain.UserType) ([]domain.DirectoryUser, error)
}
