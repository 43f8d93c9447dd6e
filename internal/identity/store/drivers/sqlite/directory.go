package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
)

type directoryRepo struct {
	db dbtx
}

const directoryColumns = `id, email, user_type, role, display_name, is_active, created_at, updated_at, deleted_at`

func (r *directoryRepo) GetUserByID(ctx context.Context, id string) (domain.DirectoryUser, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+directoryColumns+` FROM harmonized_users WHERE id = ?`, id)
	return scanDirectoryUser(row)
}

func (r *directoryRepo) UpsertUser(ctx context.Context, u domain.DirectoryUser) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO harmonized_users (id, email, user_type, role, display_name, is_active, created_at, updated_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   email = excluded.email,
		   user_type = excluded.user_type,
		   role = excluded.role,
		   display_name = excluded.display_name,
		   is_active = excluded.is_active,
		   updated_at = excluded.updated_at,
		   deleted_at = excluded.deleted_at`,
		u.ID, u.Email, string(u.UserType), u.Role.String(), u.DisplayName,
		boolToInt(u.IsActive), u.CreatedAt.UTC(), u.UpdatedAt.UTC(), timePtrToNull(u.DeletedAt))
	return err
}

func (r *directoryRepo) UpdateUserRole(ctx context.Context, id string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE harmonized_users SET role = ?, updated_at = ? WHERE id = ?`,
		role.String(), time.Now().UTC(), id)
	return requireRowAffected(res, err)
}

func (r *directoryRepo) SetUserActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE harmonized_users SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), time.Now().UTC(), id)
	return requireRowAffected(res, err)
}

func (r *directoryRepo) MarkUserDeleted(ctx context.Context, id string, deletedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE harmonized_users SET is_active = 0, deleted_at = ?, updated_at = ? WHERE id = ?`,
		deletedAt.UTC(), time.Now().UTC(), id)
	return requireRowAffected(res, err)
}

func (r *directoryRepo) ListByType(ctx context.Context, t domain.UserType) ([]domain.DirectoryUser, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+directoryColumns+` FROM harmonized_users WHERE user_type = ? ORDER BY created_at DESC`,
		string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.DirectoryUser
	for rows.Next() {
		u, err := scanDirectoryUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanDirectoryUser(s scanner) (domain.DirectoryUser, error) {
	var (
		u         domain.DirectoryUser
		typeStr   string
		roleStr   string
		isActive  int
		deletedAt sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Email, &typeStr, &roleStr, &u.DisplayName,
		&isActive, &u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err != nil {
		return domain.DirectoryUser{}, mapNotFound(err)
	}

	userType, err := domain.ParseUserType(typeStr)
	if err != nil {
		return domain.DirectoryUser{}, err
	}
	u.UserType = userType

	// Non-admin directory rows carry no role.
	if roleStr != "" {
		role, err := domain.ParseRole(roleStr)
		if err != nil {
			return domain.DirectoryUser{}, err
		}
		u.Role = role
	}

	u.IsActive = isActive != 0
	u.DeletedAt = nullTimeToPtr(deletedAt)
	return u, nil
}
