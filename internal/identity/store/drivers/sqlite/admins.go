package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
)

type adminsRepo struct {
	db dbtx
}

const adminColumns = `id, email, role, department, position, is_active, mfa_enabled, mfa_secret, created_at, updated_at`

func (r *adminsRepo) GetAdminByID(ctx context.Context, id string) (domain.Administrator, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE id = ?`, id)
	return scanAdmin(row)
}

func (r *adminsRepo) GetAdminByEmail(ctx context.Context, email string) (domain.Administrator, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE email = ?`, email)
	return scanAdmin(row)
}

func (r *adminsRepo) CreateAdmin(ctx context.Context, a domain.Administrator) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_users (id, email, role, department, position, is_active, mfa_enabled, mfa_secret, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Role.String(), a.Department, a.Position, boolToInt(a.IsActive),
		timePtrToNull(a.MFAEnabled), strPtrToNull(a.MFASecret), a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	return mapConstraint(err)
}

func (r *adminsRepo) UpdateAdminRole(ctx context.Context, id string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET role = ?, updated_at = ? WHERE id = ?`,
		role.String(), time.Now().UTC(), id)
	return requireRowAffected(res, err)
}

func (r *adminsRepo) SetAdminActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), time.Now().UTC(), id)
	return requireRowAffected(res, err)
}

func (r *adminsRepo) DeleteAdmin(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admin_users WHERE id = ?`, id)
	return requireRowAffected(res, err)
}

func (r *adminsRepo) CountActiveByRole(ctx context.Context, role domain.Role) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admin_users WHERE role = ? AND is_active = 1`,
		role.String()).Scan(&count)
	return count, err
}

func (r *adminsRepo) ListAdmins(ctx context.Context) ([]domain.Administrator, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+adminColumns+` FROM admin_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []domain.Administrator
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (r *adminsRepo) UpdateMFASecret(ctx context.Context, id string, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET mfa_secret = ?, updated_at = ? WHERE id = ?`,
		strToNull(secret), time.Now().UTC(), id)
	return requireRowAffected(res, err)
}

func (r *adminsRepo) EnableMFA(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET mfa_enabled = ?, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), time.Now().UTC(), id)
	return requireRowAffected(res, err)
}

func (r *adminsRepo) DisableMFA(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET mfa_enabled = NULL, mfa_secret = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	return requireRowAffected(res, err)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAdmin(s scanner) (domain.Administrator, error) {
	var (
		a          domain.Administrator
		roleStr    string
		isActive   int
		mfaEnabled sql.NullTime
		mfaSecret  sql.NullString
	)
	err := s.Scan(&a.ID, &a.Email, &roleStr, &a.Department, &a.Position,
		&isActive, &mfaEnabled, &mfaSecret, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Administrator{}, mapNotFound(err)
	}

	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return domain.Administrator{}, err
	}
	a.Role = role
	a.IsActive = isActive != 0
	a.MFAEnabled = nullTimeToPtr(mfaEnabled)
	a.MFASecret = nullStrToPtr(mfaSecret)
	return a, nil
}
