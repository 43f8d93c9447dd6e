package domain

import "time"

// Administrator is the authoritative record in the admin_users table.
type Administrator struct {
	ID         string // Identity-provider subject id (ULID)
	Email      string
	Role       Role
	Department string
	Position   string
	IsActive   bool
	MFAEnabled *time.Time // Timestamp when MFA was enabled (nullable)
	MFASecret  *string    // TOTP secret (nullable, base32 encoded)
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewAdministrator carries the caller-supplied fields for admin creation.
// Records created through the normal flow start inactive (pending approval);
// bootstrap paths may flip Active to true.
type NewAdministrator struct {
	Email      string
	Role       Role
	Department string
	Position   string
	Active     bool
}

// DeleteResult is the structured outcome of an administrator deletion.
// HTTP handlers branch on Success rather than on an error value.
type DeleteResult struct {
	Success bool
	Message string
}
