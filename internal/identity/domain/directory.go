package domain

import (
	"errors"
	"fmt"
	"time"
)

// UserType is the closed set of marketplace user kinds held in the
// harmonized_users directory.
type UserType string

const (
	UserTypeConsumer UserType = "consumer"
	UserTypeProducer UserType = "producer"
	UserTypePartner  UserType = "partner"
	UserTypeAdmin    UserType = "admin"
)

var ErrUnknownUserType = errors.New("domain: unknown user type")

// ParseUserType validates a stored user type string.
func ParseUserType(s string) (UserType, error) {
	switch UserType(s) {
	case UserTypeConsumer, UserTypeProducer, UserTypePartner, UserTypeAdmin:
		return UserType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownUserType, s)
	}
}

// DirectoryUser is the denormalized projection of any platform user kept in
// harmonized_users. Administrator role changes must land here in the same
// logical operation as the admin_users write.
type DirectoryUser struct {
	ID          string
	Email       string
	UserType    UserType
	Role        Role
	DisplayName string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}
