package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fairmarket/identity/internal/identity/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid TOTP code")
	ErrMFANotEnrolled    = errors.New("MFA not enrolled")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled")
)

// MFAEnrollment is returned from EnrollTOTP for the client to render.
type MFAEnrollment struct {
	Secret  string
	QRCode  string // otpauth:// provisioning URL
	Issuer  string
	Account string
}

// MFAService manages TOTP enrollment for administrators. Enrollment is a
// multi-step flow; each step runs under the session manager's sensitive-
// operation suppression so transient provider events mid-flow are not acted
// on.
type MFAService struct {
	Store    store.Store
	Sessions *SessionManager
	Issuer   string // Issuer name shown in authenticator apps
}

// EnrollTOTP generates a TOTP secret for the administrator and stores it.
// MFA is not enabled until the first code is verified.
func (s *MFAService) EnrollTOTP(ctx context.Context, adminID string) (MFAEnrollment, error) {
	var enrollment MFAEnrollment

	err := s.Sessions.PerformSensitiveOperation(ctx, func(ctx context.Context) error {
		admin, err := s.Store.Admins().GetAdminByID(ctx, adminID)
		if err != nil {
			return err
		}
		if admin.MFAEnabled != nil {
			return ErrMFAAlreadyEnabled
		}

		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.Issuer,
			AccountName: admin.Email,
			Period:      30,
			Digits:      otp.DigitsSix,
			Algorithm:   otp.AlgorithmSHA1,
		})
		if err != nil {
			return fmt.Errorf("generate TOTP key: %w", err)
		}

		if err := s.Store.Admins().UpdateMFASecret(ctx, adminID, key.Secret()); err != nil {
			return fmt.Errorf("store MFA secret: %w", err)
		}

		enrollment = MFAEnrollment{
			Secret:  key.Secret(),
			QRCode:  key.URL(),
			Issuer:  s.Issuer,
			Account: admin.Email,
		}
		return nil
	})
	if err != nil {
		return MFAEnrollment{}, err
	}
	return enrollment, nil
}

// VerifyTOTP checks the submitted code against the enrolled secret and
// enables MFA on success.
func (s *MFAService) VerifyTOTP(ctx context.Context, adminID, code string) error {
	return s.Sessions.PerformSensitiveOperation(ctx, func(ctx context.Context) error {
		admin, err := s.Store.Admins().GetAdminByID(ctx, adminID)
		if err != nil {
			return err
		}
		if admin.MFASecret == nil || *admin.MFASecret == "" {
			return ErrMFANotEnrolled
		}
		if admin.MFAEnabled != nil {
			return ErrMFAAlreadyEnabled
		}

		if !totp.Validate(code, *admin.MFASecret) {
			return ErrInvalidTOTPCode
		}

		return s.Store.Admins().EnableMFA(ctx, adminID)
	})
}

// DisableMFA removes MFA after verifying a current code.
func (s *MFAService) DisableMFA(ctx context.Context, adminID, code string) error {
	return s.Sessions.PerformSensitiveOperation(ctx, func(ctx context.Context) error {
		admin, err := s.Store.Admins().GetAdminByID(ctx, adminID)
		if err != nil {
			return err
		}
		if admin.MFAEnabled == nil || admin.MFASecret == nil {
			return ErrMFANotEnrolled
		}

		if !totp.Validate(code, *admin.MFASecret) {
			return ErrInvalidTOTPCode
		}

		return s.Store.Admins().DisableMFA(ctx, adminID)
	})
}
