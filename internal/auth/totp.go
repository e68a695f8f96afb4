package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"moneypro/internal/domain"
	apperrors "moneypro/pkg/errors"
)

// TOTPEnrolment is shown once so the user can add the secret to an authenticator app.
type TOTPEnrolment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

// EnrolTOTP issues a new secret. It only takes effect after ConfirmTOTP.
func (s *Service) EnrolTOTP(ctx context.Context, accountID uuid.UUID) (*TOTPEnrolment, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: account.Email,
	})
	if err != nil {
		return nil, err
	}

	secret := key.Secret()
	account.TOTPSecret = &secret
	account.IsTOTPEnabled = false
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}

	return &TOTPEnrolment{Secret: secret, URL: key.URL()}, nil
}

// ConfirmTOTP enables two-factor login once the user proves they hold the secret.
func (s *Service) ConfirmTOTP(ctx context.Context, accountID uuid.UUID, code string) error {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !validateOTP(account, code) {
		return apperrors.ErrInvalidOTP
	}

	account.IsTOTPEnabled = true
	if err := s.repo.Update(ctx, account); err != nil {
		return err
	}

	s.logger.Info("TOTP enabled", map[string]interface{}{
		"account_id": account.ID,
	})
	return nil
}

func validateOTP(account *domain.Account, code string) bool {
	if account.TOTPSecret == nil || *account.TOTPSecret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, *account.TOTPSecret, time.Now().UTC(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	return err == nil && ok
}
