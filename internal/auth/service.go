// Package auth implements authentication services (register/login and token issuance).
//
// ==============================================================================
// AUTH SERVICE - internal/auth/service.go
// ==============================================================================
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"moneypro/internal/domain"
	apperrors "moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

// Repository is the account storage used by auth.
type Repository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByReferralCode(ctx context.Context, code string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByReferralCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	Count(ctx context.Context) (int, error)
}

// Service provides registration, login, and token issuance.
type Service struct {
	repo      Repository
	jwtSecret string
	jwtExpiry time.Duration
	issuer    string
	logger    logger.Logger
}

// NewService constructs a Service with the given repository and JWT settings.
func NewService(repo Repository, jwtSecret string, jwtExpiry time.Duration, issuer string, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		issuer:    issuer,
		logger:    log,
	}
}

// RegisterRequest captures the fields required to create a new account.
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	ReferralCode string `json:"referral_code" validate:"omitempty,referral_code"`
}

// LoginRequest captures credentials for login. OTP is required once TOTP is enabled.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTP      string `json:"otp" validate:"omitempty,numeric,len=6"`
}

// TokenResponse is returned on successful register/login.
type TokenResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Account     *domain.Account `json:"user"`
}

// Register creates an account, optionally under a referrer, and returns a token.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrUserAlreadyExists
	}

	var referredBy *string
	if code := strings.ToUpper(strings.TrimSpace(req.ReferralCode)); code != "" {
		if _, err := s.repo.FindByReferralCode(ctx, code); err != nil {
			if apperrors.Is(err, apperrors.ErrAccountNotFound) {
				return nil, apperrors.ErrInvalidReferralCode
			}
			return nil, err
		}
		referredBy = &code
	}

	account, err := s.newAccount(ctx, email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	account.ReferredBy = referredBy

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account registered", map[string]interface{}{
		"account_id":  account.ID,
		"referred_by": referredBy,
	})
	return s.issueToken(account)
}

func (s *Service) newAccount(ctx context.Context, email, password, firstName, lastName string) (*domain.Account, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := s.uniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(passwordHash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		IsActive:     true,
		Balance:      decimal.Zero,
		ReferralCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Login authenticates an account and returns a token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	account, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, apperrors.ErrForbidden
	}

	if account.IsTOTPEnabled {
		if req.OTP == "" {
			return nil, apperrors.ErrOTPRequired
		}
		if !validateOTP(account, req.OTP) {
			return nil, apperrors.ErrInvalidOTP
		}
	}

	now := time.Now().UTC()
	account.LastLogin = &now
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}

	return s.issueToken(account)
}

func (s *Service) issueToken(account *domain.Account) (*TokenResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"user_id":   account.ID.String(),
		"email":     account.Email,
		"user_type": string(account.Role()),
		"iss":       s.issuer,
		"exp":       expiresAt.Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Account:     account,
	}, nil
}

// GetAccount returns the account behind an authenticated request.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.repo.FindByID(ctx, id)
}

// ListAccounts pages through all accounts for admins.
func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, int, error) {
	accounts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// EnsureAdmin creates the bootstrap admin account if no account uses email yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	account, err := s.newAccount(ctx, email, password, "Admin", "")
	if err != nil {
		return false, err
	}
	account.IsAdmin = true
	if err := s.repo.Create(ctx, account); err != nil {
		return false, err
	}

	s.logger.Info("Admin account created", map[string]interface{}{
		"account_id": account.ID,
		"email":      email,
	})
	return true, nil
}
