package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"moneypro/internal/domain"
	apperrors "moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockRepository) FindByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

const testSecret = "test-secret"

func newTestService(repo *MockRepository) *Service {
	return NewService(repo, testSecret, time.Hour, "moneypro", logger.NewNop())
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func TestGenerateReferralCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateReferralCode()
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestRegister_WithReferralCode(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	referrer := &domain.Account{ID: uuid.New(), ReferralCode: "REFCODE1"}

	repo.On("ExistsByEmail", mock.Anything, "ada@example.com").Return(false, nil)
	repo.On("FindByReferralCode", mock.Anything, "REFCODE1").Return(referrer, nil)
	repo.On("ExistsByReferralCode", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
		return a.ReferredBy != nil && *a.ReferredBy == "REFCODE1" &&
			codePattern.MatchString(a.ReferralCode) &&
			a.Balance.IsZero() && !a.IsAdmin && a.IsActive
	})).Return(nil)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:        " Ada@Example.com ",
		Password:     "correct-horse",
		FirstName:    "Ada",
		LastName:     "Obi",
		ReferralCode: "refcode1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "ada@example.com", resp.Account.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(resp.Account.PasswordHash), []byte("correct-horse")))
	repo.AssertExpectations(t)
}

func TestRegister_InvalidReferralCode(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("FindByReferralCode", mock.Anything, "MISSING1").Return(nil, apperrors.ErrAccountNotFound)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email: "x@example.com", Password: "password1", FirstName: "X", LastName: "Y", ReferralCode: "MISSING1",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidReferralCode)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("ExistsByEmail", mock.Anything, "taken@example.com").Return(true, nil)

	_, err := svc.Register(context.Background(), &RegisterRequest{Email: "taken@example.com", Password: "password1"})
	assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
}

func TestRegister_RetriesReferralCodeCollision(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("ExistsByReferralCode", mock.Anything, mock.Anything).Return(true, nil).Twice()
	repo.On("ExistsByReferralCode", mock.Anything, mock.Anything).Return(false, nil).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Register(context.Background(), &RegisterRequest{Email: "n@example.com", Password: "password1"})
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "ExistsByReferralCode", 3)
}

func TestLogin_IssuesTokenWithRole(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	admin := &domain.Account{ID: uuid.New(), Email: "root@example.com", PasswordHash: hashed(t, "s3cret!!"), IsAdmin: true, IsActive: true}

	repo.On("FindByEmail", mock.Anything, "root@example.com").Return(admin, nil)
	repo.On("Update", mock.Anything, admin).Return(nil)

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "root@example.com", Password: "s3cret!!"})
	require.NoError(t, err)
	require.NotNil(t, admin.LastLogin)

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, admin.ID.String(), claims["user_id"])
	assert.Equal(t, "admin", claims["user_type"])
	assert.Equal(t, "moneypro", claims["iss"])
}

func TestLogin_Failures(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	user := &domain.Account{ID: uuid.New(), Email: "u@example.com", PasswordHash: hashed(t, "password1"), IsActive: true}
	disabled := &domain.Account{ID: uuid.New(), Email: "off@example.com", PasswordHash: hashed(t, "password1")}

	repo.On("FindByEmail", mock.Anything, "u@example.com").Return(user, nil)
	repo.On("FindByEmail", mock.Anything, "off@example.com").Return(disabled, nil)
	repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, apperrors.ErrAccountNotFound)

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "u@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: "ghost@example.com", Password: "password1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: "off@example.com", Password: "password1"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestTOTP_EnrolConfirmLogin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	account := &domain.Account{ID: uuid.New(), Email: "admin@example.com", PasswordHash: hashed(t, "password1"), IsAdmin: true, IsActive: true}

	repo.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	repo.On("FindByEmail", mock.Anything, account.Email).Return(account, nil)
	repo.On("Update", mock.Anything, account).Return(nil)

	enrolment, err := svc.EnrolTOTP(context.Background(), account.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, enrolment.Secret)
	assert.Contains(t, enrolment.URL, "otpauth://totp/")
	assert.False(t, account.IsTOTPEnabled)

	assert.ErrorIs(t, svc.ConfirmTOTP(context.Background(), account.ID, "000000"), apperrors.ErrInvalidOTP)

	code, err := totp.GenerateCode(enrolment.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmTOTP(context.Background(), account.ID, code))
	assert.True(t, account.IsTOTPEnabled)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: account.Email, Password: "password1"})
	assert.ErrorIs(t, err, apperrors.ErrOTPRequired)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: account.Email, Password: "password1", OTP: "12345x"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)

	code, err = totp.GenerateCode(enrolment.Secret, time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), &LoginRequest{Email: account.Email, Password: "password1", OTP: code})
	require.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("ExistsByEmail", mock.Anything, "admin@example.com").Return(false, nil).Once()
	repo.On("ExistsByReferralCode", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
		return a.IsAdmin && a.Email == "admin@example.com" && a.ReferredBy == nil
	})).Return(nil).Once()

	created, err := svc.EnsureAdmin(context.Background(), "Admin@example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, created)

	repo.On("ExistsByEmail", mock.Anything, "admin@example.com").Return(true, nil).Once()
	created, err = svc.EnsureAdmin(context.Background(), "admin@example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.False(t, created)
	repo.AssertNumberOfCalls(t, "Create", 1)
}
