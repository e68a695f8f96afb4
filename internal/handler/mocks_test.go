package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"moneypro/internal/auth"
	"moneypro/internal/commission"
	"moneypro/internal/domain"
	"moneypro/internal/investment"
	"moneypro/internal/referral"
	"moneypro/internal/settlement"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenResponse), args.Error(1)
}

func (m *MockAuthService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAuthService) EnrolTOTP(ctx context.Context, accountID uuid.UUID) (*auth.TOTPEnrolment, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TOTPEnrolment), args.Error(1)
}

func (m *MockAuthService) ConfirmTOTP(ctx context.Context, accountID uuid.UUID, code string) error {
	args := m.Called(ctx, accountID, code)
	return args.Error(0)
}

type MockRevoker struct {
	mock.Mock
}

func (m *MockRevoker) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	args := m.Called(ctx, token, ttl)
	return args.Error(0)
}

type MockTransactionReader struct {
	mock.Mock
}

func (m *MockTransactionReader) GetOwned(ctx context.Context, id, accountID uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionReader) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Transaction), args.Int(1), args.Error(2)
}

func (m *MockTransactionReader) List(ctx context.Context, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, int, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Transaction), args.Int(1), args.Error(2)
}

type MockRequestCreator struct {
	mock.Mock
}

func (m *MockRequestCreator) CreateDepositRequest(ctx context.Context, req settlement.DepositRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockRequestCreator) CreateWithdrawalRequest(ctx context.Context, req settlement.WithdrawalRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

type MockReferralService struct {
	mock.Mock
}

func (m *MockReferralService) Link(ctx context.Context, accountID uuid.UUID) (*referral.Link, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referral.Link), args.Error(1)
}

func (m *MockReferralService) ValidateCode(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *MockReferralService) Summary(ctx context.Context, accountID uuid.UUID) (*referral.Summary, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referral.Summary), args.Error(1)
}

func (m *MockReferralService) ListBonuses(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.ReferralBonus, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReferralBonus), args.Error(1)
}

type MockInvestmentService struct {
	mock.Mock
}

func (m *MockInvestmentService) ListPlans(ctx context.Context, activeOnly bool) ([]*domain.InvestmentPlan, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InvestmentPlan), args.Error(1)
}

func (m *MockInvestmentService) CalculateProfit(ctx context.Context, planID int64, amount decimal.Decimal) (*investment.ProfitQuote, error) {
	args := m.Called(ctx, planID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*investment.ProfitQuote), args.Error(1)
}

func (m *MockInvestmentService) Invest(ctx context.Context, accountID uuid.UUID, planID int64, amount decimal.Decimal) (*domain.Investment, error) {
	args := m.Called(ctx, accountID, planID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Investment), args.Error(1)
}

func (m *MockInvestmentService) ListInvestments(ctx context.Context, accountID uuid.UUID) ([]*domain.Investment, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Investment), args.Error(1)
}

func (m *MockInvestmentService) CreatePlan(ctx context.Context, in investment.PlanInput) (*domain.InvestmentPlan, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvestmentPlan), args.Error(1)
}

func (m *MockInvestmentService) UpdatePlan(ctx context.Context, id int64, in investment.PlanInput) (*domain.InvestmentPlan, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvestmentPlan), args.Error(1)
}

type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) result(args mock.Arguments) (*settlement.Result, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Result), args.Error(1)
}

func (m *MockSettler) Review(ctx context.Context, id, adminID uuid.UUID, action settlement.Action) (*settlement.Result, error) {
	return m.result(m.Called(ctx, id, adminID, action))
}

func (m *MockSettler) ApproveDeposit(ctx context.Context, id, adminID uuid.UUID) (*settlement.Result, error) {
	return m.result(m.Called(ctx, id, adminID))
}

func (m *MockSettler) RejectDeposit(ctx context.Context, id, adminID uuid.UUID) (*settlement.Result, error) {
	return m.result(m.Called(ctx, id, adminID))
}

func (m *MockSettler) ApproveWithdrawal(ctx context.Context, id, adminID uuid.UUID) (*settlement.Result, error) {
	return m.result(m.Called(ctx, id, adminID))
}

func (m *MockSettler) RejectWithdrawal(ctx context.Context, id, adminID uuid.UUID) (*settlement.Result, error) {
	return m.result(m.Called(ctx, id, adminID))
}

func (m *MockSettler) AdjustBalance(ctx context.Context, adj settlement.Adjustment) (*domain.Transaction, error) {
	args := m.Called(ctx, adj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

type MockAccountLister struct {
	mock.Mock
}

func (m *MockAccountLister) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Account), args.Int(1), args.Error(2)
}

type MockStats struct {
	mock.Mock
}

func (m *MockStats) Platform(ctx context.Context) (*domain.PlatformStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlatformStats), args.Error(1)
}

type MockCommissionRules struct {
	mock.Mock
}

func (m *MockCommissionRules) ListRules(ctx context.Context) ([]*domain.CommissionRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CommissionRule), args.Error(1)
}

func (m *MockCommissionRules) CreateRule(ctx context.Context, in commission.RuleInput) (*domain.CommissionRule, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommissionRule), args.Error(1)
}

func (m *MockCommissionRules) UpdateRule(ctx context.Context, id int64, in commission.RuleInput) (*domain.CommissionRule, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommissionRule), args.Error(1)
}
