package investment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"moneypro/internal/domain"
	"moneypro/internal/transaction"
	apperrors "moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

// --- Mocks ---

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) List(ctx context.Context, activeOnly bool) ([]*domain.InvestmentPlan, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InvestmentPlan), args.Error(1)
}

func (m *MockPlanRepository) FindByID(ctx context.Context, id int64) (*domain.InvestmentPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvestmentPlan), args.Error(1)
}

func (m *MockPlanRepository) Create(ctx context.Context, plan *domain.InvestmentPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) Update(ctx context.Context, plan *domain.InvestmentPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, inv *domain.Investment) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) ([]*domain.Investment, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Investment), args.Error(1)
}

func (m *MockRepository) ListActiveIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Investment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Investment), args.Error(1)
}

func (m *MockRepository) UpdateAccrual(ctx context.Context, inv *domain.Investment) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedger) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Create(ctx context.Context, p transaction.CreateParams) (*domain.Transaction, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// passTx runs fn directly; rollback is covered by the settlement tests.
type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	plans    *MockPlanRepository
	repo     *MockRepository
	ledger   *MockLedger
	recorder *MockRecorder
	svc      *Service
	clock    time.Time
}

func newFixture() *fixture {
	f := &fixture{
		plans:    new(MockPlanRepository),
		repo:     new(MockRepository),
		ledger:   new(MockLedger),
		recorder: new(MockRecorder),
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.plans, f.repo, passTx{}, f.ledger, f.recorder, logger.NewNop())
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decEq(want string) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec(want)) })
}

func starterPlan() *domain.InvestmentPlan {
	return &domain.InvestmentPlan{
		ID:           1,
		Name:         "Starter Plan",
		InterestRate: dec("5.00"),
		MinAmount:    dec("100"),
		MaxAmount:    dec("999.99"),
		DurationDays: 7,
		IsActive:     true,
	}
}

// --- Plans ---

func TestQuote(t *testing.T) {
	q := Quote(&domain.InvestmentPlan{ID: 2, InterestRate: dec("10"), DurationDays: 15}, dec("1000"))

	assert.True(t, q.NetProfit.Equal(dec("100")))
	assert.True(t, q.TotalReturn.Equal(dec("1100")))
	assert.True(t, q.DailyProfit.Equal(dec("6.67")))
	assert.True(t, q.TotalPercent.Equal(dec("10")))
	assert.Equal(t, 15, q.DurationDays)
}

func TestCalculateProfit(t *testing.T) {
	f := newFixture()
	f.plans.On("FindByID", mock.Anything, int64(1)).Return(starterPlan(), nil)
	f.plans.On("FindByID", mock.Anything, int64(99)).Return(nil, apperrors.ErrPlanNotFound)

	q, err := f.svc.CalculateProfit(context.Background(), 1, dec("500"))
	require.NoError(t, err)
	assert.True(t, q.NetProfit.Equal(dec("25")))
	assert.True(t, q.DailyProfit.Equal(dec("3.57")))

	_, err = f.svc.CalculateProfit(context.Background(), 99, dec("500"))
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)

	_, err = f.svc.CalculateProfit(context.Background(), 1, decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestCreatePlan_Validation(t *testing.T) {
	f := newFixture()
	valid := PlanInput{Name: "Gold", InterestRate: dec("12"), MinAmount: dec("100"), MaxAmount: dec("500"), DurationDays: 10, IsActive: true}

	bad := []PlanInput{valid, valid, valid, valid}
	bad[0].Name = " "
	bad[1].MinAmount = decimal.Zero
	bad[2].MaxAmount = dec("50")
	bad[3].DurationDays = 0
	for _, in := range bad {
		_, err := f.svc.CreatePlan(context.Background(), in)
		assert.Error(t, err)
	}
	f.plans.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	f.plans.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.InvestmentPlan) bool {
		return p.Name == "Gold" && p.DurationDays == 10
	})).Return(nil)
	plan, err := f.svc.CreatePlan(context.Background(), valid)
	require.NoError(t, err)
	assert.True(t, plan.IsActive)
}

func TestUpdatePlan(t *testing.T) {
	f := newFixture()
	f.plans.On("FindByID", mock.Anything, int64(1)).Return(starterPlan(), nil)
	f.plans.On("Update", mock.Anything, mock.Anything).Return(nil)

	plan, err := f.svc.UpdatePlan(context.Background(), 1, PlanInput{
		Name:         "Starter Plan",
		InterestRate: dec("6"),
		MinAmount:    dec("100"),
		MaxAmount:    dec("999.99"),
		DurationDays: 7,
		IsActive:     false,
	})
	require.NoError(t, err)
	assert.False(t, plan.IsActive)
	assert.True(t, plan.InterestRate.Equal(dec("6")))
}

// --- Invest ---

func TestInvest(t *testing.T) {
	f := newFixture()
	accountID := uuid.New()

	f.plans.On("FindByID", mock.Anything, int64(1)).Return(starterPlan(), nil)
	f.ledger.On("Debit", mock.Anything, accountID, decEq("500")).Return(dec("500"), nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(inv *domain.Investment) bool {
		return inv.AccountID == accountID && inv.Status == domain.InvestmentStatusActive
	})).Return(nil)
	f.recorder.On("Create", mock.Anything, mock.MatchedBy(func(p transaction.CreateParams) bool {
		return p.Type == domain.TransactionTypeInvestment && p.Status == domain.TransactionStatusCompleted && p.Amount.Equal(dec("500"))
	})).Return(&domain.Transaction{ID: uuid.New()}, nil)

	inv, err := f.svc.Invest(context.Background(), accountID, 1, dec("500"))
	require.NoError(t, err)
	assert.Equal(t, f.clock.Add(7*24*time.Hour), inv.EndDate)
	assert.True(t, inv.InterestRate.Equal(dec("5")))
	assert.Equal(t, 7, inv.DurationDays)

	f.ledger.AssertExpectations(t)
	f.recorder.AssertExpectations(t)
}

func TestInvest_Rejections(t *testing.T) {
	accountID := uuid.New()

	t.Run("inactive plan", func(t *testing.T) {
		f := newFixture()
		plan := starterPlan()
		plan.IsActive = false
		f.plans.On("FindByID", mock.Anything, int64(1)).Return(plan, nil)

		_, err := f.svc.Invest(context.Background(), accountID, 1, dec("500"))
		assert.ErrorIs(t, err, apperrors.ErrPlanInactive)
		f.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("out of range", func(t *testing.T) {
		f := newFixture()
		f.plans.On("FindByID", mock.Anything, int64(1)).Return(starterPlan(), nil)

		for _, amt := range []string{"99.99", "1000"} {
			_, err := f.svc.Invest(context.Background(), accountID, 1, dec(amt))
			assert.ErrorIs(t, err, apperrors.ErrAmountOutOfRange)
		}
		f.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		f := newFixture()
		f.plans.On("FindByID", mock.Anything, int64(1)).Return(starterPlan(), nil)
		f.ledger.On("Debit", mock.Anything, accountID, mock.Anything).Return(decimal.Zero, apperrors.ErrInsufficientBalance)

		_, err := f.svc.Invest(context.Background(), accountID, 1, dec("500"))
		assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown plan", func(t *testing.T) {
		f := newFixture()
		f.plans.On("FindByID", mock.Anything, int64(5)).Return(nil, apperrors.ErrPlanNotFound)

		_, err := f.svc.Invest(context.Background(), accountID, 5, dec("500"))
		assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)
	})
}

// --- Accrual ---

func activeInvestment(start time.Time) *domain.Investment {
	return &domain.Investment{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		PlanID:       2,
		Amount:       dec("1000"),
		InterestRate: dec("10"),
		DurationDays: 15,
		ProfitPaid:   decimal.Zero,
		Status:       domain.InvestmentStatusActive,
		StartDate:    start,
		EndDate:      start.Add(15 * 24 * time.Hour),
	}
}

func TestProfitDue(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := activeInvestment(start)

	assert.True(t, ProfitDue(inv, start.Add(12*time.Hour)).IsZero())
	assert.True(t, ProfitDue(inv, start.Add(24*time.Hour)).Equal(dec("6.67")))
	assert.True(t, ProfitDue(inv, start.Add(3*24*time.Hour)).Equal(dec("20")))

	inv.ProfitPaid = dec("20")
	inv.DaysPaid = 3
	assert.True(t, ProfitDue(inv, start.Add(3*24*time.Hour+time.Hour)).IsZero())
	assert.True(t, ProfitDue(inv, start.Add(4*24*time.Hour)).Equal(dec("6.67")))

	// At maturity the full total is due regardless of rounding on earlier days.
	inv.ProfitPaid = dec("93.33")
	assert.True(t, ProfitDue(inv, inv.EndDate).Equal(dec("6.67")))
	assert.True(t, ProfitDue(inv, inv.EndDate.Add(48*time.Hour)).Equal(dec("6.67")))
}

func TestDaysElapsed_CappedAtDuration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := activeInvestment(start)

	assert.Equal(t, 0, DaysElapsed(inv, start.Add(-time.Hour)))
	assert.Equal(t, 2, DaysElapsed(inv, start.Add(50*time.Hour)))
	assert.Equal(t, 15, DaysElapsed(inv, start.Add(100*24*time.Hour)))
}

func TestAccrueProfits_PaysElapsedDays(t *testing.T) {
	f := newFixture()
	inv := activeInvestment(f.clock.Add(-2 * 24 * time.Hour))

	f.repo.On("ListActiveIDs", mock.Anything, accrualBatchSize).Return([]uuid.UUID{inv.ID}, nil)
	f.repo.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
	f.ledger.On("Credit", mock.Anything, inv.AccountID, decEq("13.33")).Return(dec("13.33"), nil)
	f.recorder.On("Create", mock.Anything, mock.MatchedBy(func(p transaction.CreateParams) bool {
		return p.Type == domain.TransactionTypeProfit && p.Amount.Equal(dec("13.33"))
	})).Return(&domain.Transaction{}, nil)
	f.repo.On("UpdateAccrual", mock.Anything, mock.MatchedBy(func(i *domain.Investment) bool {
		return i.DaysPaid == 2 && i.ProfitPaid.Equal(dec("13.33")) && i.Status == domain.InvestmentStatusActive
	})).Return(nil)

	report, err := f.svc.AccrueProfits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Matured)
	assert.True(t, report.Paid.Equal(dec("13.33")))
	f.repo.AssertExpectations(t)
}

func TestAccrueProfits_MaturityReturnsPrincipal(t *testing.T) {
	f := newFixture()
	inv := activeInvestment(f.clock.Add(-16 * 24 * time.Hour))
	inv.ProfitPaid = dec("93.33")
	inv.DaysPaid = 14

	f.repo.On("ListActiveIDs", mock.Anything, accrualBatchSize).Return([]uuid.UUID{inv.ID}, nil)
	f.repo.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
	f.ledger.On("Credit", mock.Anything, inv.AccountID, decEq("6.67")).Return(dec("1"), nil).Once()
	f.ledger.On("Credit", mock.Anything, inv.AccountID, decEq("1000")).Return(dec("1"), nil).Once()
	f.recorder.On("Create", mock.Anything, mock.MatchedBy(func(p transaction.CreateParams) bool {
		return p.Type == domain.TransactionTypeProfit && p.Amount.Equal(dec("6.67"))
	})).Return(&domain.Transaction{}, nil).Once()
	f.recorder.On("Create", mock.Anything, mock.MatchedBy(func(p transaction.CreateParams) bool {
		return p.Type == domain.TransactionTypeInvestmentReturn && p.Amount.Equal(dec("1000"))
	})).Return(&domain.Transaction{}, nil).Once()
	f.repo.On("UpdateAccrual", mock.Anything, mock.MatchedBy(func(i *domain.Investment) bool {
		return i.Status == domain.InvestmentStatusCompleted && i.ProfitPaid.Equal(dec("100")) && i.DaysPaid == 15
	})).Return(nil)

	report, err := f.svc.AccrueProfits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matured)
	f.ledger.AssertExpectations(t)
	f.recorder.AssertExpectations(t)
}

func TestAccrueProfits_SkipsAlreadyCompleted(t *testing.T) {
	f := newFixture()
	inv := activeInvestment(f.clock.Add(-20 * 24 * time.Hour))
	inv.Status = domain.InvestmentStatusCompleted

	f.repo.On("ListActiveIDs", mock.Anything, accrualBatchSize).Return([]uuid.UUID{inv.ID}, nil)
	f.repo.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)

	report, err := f.svc.AccrueProfits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.True(t, report.Paid.IsZero())
	f.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "UpdateAccrual", mock.Anything, mock.Anything)
}

func TestAccrueProfits_ContinuesPastFailures(t *testing.T) {
	f := newFixture()
	broken := uuid.New()
	inv := activeInvestment(f.clock.Add(-1 * 24 * time.Hour))

	f.repo.On("ListActiveIDs", mock.Anything, accrualBatchSize).Return([]uuid.UUID{broken, inv.ID}, nil)
	f.repo.On("FindByIDForUpdate", mock.Anything, broken).Return(nil, apperrors.ErrInvestmentNotFound)
	f.repo.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
	f.ledger.On("Credit", mock.Anything, inv.AccountID, decEq("6.67")).Return(dec("6.67"), nil)
	f.recorder.On("Create", mock.Anything, mock.Anything).Return(&domain.Transaction{}, nil)
	f.repo.On("UpdateAccrual", mock.Anything, mock.Anything).Return(nil)

	report, err := f.svc.AccrueProfits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Processed)
}
