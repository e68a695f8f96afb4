// Package investment manages plans, investments and daily profit accrual.
package investment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/internal/transaction"
	"moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

const day = 24 * time.Hour

type PlanRepository interface {
	List(ctx context.Context, activeOnly bool) ([]*domain.InvestmentPlan, error)
	FindByID(ctx context.Context, id int64) (*domain.InvestmentPlan, error)
	Create(ctx context.Context, plan *domain.InvestmentPlan) error
	Update(ctx context.Context, plan *domain.InvestmentPlan) error
}

type Repository interface {
	Create(ctx context.Context, inv *domain.Investment) error
	FindByAccountID(ctx context.Context, accountID uuid.UUID) ([]*domain.Investment, error)
	ListActiveIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Investment, error)
	UpdateAccrual(ctx context.Context, inv *domain.Investment) error
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Ledger interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type Recorder interface {
	Create(ctx context.Context, p transaction.CreateParams) (*domain.Transaction, error)
}

type Service struct {
	plans    PlanRepository
	repo     Repository
	txm      TxManager
	ledger   Ledger
	recorder Recorder
	logger   logger.Logger
	now      func() time.Time
}

func NewService(plans PlanRepository, repo Repository, txm TxManager, ledger Ledger, recorder Recorder, log logger.Logger) *Service {
	return &Service{
		plans:    plans,
		repo:     repo,
		txm:      txm,
		ledger:   ledger,
		recorder: recorder,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ==============================================================================
// Plans
// ==============================================================================

func (s *Service) ListPlans(ctx context.Context, activeOnly bool) ([]*domain.InvestmentPlan, error) {
	return s.plans.List(ctx, activeOnly)
}

func (s *Service) GetPlan(ctx context.Context, id int64) (*domain.InvestmentPlan, error) {
	return s.plans.FindByID(ctx, id)
}

type PlanInput struct {
	Name         string
	Description  string
	InterestRate decimal.Decimal
	MinAmount    decimal.Decimal
	MaxAmount    decimal.Decimal
	DurationDays int
	IsActive     bool
}

func (in PlanInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: plan name is required", errors.ErrInvalidInput)
	case in.InterestRate.IsNegative():
		return fmt.Errorf("%w: interest rate cannot be negative", errors.ErrInvalidInput)
	case !in.MinAmount.IsPositive():
		return fmt.Errorf("%w: minimum amount must be positive", errors.ErrInvalidInput)
	case in.MaxAmount.LessThan(in.MinAmount):
		return fmt.Errorf("%w: maximum amount must not be below the minimum", errors.ErrInvalidInput)
	case in.DurationDays <= 0:
		return fmt.Errorf("%w: duration must be at least one day", errors.ErrInvalidInput)
	}
	return nil
}

func (in PlanInput) apply(p *domain.InvestmentPlan) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.InterestRate = in.InterestRate
	p.MinAmount = in.MinAmount
	p.MaxAmount = in.MaxAmount
	p.DurationDays = in.DurationDays
	p.IsActive = in.IsActive
}

func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*domain.InvestmentPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	plan := &domain.InvestmentPlan{}
	in.apply(plan)
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	s.logger.Info("Investment plan created", map[string]interface{}{
		"plan_id": plan.ID,
		"name":    plan.Name,
	})
	return plan, nil
}

// UpdatePlan edits a plan. Running investments keep the terms they were opened with.
func (s *Service) UpdatePlan(ctx context.Context, id int64, in PlanInput) (*domain.InvestmentPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(plan)
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.logger.Info("Investment plan updated", map[string]interface{}{
		"plan_id":   plan.ID,
		"is_active": plan.IsActive,
	})
	return plan, nil
}

// ProfitQuote is the projected outcome of investing amount in a plan.
type ProfitQuote struct {
	PlanID       int64           `json:"plan_id"`
	Amount       decimal.Decimal `json:"amount"`
	TotalPercent decimal.Decimal `json:"total_percent"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	TotalReturn  decimal.Decimal `json:"total_return"`
	DailyProfit  decimal.Decimal `json:"daily_profit"`
	DurationDays int             `json:"duration_days"`
}

func (s *Service) CalculateProfit(ctx context.Context, planID int64, amount decimal.Decimal) (*ProfitQuote, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	return Quote(plan, amount), nil
}

// Quote projects the returns of amount under plan, rounded to cents.
func Quote(plan *domain.InvestmentPlan, amount decimal.Decimal) *ProfitQuote {
	profit := totalProfit(amount, plan.InterestRate)
	return &ProfitQuote{
		PlanID:       plan.ID,
		Amount:       amount,
		TotalPercent: plan.InterestRate,
		NetProfit:    profit,
		TotalReturn:  amount.Add(profit),
		DailyProfit:  profit.Div(decimal.NewFromInt(int64(plan.DurationDays))).Round(2),
		DurationDays: plan.DurationDays,
	}
}

func totalProfit(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
}

// ==============================================================================
// Investments
// ==============================================================================

// Invest moves amount from the balance into a new active investment.
func (s *Service) Invest(ctx context.Context, accountID uuid.UUID, planID int64, amount decimal.Decimal) (*domain.Investment, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var inv *domain.Investment
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		plan, err := s.plans.FindByID(ctx, planID)
		if err != nil {
			return err
		}
		if !plan.IsActive {
			return errors.ErrPlanInactive
		}
		if amount.LessThan(plan.MinAmount) || amount.GreaterThan(plan.MaxAmount) {
			return errors.ErrAmountOutOfRange
		}

		if _, err := s.ledger.Debit(ctx, accountID, amount); err != nil {
			return err
		}

		now := s.now()
		inv = &domain.Investment{
			ID:           uuid.New(),
			AccountID:    accountID,
			PlanID:       plan.ID,
			Amount:       amount,
			InterestRate: plan.InterestRate,
			DurationDays: plan.DurationDays,
			ProfitPaid:   decimal.Zero,
			Status:       domain.InvestmentStatusActive,
			StartDate:    now,
			EndDate:      now.Add(time.Duration(plan.DurationDays) * day),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.Create(ctx, inv); err != nil {
			return err
		}

		_, err = s.recorder.Create(ctx, transaction.CreateParams{
			AccountID:   accountID,
			Type:        domain.TransactionTypeInvestment,
			Amount:      amount,
			Status:      domain.TransactionStatusCompleted,
			Description: fmt.Sprintf("Investment in %s", plan.Name),
			Reference:   inv.ID.String(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Investment opened", map[string]interface{}{
		"investment_id": inv.ID,
		"account_id":    accountID,
		"plan_id":       planID,
		"amount":        amount.String(),
	})
	return inv, nil
}

func (s *Service) ListInvestments(ctx context.Context, accountID uuid.UUID) ([]*domain.Investment, error) {
	return s.repo.FindByAccountID(ctx, accountID)
}
