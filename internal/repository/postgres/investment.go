package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

type PlanRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) List(ctx context.Context, activeOnly bool) ([]*domain.InvestmentPlan, error) {
	query := `SELECT * FROM investment_plans ORDER BY min_amount, id`
	if activeOnly {
		query = `SELECT * FROM investment_plans WHERE is_active = TRUE ORDER BY min_amount, id`
	}
	var plans []*domain.InvestmentPlan
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &plans, query)
	return plans, errors.Wrap(err, "failed to list investment plans")
}

func (r *PlanRepository) FindByID(ctx context.Context, id int64) (*domain.InvestmentPlan, error) {
	plan := &domain.InvestmentPlan{}
	err := sqlx.GetContext(ctx, executor(ctx, r.db), plan, `SELECT * FROM investment_plans WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrPlanNotFound
		}
		return nil, errors.Wrap(err, "failed to find investment plan")
	}
	return plan, nil
}

func (r *PlanRepository) Create(ctx context.Context, plan *domain.InvestmentPlan) error {
	now := time.Now()
	plan.CreatedAt, plan.UpdatedAt = now, now
	rows, err := sqlx.NamedQueryContext(ctx, executor(ctx, r.db), `
		INSERT INTO investment_plans (
			name, description, interest_rate, min_amount, max_amount, duration_days, is_active, created_at, updated_at
		) VALUES (
			:name, :description, :interest_rate, :min_amount, :max_amount, :duration_days, :is_active, :created_at, :updated_at
		)
		RETURNING id
	`, plan)
	if err != nil {
		return errors.Wrap(err, "failed to create investment plan")
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&plan.ID); err != nil {
			return errors.Wrap(err, "failed to read investment plan id")
		}
	}
	return errors.Wrap(rows.Err(), "failed to create investment plan")
}

func (r *PlanRepository) Update(ctx context.Context, plan *domain.InvestmentPlan) error {
	plan.UpdatedAt = time.Now()
	result, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), `
		UPDATE investment_plans SET
			name = :name,
			description = :description,
			interest_rate = :interest_rate,
			min_amount = :min_amount,
			max_amount = :max_amount,
			duration_days = :duration_days,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id
	`, plan)
	if err != nil {
		return errors.Wrap(err, "failed to update investment plan")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.ErrPlanNotFound
	}
	return nil
}

type InvestmentRepository struct {
	db *sqlx.DB
}

func NewInvestmentRepository(db *sqlx.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

func (r *InvestmentRepository) Create(ctx context.Context, inv *domain.Investment) error {
	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), `
		INSERT INTO investments (
			id, account_id, plan_id, amount, interest_rate, duration_days, profit_paid, days_paid,
			status, start_date, end_date, last_accrued_at, created_at, updated_at
		) VALUES (
			:id, :account_id, :plan_id, :amount, :interest_rate, :duration_days, :profit_paid, :days_paid,
			:status, :start_date, :end_date, :last_accrued_at, :created_at, :updated_at
		)
	`, inv)
	return errors.Wrap(err, "failed to create investment")
}

func (r *InvestmentRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) ([]*domain.Investment, error) {
	var investments []*domain.Investment
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &investments,
		`SELECT * FROM investments WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	return investments, errors.Wrap(err, "failed to find investments")
}

// ListActiveIDs returns ids of active investments; each is re-read under lock when accrued.
func (r *InvestmentRepository) ListActiveIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &ids, `
		SELECT id FROM investments
		WHERE status = 'active'
		ORDER BY COALESCE(last_accrued_at, start_date)
		LIMIT $1
	`, limit)
	return ids, errors.Wrap(err, "failed to list active investments")
}

// FindByIDForUpdate loads and row-locks an investment. It must run inside TxManager.WithinTx.
func (r *InvestmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Investment, error) {
	if !inTx(ctx) {
		return nil, fmt.Errorf("FindByIDForUpdate requires a database transaction")
	}
	inv := &domain.Investment{}
	err := sqlx.GetContext(ctx, executor(ctx, r.db), inv, `SELECT * FROM investments WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrInvestmentNotFound
		}
		return nil, errors.Wrap(err, "failed to find investment")
	}
	return inv, nil
}

func (r *InvestmentRepository) UpdateAccrual(ctx context.Context, inv *domain.Investment) error {
	inv.UpdatedAt = time.Now()
	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), `
		UPDATE investments SET
			profit_paid = :profit_paid,
			days_paid = :days_paid,
			status = :status,
			last_accrued_at = :last_accrued_at,
			updated_at = :updated_at
		WHERE id = :id
	`, inv)
	return errors.Wrap(err, "failed to update investment accrual")
}
