package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

type CommissionRuleRepository struct {
	db *sqlx.DB
}

func NewCommissionRuleRepository(db *sqlx.DB) *CommissionRuleRepository {
	return &CommissionRuleRepository{db: db}
}

// FindActiveByLevel returns the most recently updated active rule for a level.
func (r *CommissionRuleRepository) FindActiveByLevel(ctx context.Context, level int) (*domain.CommissionRule, error) {
	rule := &domain.CommissionRule{}
	err := sqlx.GetContext(ctx, executor(ctx, r.db), rule, `
		SELECT * FROM commission_rules
		WHERE level = $1 AND is_active = TRUE
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`, level)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrCommissionRuleNotFound
		}
		return nil, errors.Wrap(err, "failed to find commission rule")
	}
	return rule, nil
}

func (r *CommissionRuleRepository) FindByID(ctx context.Context, id int64) (*domain.CommissionRule, error) {
	rule := &domain.CommissionRule{}
	err := sqlx.GetContext(ctx, executor(ctx, r.db), rule, `SELECT * FROM commission_rules WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrCommissionRuleNotFound
		}
		return nil, errors.Wrap(err, "failed to find commission rule")
	}
	return rule, nil
}

func (r *CommissionRuleRepository) List(ctx context.Context) ([]*domain.CommissionRule, error) {
	var rules []*domain.CommissionRule
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rules,
		`SELECT * FROM commission_rules ORDER BY level, updated_at DESC`)
	return rules, errors.Wrap(err, "failed to list commission rules")
}

func (r *CommissionRuleRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &count, `SELECT COUNT(*) FROM commission_rules`)
	return count, errors.Wrap(err, "failed to count commission rules")
}

func (r *CommissionRuleRepository) Create(ctx context.Context, rule *domain.CommissionRule) error {
	now := time.Now()
	rule.CreatedAt, rule.UpdatedAt = now, now
	rows, err := sqlx.NamedQueryContext(ctx, executor(ctx, r.db), `
		INSERT INTO commission_rules (level, commission_percentage, bonus_percentage, is_active, created_at, updated_at)
		VALUES (:level, :commission_percentage, :bonus_percentage, :is_active, :created_at, :updated_at)
		RETURNING id
	`, rule)
	if err != nil {
		return errors.Wrap(err, "failed to create commission rule")
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&rule.ID); err != nil {
			return errors.Wrap(err, "failed to read commission rule id")
		}
	}
	return errors.Wrap(rows.Err(), "failed to create commission rule")
}

func (r *CommissionRuleRepository) Update(ctx context.Context, rule *domain.CommissionRule) error {
	rule.UpdatedAt = time.Now()
	result, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), `
		UPDATE commission_rules SET
			commission_percentage = :commission_percentage,
			bonus_percentage = :bonus_percentage,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id
	`, rule)
	if err != nil {
		return errors.Wrap(err, "failed to update commission rule")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.ErrCommissionRuleNotFound
	}
	return nil
}
