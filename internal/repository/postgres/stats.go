package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) PlatformStats(ctx context.Context) (*domain.PlatformStats, error) {
	stats := &domain.PlatformStats{}
	err := sqlx.GetContext(ctx, executor(ctx, r.db), stats, `
		SELECT
			(SELECT COUNT(*) FROM accounts) AS total_users,
			(SELECT COUNT(*) FROM transactions) AS total_transactions,
			(SELECT COUNT(*) FROM transactions WHERE type = 'deposit' AND status = 'pending') AS pending_deposits,
			(SELECT COUNT(*) FROM transactions WHERE type = 'withdrawal' AND status = 'pending') AS pending_withdrawals,
			(SELECT COUNT(*) FROM investments WHERE status = 'active') AS active_investments,
			(SELECT COALESCE(SUM(amount), 0) FROM investments) AS total_invested,
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'profit' AND status = 'completed') AS total_profit_paid,
			(SELECT COALESCE(SUM(amount), 0) FROM referral_bonuses) AS total_referral_payout,
			(SELECT COALESCE(SUM(balance), 0) FROM accounts) AS total_balance
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load platform stats")
	}
	return stats, nil
}
