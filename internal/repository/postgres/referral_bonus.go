package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

type ReferralBonusRepository struct {
	db *sqlx.DB
}

func NewReferralBonusRepository(db *sqlx.DB) *ReferralBonusRepository {
	return &ReferralBonusRepository{db: db}
}

func (r *ReferralBonusRepository) Create(ctx context.Context, bonus *domain.ReferralBonus) error {
	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), `
		INSERT INTO referral_bonuses (
			id, account_id, source_account_id, transaction_id, deposit_transaction_id, amount, level, created_at
		) VALUES (
			:id, :account_id, :source_account_id, :transaction_id, :deposit_transaction_id, :amount, :level, :created_at
		)
	`, bonus)
	return errors.Wrap(err, "failed to create referral bonus")
}

func (r *ReferralBonusRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.ReferralBonus, error) {
	var bonuses []*domain.ReferralBonus
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &bonuses, `
		SELECT * FROM referral_bonuses
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	return bonuses, errors.Wrap(err, "failed to find referral bonuses")
}

func (r *ReferralBonusRepository) FindByDepositTransactionID(ctx context.Context, depositTxID uuid.UUID) ([]*domain.ReferralBonus, error) {
	var bonuses []*domain.ReferralBonus
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &bonuses,
		`SELECT * FROM referral_bonuses WHERE deposit_transaction_id = $1 ORDER BY level`, depositTxID)
	return bonuses, errors.Wrap(err, "failed to find referral bonuses")
}

func (r *ReferralBonusRepository) TotalByAccountID(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &total,
		`SELECT COALESCE(SUM(amount), 0) FROM referral_bonuses WHERE account_id = $1`, accountID)
	return total, errors.Wrap(err, "failed to sum referral bonuses")
}
