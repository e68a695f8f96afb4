package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (
			id, email, password_hash, first_name, last_name, is_admin, is_active, balance,
			referral_code, referred_by, totp_secret, is_totp_enabled, created_at, updated_at
		) VALUES (
			:id, :email, :password_hash, :first_name, :last_name, :is_admin, :is_active, :balance,
			:referral_code, :referred_by, :totp_secret, :is_totp_enabled, :created_at, :updated_at
		)
	`
	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, account)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrUserAlreadyExists
		}
		return errors.Wrap(err, "failed to create account")
	}
	return nil
}

// Update persists profile and security fields. Balance moves only through
// AdjustBalance; referral_code and referred_by never change.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	account.UpdatedAt = time.Now()
	query := `
		UPDATE accounts SET
			first_name = :first_name,
			last_name = :last_name,
			is_active = :is_active,
			password_hash = :password_hash,
			totp_secret = :totp_secret,
			is_totp_enabled = :is_totp_enabled,
			last_login = :last_login,
			updated_at = :updated_at
		WHERE id = :id
	`
	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, account)
	return errors.Wrap(err, "failed to update account")
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.findOne(ctx, `SELECT * FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, `SELECT * FROM accounts WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *AccountRepository) FindByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	return r.findOne(ctx, `SELECT * FROM accounts WHERE referral_code = $1`, code)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Account, error) {
	account := &domain.Account{}
	err := sqlx.GetContext(ctx, executor(ctx, r.db), account, query, arg)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "failed to find account")
	}
	return account, nil
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &exists,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE LOWER(email) = LOWER($1))`, email)
	return exists, errors.Wrap(err, "failed to check email")
}

func (r *AccountRepository) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &exists,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE referral_code = $1)`, code)
	return exists, errors.Wrap(err, "failed to check referral code")
}

// AdjustBalance adds delta to the balance in one statement and returns the new
// balance. The row stays locked until the surrounding transaction ends. A result
// below zero is refused with ErrInsufficientBalance.
func (r *AccountRepository) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &balance, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`, delta, id)
	if err == nil {
		return balance, nil
	}
	if err != sql.ErrNoRows {
		return decimal.Zero, errors.Wrap(err, "failed to adjust balance")
	}

	var exists bool
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &exists,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id); err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to check account")
	}
	if !exists {
		return decimal.Zero, errors.ErrAccountNotFound
	}
	return decimal.Zero, errors.ErrInsufficientBalance
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	var accounts []*domain.Account
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &accounts,
		`SELECT * FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	return accounts, errors.Wrap(err, "failed to list accounts")
}

func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &count, `SELECT COUNT(*) FROM accounts`)
	return count, errors.Wrap(err, "failed to count accounts")
}

// ListReferrals returns the first and second level downline of a referral code.
func (r *AccountRepository) ListReferrals(ctx context.Context, referralCode string) ([]*domain.Referral, error) {
	var referrals []*domain.Referral
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &referrals, `
		SELECT id, email, first_name, last_name, 1 AS level, created_at
		FROM accounts
		WHERE referred_by = $1
		UNION ALL
		SELECT l2.id, l2.email, l2.first_name, l2.last_name, 2 AS level, l2.created_at
		FROM accounts l1
		JOIN accounts l2 ON l2.referred_by = l1.referral_code
		WHERE l1.referred_by = $1 AND l1.referral_code <> $1
		ORDER BY level, created_at DESC
	`, referralCode)
	return referrals, errors.Wrap(err, "failed to list referrals")
}
