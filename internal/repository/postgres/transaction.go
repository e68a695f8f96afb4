package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, account_id, type, amount, status, description, payment_method,
			payment_proof, destination, reference, metadata, completed_at, created_at, updated_at
		) VALUES (
			:id, :account_id, :type, :amount, :status, :description, :payment_method,
			:payment_proof, :destination, :reference, :metadata, :completed_at, :created_at, :updated_at
		)
	`
	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, tx)
	return errors.Wrap(err, "failed to create transaction")
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.findOne(ctx, `SELECT * FROM transactions WHERE id = $1`, id)
}

// FindByIDForUpdate loads and row-locks a transaction. It must run inside TxManager.WithinTx.
func (r *TransactionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	if !inTx(ctx) {
		return nil, fmt.Errorf("FindByIDForUpdate requires a database transaction")
	}
	return r.findOne(ctx, `SELECT * FROM transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransactionRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	err := sqlx.GetContext(ctx, executor(ctx, r.db), tx, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, errors.Wrap(err, "failed to find transaction")
	}
	return tx, nil
}

// UpdateStatus moves a transaction from one status to another. It reports false
// when the row is missing or no longer in the expected status.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	now := time.Now()
	var completedAt *time.Time
	if to.IsTerminal() {
		completedAt = &now
	}

	result, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, completed_at = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`, to, completedAt, now, id, from)
	if err != nil {
		return false, errors.Wrap(err, "failed to update transaction status")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return rows == 1, nil
}

func (r *TransactionRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &txs, `
		SELECT * FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	return txs, errors.Wrap(err, "failed to find transactions")
}

func (r *TransactionRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &count,
		`SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID)
	return count, errors.Wrap(err, "failed to count transactions")
}

func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, error) {
	where, args := transactionWhere(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT * FROM transactions %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	var txs []*domain.Transaction
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &txs, query, args...)
	return txs, errors.Wrap(err, "failed to list transactions")
}

func (r *TransactionRepository) Count(ctx context.Context, filter domain.TransactionFilter) (int, error) {
	where, args := transactionWhere(filter)
	var count int
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &count, `SELECT COUNT(*) FROM transactions `+where, args...)
	return count, errors.Wrap(err, "failed to count transactions")
}

func transactionWhere(f domain.TransactionFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.AccountID != nil {
		args = append(args, *f.AccountID)
		conds = append(conds, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
