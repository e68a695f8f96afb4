// Package transaction records fund movements and enforces their status lifecycle.
package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

type Repository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) (bool, error)
	FindByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int, error)
	List(ctx context.Context, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, error)
	Count(ctx context.Context, filter domain.TransactionFilter) (int, error)
}

// Recorder creates transaction records and moves them through their lifecycle.
type Recorder struct {
	repo   Repository
	logger logger.Logger
}

func NewRecorder(repo Repository, log logger.Logger) *Recorder {
	return &Recorder{repo: repo, logger: log}
}

// CreateParams describes a new transaction. Status is optional.
type CreateParams struct {
	AccountID     uuid.UUID
	Type          domain.TransactionType
	Amount        decimal.Decimal
	Status        domain.TransactionStatus
	Description   string
	PaymentMethod string
	PaymentProof  string
	Destination   string
	Reference     string
	Metadata      domain.Metadata
}

// Create records a new transaction. Deposits and withdrawals default to pending;
// every other type is system generated and defaults to completed.
func (r *Recorder) Create(ctx context.Context, p CreateParams) (*domain.Transaction, error) {
	if !p.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}
	if !p.Type.IsValid() {
		return nil, fmt.Errorf("unknown transaction type %q", p.Type)
	}

	status := p.Status
	if status == "" {
		status = domain.TransactionStatusCompleted
		if p.Type.RequiresApproval() {
			status = domain.TransactionStatusPending
		}
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:            uuid.New(),
		AccountID:     p.AccountID,
		Type:          p.Type,
		Amount:        p.Amount,
		Status:        status,
		Description:   p.Description,
		PaymentMethod: optional(p.PaymentMethod),
		PaymentProof:  optional(p.PaymentProof),
		Destination:   optional(p.Destination),
		Reference:     optional(p.Reference),
		Metadata:      p.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status.IsTerminal() {
		tx.CompletedAt = &now
	}

	if err := r.repo.Create(ctx, tx); err != nil {
		return nil, err
	}

	r.logger.Info("Transaction recorded", map[string]interface{}{
		"tx_id":      tx.ID,
		"account_id": tx.AccountID,
		"type":       tx.Type,
		"amount":     tx.Amount.String(),
		"status":     tx.Status,
	})
	return tx, nil
}

// TransitionStatus moves a pending transaction to completed or failed. Any other
// request, including a retry on an already settled transaction, fails with
// ErrInvalidTransition.
func (r *Recorder) TransitionStatus(ctx context.Context, id uuid.UUID, to domain.TransactionStatus) error {
	if err := ValidateTransition(domain.TransactionStatusPending, to); err != nil {
		return err
	}

	ok, err := r.repo.UpdateStatus(ctx, id, domain.TransactionStatusPending, to)
	if err != nil {
		return err
	}
	if !ok {
		current, err := r.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return ValidateTransition(current.Status, to)
	}

	r.logger.Info("Transaction status changed", map[string]interface{}{
		"tx_id": id,
		"from":  domain.TransactionStatusPending,
		"to":    to,
	})
	return nil
}

func (r *Recorder) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.repo.FindByID(ctx, id)
}

// GetForUpdate loads and locks a transaction for the rest of the surrounding DB transaction.
func (r *Recorder) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.repo.FindByIDForUpdate(ctx, id)
}

// GetOwned returns a transaction only if it belongs to accountID.
func (r *Recorder) GetOwned(ctx context.Context, id, accountID uuid.UUID) (*domain.Transaction, error) {
	tx, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.AccountID != accountID {
		return nil, errors.ErrTransactionNotFound
	}
	return tx, nil
}

func (r *Recorder) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error) {
	txs, err := r.repo.FindByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.repo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (r *Recorder) List(ctx context.Context, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, int, error) {
	txs, err := r.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
