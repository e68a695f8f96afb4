// ==============================================================================
// LEDGER SERVICE - internal/ledger/service.go
// ==============================================================================
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

// BalanceRepository applies a signed delta to an account balance atomically.
type BalanceRepository interface {
	AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

// Service is the only path through which balances change.
type Service struct {
	repo   BalanceRepository
	logger logger.Logger
}

func NewService(repo BalanceRepository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// AdjustBalance adds delta (negative for debits) to the account balance and
// returns the new balance. It fails with ErrAccountNotFound for unknown accounts
// and ErrInsufficientBalance when the result would drop below zero.
func (s *Service) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	balance, err := s.repo.AdjustBalance(ctx, accountID, delta)
	if err != nil {
		if !errors.Is(err, errors.ErrInsufficientBalance) && !errors.Is(err, errors.ErrAccountNotFound) {
			s.logger.Error("Balance adjustment failed", map[string]interface{}{
				"account_id": accountID,
				"delta":      delta.String(),
				"error":      err.Error(),
			})
		}
		return decimal.Zero, err
	}

	s.logger.Debug("Balance adjusted", map[string]interface{}{
		"account_id":  accountID,
		"delta":       delta.String(),
		"new_balance": balance.String(),
	})
	return balance, nil
}

// Credit adds a positive amount.
func (s *Service) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, errors.ErrInvalidAmount
	}
	return s.AdjustBalance(ctx, accountID, amount)
}

// Debit subtracts a positive amount.
func (s *Service) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, errors.ErrInvalidAmount
	}
	return s.AdjustBalance(ctx, accountID, amount.Neg())
}
