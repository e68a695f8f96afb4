// ==============================================================================
// SETTLEMENT SERVICE - internal/settlement/service.go
// ==============================================================================
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/internal/monitoring"
	"moneypro/internal/transaction"
	"moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

// TxManager runs fn inside one database transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Recorder interface {
	Create(ctx context.Context, p transaction.CreateParams) (*domain.Transaction, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to domain.TransactionStatus) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

type Ledger interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type CommissionResolver interface {
	ComputeCommissions(ctx context.Context, account *domain.Account, amount decimal.Decimal) ([]domain.Commission, error)
}

type AccountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

type BonusRepository interface {
	Create(ctx context.Context, bonus *domain.ReferralBonus) error
}

// Action is an admin decision on a pending request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Result is the settled transaction plus any referral bonuses it paid.
type Result struct {
	Transaction *domain.Transaction     `json:"transaction"`
	Bonuses     []*domain.ReferralBonus `json:"referral_bonuses,omitempty"`
}

// Service settles deposit and withdrawal requests. Every operation runs in a
// single database transaction: the transaction row is locked first and any
// failure rolls back the status change, balance changes and bonuses together.
type Service struct {
	txm      TxManager
	recorder Recorder
	ledger   Ledger
	resolver CommissionResolver
	accounts AccountFinder
	bonuses  BonusRepository
	logger   logger.Logger
}

func NewService(
	txm TxManager,
	recorder Recorder,
	ledger Ledger,
	resolver CommissionResolver,
	accounts AccountFinder,
	bonuses BonusRepository,
	log logger.Logger,
) *Service {
	return &Service{
		txm:      txm,
		recorder: recorder,
		ledger:   ledger,
		resolver: resolver,
		accounts: accounts,
		bonuses:  bonuses,
		logger:   log,
	}
}

// ==============================================================================
// Requests
// ==============================================================================

type DepositRequest struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod string
	PaymentProof  string
}

// CreateDepositRequest records a pending deposit. Nothing is credited until approval.
func (s *Service) CreateDepositRequest(ctx context.Context, req DepositRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}
	if _, err := s.accounts.FindByID(ctx, req.AccountID); err != nil {
		return nil, err
	}

	tx, err := s.recorder.Create(ctx, transaction.CreateParams{
		AccountID:     req.AccountID,
		Type:          domain.TransactionTypeDeposit,
		Amount:        req.Amount,
		Status:        domain.TransactionStatusPending,
		Description:   describe("Deposit", req.PaymentMethod),
		PaymentMethod: req.PaymentMethod,
		PaymentProof:  req.PaymentProof,
	})
	monitoring.ObserveSettlement("deposit_request", err)
	return tx, err
}

type WithdrawalRequest struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod string
	Destination   string
}

// CreateWithdrawalRequest debits the balance immediately and records a pending
// withdrawal. When the balance is short nothing is recorded.
func (s *Service) CreateWithdrawalRequest(ctx context.Context, req WithdrawalRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var tx *domain.Transaction
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.ledger.Debit(ctx, req.AccountID, req.Amount); err != nil {
			return err
		}

		var err error
		tx, err = s.recorder.Create(ctx, transaction.CreateParams{
			AccountID:     req.AccountID,
			Type:          domain.TransactionTypeWithdrawal,
			Amount:        req.Amount,
			Status:        domain.TransactionStatusPending,
			Description:   describe("Withdrawal", req.PaymentMethod),
			PaymentMethod: req.PaymentMethod,
			Destination:   req.Destination,
		})
		return err
	})
	monitoring.ObserveSettlement("withdrawal_request", err)
	if err != nil {
		if errors.Is(err, errors.ErrInsufficientBalance) {
			s.logger.Info("Withdrawal refused: insufficient balance", map[string]interface{}{
				"account_id": req.AccountID,
				"amount":     req.Amount.String(),
			})
		}
		return nil, err
	}
	return tx, nil
}

// ==============================================================================
// Admin review
// ==============================================================================

// Review approves or rejects a pending request, dispatching on its type.
func (s *Service) Review(ctx context.Context, id, adminID uuid.UUID, action Action) (*Result, error) {
	tx, err := s.recorder.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case tx.Type == domain.TransactionTypeDeposit && action == ActionApprove:
		return s.ApproveDeposit(ctx, id, adminID)
	case tx.Type == domain.TransactionTypeDeposit && action == ActionReject:
		return s.RejectDeposit(ctx, id, adminID)
	case tx.Type == domain.TransactionTypeWithdrawal && action == ActionApprove:
		return s.ApproveWithdrawal(ctx, id, adminID)
	case tx.Type == domain.TransactionTypeWithdrawal && action == ActionReject:
		return s.RejectWithdrawal(ctx, id, adminID)
	case action != ActionApprove && action != ActionReject:
		return nil, fmt.Errorf("%w: unknown review action %q", errors.ErrInvalidInput, action)
	default:
		return nil, errors.ErrInvalidState
	}
}

// ApproveDeposit completes a pending deposit, credits the depositor and pays
// referral commissions to up to two levels of referrers.
func (s *Service) ApproveDeposit(ctx context.Context, id, adminID uuid.UUID) (*Result, error) {
	result := &Result{}
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := s.lockPending(ctx, id, domain.TransactionTypeDeposit)
		if err != nil {
			return err
		}
		if err := s.recorder.TransitionStatus(ctx, tx.ID, domain.TransactionStatusCompleted); err != nil {
			return err
		}
		if _, err := s.ledger.Credit(ctx, tx.AccountID, tx.Amount); err != nil {
			return err
		}

		depositor, err := s.accounts.FindByID(ctx, tx.AccountID)
		if err != nil {
			return err
		}
		commissions, err := s.resolver.ComputeCommissions(ctx, depositor, tx.Amount)
		if err != nil {
			return err
		}
		for _, c := range commissions {
			bonus, err := s.payCommission(ctx, tx, c)
			if err != nil {
				return err
			}
			result.Bonuses = append(result.Bonuses, bonus)
		}

		markSettled(tx, domain.TransactionStatusCompleted)
		result.Transaction = tx
		return nil
	})
	s.finish("approve_deposit", id, adminID, result, err)
	if err != nil {
		return nil, err
	}

	for _, b := range result.Bonuses {
		monitoring.ObserveCommission(b.Level, b.Amount)
	}
	return result, nil
}

func (s *Service) payCommission(ctx context.Context, deposit *domain.Transaction, c domain.Commission) (*domain.ReferralBonus, error) {
	if _, err := s.ledger.Credit(ctx, c.PayeeAccountID, c.Amount); err != nil {
		return nil, err
	}

	bonusTx, err := s.recorder.Create(ctx, transaction.CreateParams{
		AccountID:   c.PayeeAccountID,
		Type:        domain.TransactionTypeReferralBonus,
		Amount:      c.Amount,
		Status:      domain.TransactionStatusCompleted,
		Description: fmt.Sprintf("Level %d referral commission (%s%%)", c.Level, c.Percentage.StringFixed(2)),
		Reference:   deposit.ID.String(),
		Metadata: domain.Metadata{
			"level":                  c.Level,
			"source_account_id":      deposit.AccountID.String(),
			"deposit_transaction_id": deposit.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	bonus := &domain.ReferralBonus{
		ID:                   uuid.New(),
		AccountID:            c.PayeeAccountID,
		SourceAccountID:      deposit.AccountID,
		TransactionID:        bonusTx.ID,
		DepositTransactionID: deposit.ID,
		Amount:               c.Amount,
		Level:                c.Level,
		CreatedAt:            time.Now().UTC(),
	}
	if err := s.bonuses.Create(ctx, bonus); err != nil {
		return nil, err
	}
	return bonus, nil
}

// RejectDeposit fails a pending deposit. No balance was credited, so none changes.
func (s *Service) RejectDeposit(ctx context.Context, id, adminID uuid.UUID) (*Result, error) {
	result := &Result{}
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := s.lockPending(ctx, id, domain.TransactionTypeDeposit)
		if err != nil {
			return err
		}
		if err := s.recorder.TransitionStatus(ctx, tx.ID, domain.TransactionStatusFailed); err != nil {
			return err
		}
		markSettled(tx, domain.TransactionStatusFailed)
		result.Transaction = tx
		return nil
	})
	s.finish("reject_deposit", id, adminID, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveWithdrawal completes a pending withdrawal. The amount left the balance at request time.
func (s *Service) ApproveWithdrawal(ctx context.Context, id, adminID uuid.UUID) (*Result, error) {
	result := &Result{}
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := s.lockPending(ctx, id, domain.TransactionTypeWithdrawal)
		if err != nil {
			return err
		}
		if err := s.recorder.TransitionStatus(ctx, tx.ID, domain.TransactionStatusCompleted); err != nil {
			return err
		}
		markSettled(tx, domain.TransactionStatusCompleted)
		result.Transaction = tx
		return nil
	})
	s.finish("approve_withdrawal", id, adminID, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RejectWithdrawal fails a pending withdrawal and refunds its amount.
func (s *Service) RejectWithdrawal(ctx context.Context, id, adminID uuid.UUID) (*Result, error) {
	result := &Result{}
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := s.lockPending(ctx, id, domain.TransactionTypeWithdrawal)
		if err != nil {
			return err
		}
		if err := s.recorder.TransitionStatus(ctx, tx.ID, domain.TransactionStatusFailed); err != nil {
			return err
		}
		if _, err := s.ledger.Credit(ctx, tx.AccountID, tx.Amount); err != nil {
			return err
		}
		markSettled(tx, domain.TransactionStatusFailed)
		result.Transaction = tx
		return nil
	})
	s.finish("reject_withdrawal", id, adminID, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockPending loads and locks the transaction and checks it is a pending request of type t.
func (s *Service) lockPending(ctx context.Context, id uuid.UUID, t domain.TransactionType) (*domain.Transaction, error) {
	tx, err := s.recorder.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Type != t || tx.Status != domain.TransactionStatusPending {
		return nil, errors.ErrInvalidState
	}
	return tx, nil
}

func (s *Service) finish(op string, id, adminID uuid.UUID, result *Result, err error) {
	monitoring.ObserveSettlement(op, err)
	if err != nil {
		fields := map[string]interface{}{
			"operation": op,
			"tx_id":     id,
			"admin_id":  adminID,
			"error":     err.Error(),
		}
		if isExpected(err) {
			s.logger.Warn("Settlement refused", fields)
		} else {
			s.logger.Error("Settlement failed", fields)
		}
		return
	}

	s.logger.Info("Settlement applied", map[string]interface{}{
		"operation":  op,
		"tx_id":      id,
		"admin_id":   adminID,
		"account_id": result.Transaction.AccountID,
		"amount":     result.Transaction.Amount.String(),
		"bonuses":    len(result.Bonuses),
	})
}

func isExpected(err error) bool {
	return errors.Is(err, errors.ErrInvalidState) ||
		errors.Is(err, errors.ErrTransactionNotFound) ||
		errors.Is(err, errors.ErrInvalidTransition) ||
		errors.Is(err, errors.ErrInsufficientBalance)
}

// ==============================================================================
// Manual adjustments
// ==============================================================================

type AdjustmentDirection string

const (
	AdjustmentAdd    AdjustmentDirection = "add"
	AdjustmentDeduct AdjustmentDirection = "deduct"
)

type Adjustment struct {
	AccountID uuid.UUID
	AdminID   uuid.UUID
	Amount    decimal.Decimal
	Direction AdjustmentDirection
	Reason    string
}

// AdjustBalance applies an admin correction and records it as a completed
// deposit or withdrawal. Deductions cannot take the balance below zero.
func (s *Service) AdjustBalance(ctx context.Context, adj Adjustment) (*domain.Transaction, error) {
	if !adj.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var (
		txType domain.TransactionType
		move   func(context.Context, uuid.UUID, decimal.Decimal) (decimal.Decimal, error)
	)
	switch adj.Direction {
	case AdjustmentAdd:
		txType, move = domain.TransactionTypeDeposit, s.ledger.Credit
	case AdjustmentDeduct:
		txType, move = domain.TransactionTypeWithdrawal, s.ledger.Debit
	default:
		return nil, fmt.Errorf("%w: unknown adjustment direction %q", errors.ErrInvalidInput, adj.Direction)
	}

	reason := adj.Reason
	if reason == "" {
		reason = "Manual balance adjustment"
	}

	var tx *domain.Transaction
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := move(ctx, adj.AccountID, adj.Amount); err != nil {
			return err
		}
		var err error
		tx, err = s.recorder.Create(ctx, transaction.CreateParams{
			AccountID:   adj.AccountID,
			Type:        txType,
			Amount:      adj.Amount,
			Status:      domain.TransactionStatusCompleted,
			Description: reason,
			Metadata: domain.Metadata{
				"manual":   true,
				"admin_id": adj.AdminID.String(),
			},
		})
		return err
	})
	monitoring.ObserveSettlement("manual_"+string(adj.Direction), err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual balance adjustment", map[string]interface{}{
		"account_id": adj.AccountID,
		"admin_id":   adj.AdminID,
		"direction":  adj.Direction,
		"amount":     adj.Amount.String(),
	})
	return tx, nil
}

func markSettled(tx *domain.Transaction, status domain.TransactionStatus) {
	now := time.Now().UTC()
	tx.Status = status
	tx.CompletedAt = &now
	tx.UpdatedAt = now
}

func describe(kind, method string) string {
	if method == "" {
		return kind + " request"
	}
	return fmt.Sprintf("%s request via %s", kind, method)
}
