package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/internal/settlement"
	"moneypro/pkg/logger"
	"moneypro/pkg/validator"
)

// TransactionReader lists and fetches transaction records.
type TransactionReader interface {
	GetOwned(ctx context.Context, id, accountID uuid.UUID) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error)
	List(ctx context.Context, filter domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, int, error)
}

// RequestCreator opens deposit and withdrawal requests.
type RequestCreator interface {
	CreateDepositRequest(ctx context.Context, req settlement.DepositRequest) (*domain.Transaction, error)
	CreateWithdrawalRequest(ctx context.Context, req settlement.WithdrawalRequest) (*domain.Transaction, error)
}

// TransactionHandler serves a user's own transactions and payment requests.
type TransactionHandler struct {
	transactions TransactionReader
	requests     RequestCreator
	validator    *validator.Validator
	logger       logger.Logger
}

func NewTransactionHandler(transactions TransactionReader, requests RequestCreator, val *validator.Validator, log logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		requests:     requests,
		validator:    val,
		logger:       log,
	}
}

// List returns the caller's transactions, newest first.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	txs, total, err := h.transactions.ListByAccount(r.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch transactions", err)
		return
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}

// Get returns one of the caller's transactions. Other users' ids are 404s.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := uuidVar(w, r, "id")
	if !ok {
		return
	}

	tx, err := h.transactions.GetOwned(r.Context(), id, userID)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch transaction", err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

type depositRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"money"`
	PaymentMethod string          `json:"payment_method" validate:"required,max=50"`
	PaymentProof  string          `json:"payment_proof" validate:"omitempty,max=500"`
}

// CreateDeposit opens a pending deposit for admin review.
func (h *TransactionHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	tx, err := h.requests.CreateDepositRequest(r.Context(), settlement.DepositRequest{
		AccountID:     userID,
		Amount:        req.Amount,
		PaymentMethod: validator.Sanitize(req.PaymentMethod),
		PaymentProof:  req.PaymentProof,
	})
	if err != nil {
		respondServiceError(w, r, h.logger, "Deposit request", err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

type withdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"money"`
	PaymentMethod string          `json:"payment_method" validate:"required,max=50"`
	Destination   string          `json:"destination" validate:"required,max=255"`
}

// CreateWithdrawal debits the balance and opens a pending withdrawal.
func (h *TransactionHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req withdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	tx, err := h.requests.CreateWithdrawalRequest(r.Context(), settlement.WithdrawalRequest{
		AccountID:     userID,
		Amount:        req.Amount,
		PaymentMethod: validator.Sanitize(req.PaymentMethod),
		Destination:   validator.Sanitize(req.Destination),
	})
	if err != nil {
		respondServiceError(w, r, h.logger, "Withdrawal request", err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}
