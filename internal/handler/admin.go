package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/internal/commission"
	"moneypro/internal/domain"
	"moneypro/internal/investment"
	"moneypro/internal/settlement"
	"moneypro/pkg/logger"
	"moneypro/pkg/validator"
)

// Settler is the admin side of settlement.
type Settler interface {
	Review(ctx context.Context, id, adminID uuid.UUID, action settlement.Action) (*settlement.Result, error)
	ApproveDeposit(ctx context.Context, id, adminID uuid.UUID) (*settlement.Result, error)
	RejectDeposit(ctx context.Context, id, adminID uuid.UUID) (*settlement.Result, error)
	ApproveWithdrawal(ctx context.Context, id, adminID uuid.UUID) (*settlement.Result, error)
	RejectWithdrawal(ctx context.Context, id, adminID uuid.UUID) (*settlement.Result, error)
	AdjustBalance(ctx context.Context, adj settlement.Adjustment) (*domain.Transaction, error)
}

type AccountLister interface {
	ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, int, error)
}

type StatsProvider interface {
	Platform(ctx context.Context) (*domain.PlatformStats, error)
}

type CommissionRules interface {
	ListRules(ctx context.Context) ([]*domain.CommissionRule, error)
	CreateRule(ctx context.Context, in commission.RuleInput) (*domain.CommissionRule, error)
	UpdateRule(ctx context.Context, id int64, in commission.RuleInput) (*domain.CommissionRule, error)
}

type PlanAdmin interface {
	ListPlans(ctx context.Context, activeOnly bool) ([]*domain.InvestmentPlan, error)
	CreatePlan(ctx context.Context, in investment.PlanInput) (*domain.InvestmentPlan, error)
	UpdatePlan(ctx context.Context, id int64, in investment.PlanInput) (*domain.InvestmentPlan, error)
}

// AdminHandler serves the back-office API. Routes are guarded by RequireAdmin.
type AdminHandler struct {
	settler      Settler
	transactions TransactionReader
	accounts     AccountLister
	stats        StatsProvider
	rules        CommissionRules
	plans        PlanAdmin
	validator    *validator.Validator
	logger       logger.Logger
}

type AdminDeps struct {
	Settler      Settler
	Transactions TransactionReader
	Accounts     AccountLister
	Stats        StatsProvider
	Rules        CommissionRules
	Plans        PlanAdmin
}

func NewAdminHandler(deps AdminDeps, val *validator.Validator, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		settler:      deps.Settler,
		transactions: deps.Transactions,
		accounts:     deps.Accounts,
		stats:        deps.Stats,
		rules:        deps.Rules,
		plans:        deps.Plans,
		validator:    val,
		logger:       log,
	}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Platform(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, total, err := h.accounts.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch users", err)
		return
	}
	if users == nil {
		users = []*domain.Account{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

type balanceAdjustmentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"money"`
	Type   string          `json:"type" validate:"required,oneof=add deduct"`
	Reason string          `json:"reason" validate:"omitempty,max=255"`
}

// AdjustBalance credits or debits a user's balance outside the request flow.
func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	accountID, ok := uuidVar(w, r, "id")
	if !ok {
		return
	}
	var req balanceAdjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	tx, err := h.settler.AdjustBalance(r.Context(), settlement.Adjustment{
		AccountID: accountID,
		AdminID:   adminID,
		Amount:    req.Amount,
		Direction: settlement.AdjustmentDirection(req.Type),
		Reason:    validator.Sanitize(req.Reason),
	})
	if err != nil {
		respondServiceError(w, r, h.logger, "Balance adjustment", err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

// ListTransactions filters by ?status=, ?type= and ?account_id=.
func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Status: domain.TransactionStatus(q.Get("status")),
		Type:   domain.TransactionType(q.Get("type")),
	}
	switch filter.Status {
	case "", domain.TransactionStatusPending, domain.TransactionStatusCompleted, domain.TransactionStatusFailed:
	default:
		respondError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		respondError(w, http.StatusBadRequest, "Invalid type filter")
		return
	}
	if v := q.Get("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid account_id filter")
			return
		}
		filter.AccountID = &id
	}

	limit, offset := pagination(r)
	txs, total, err := h.transactions.List(r.Context(), filter, limit, offset)
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

type reviewRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

// Review approves or rejects a pending deposit or withdrawal by id.
func (h *AdminHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}
	action := settlement.Action(req.Action)
	h.settle(w, r, func(ctx context.Context, id, adminID uuid.UUID) (*settlement.Result, error) {
		return h.settler.Review(ctx, id, adminID, action)
	})
}

func (h *AdminHandler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.settler.ApproveDeposit)
}

func (h *AdminHandler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.settler.RejectDeposit)
}

func (h *AdminHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.settler.ApproveWithdrawal)
}

func (h *AdminHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.settler.RejectWithdrawal)
}

func (h *AdminHandler) settle(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, uuid.UUID) (*settlement.Result, error)) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := uuidVar(w, r, "id")
	if !ok {
		return
	}

	result, err := op(r.Context(), id, adminID)
	if err != nil {
		respondServiceError(w, r, h.logger, "Settlement", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ==============================================================================
// Commission rules
// ==============================================================================

type commissionRuleRequest struct {
	Level                int             `json:"level" validate:"required,min=1,max=2"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage" validate:"percentage"`
	BonusPercentage      decimal.Decimal `json:"bonus_percentage" validate:"percentage"`
	IsActive             *bool           `json:"is_active"`
}

func (req commissionRuleRequest) input() commission.RuleInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return commission.RuleInput{
		Level:                req.Level,
		CommissionPercentage: req.CommissionPercentage,
		BonusPercentage:      req.BonusPercentage,
		IsActive:             active,
	}
}

func (h *AdminHandler) ListCommissionRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.ListRules(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch commission rules", err)
		return
	}
	if rules == nil {
		rules = []*domain.CommissionRule{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

func (h *AdminHandler) CreateCommissionRule(w http.ResponseWriter, r *http.Request) {
	var req commissionRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	rule, err := h.rules.CreateRule(r.Context(), req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, "Create commission rule", err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (h *AdminHandler) UpdateCommissionRule(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(w, r, "id")
	if !ok {
		return
	}
	var req commissionRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	rule, err := h.rules.UpdateRule(r.Context(), id, req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, "Update commission rule", err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

// ==============================================================================
// Investment plans
// ==============================================================================

type planRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Description  string          `json:"description" validate:"max=1000"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"percentage"`
	MinAmount    decimal.Decimal `json:"min_amount" validate:"money"`
	MaxAmount    decimal.Decimal `json:"max_amount" validate:"money"`
	DurationDays int             `json:"duration_days" validate:"required,min=1,max=3650"`
	IsActive     *bool           `json:"is_active"`
}

func (req planRequest) input() investment.PlanInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return investment.PlanInput{
		Name:         validator.Sanitize(req.Name),
		Description:  validator.Sanitize(req.Description),
		InterestRate: req.InterestRate,
		MinAmount:    req.MinAmount,
		MaxAmount:    req.MaxAmount,
		DurationDays: req.DurationDays,
		IsActive:     active,
	}
}

// ListPlans includes inactive plans.
func (h *AdminHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListPlans(r.Context(), false)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch plans", err)
		return
	}
	if plans == nil {
		plans = []*domain.InvestmentPlan{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

func (h *AdminHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	plan, err := h.plans.CreatePlan(r.Context(), req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, "Create plan", err)
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

func (h *AdminHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(w, r, "id")
	if !ok {
		return
	}
	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	plan, err := h.plans.UpdatePlan(r.Context(), id, req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, "Update plan", err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}
