package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/internal/investment"
	"moneypro/pkg/logger"
	"moneypro/pkg/validator"
)

type InvestmentService interface {
	ListPlans(ctx context.Context, activeOnly bool) ([]*domain.InvestmentPlan, error)
	CalculateProfit(ctx context.Context, planID int64, amount decimal.Decimal) (*investment.ProfitQuote, error)
	Invest(ctx context.Context, accountID uuid.UUID, planID int64, amount decimal.Decimal) (*domain.Investment, error)
	ListInvestments(ctx context.Context, accountID uuid.UUID) ([]*domain.Investment, error)
}

// InvestmentHandler serves plans and the caller's investments.
type InvestmentHandler struct {
	service   InvestmentService
	validator *validator.Validator
	logger    logger.Logger
}

func NewInvestmentHandler(service InvestmentService, val *validator.Validator, log logger.Logger) *InvestmentHandler {
	return &InvestmentHandler{service: service, validator: val, logger: log}
}

// ListPlans returns the plans open for new investments.
func (h *InvestmentHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context(), true)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch plans", err)
		return
	}
	if plans == nil {
		plans = []*domain.InvestmentPlan{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

type investRequest struct {
	PlanID int64           `json:"plan_id" validate:"required,gt=0"`
	Amount decimal.Decimal `json:"amount" validate:"money"`
}

func (h *InvestmentHandler) CalculateProfit(w http.ResponseWriter, r *http.Request) {
	var req investRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	quote, err := h.service.CalculateProfit(r.Context(), req.PlanID, req.Amount)
	if err != nil {
		respondServiceError(w, r, h.logger, "Profit calculation", err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (h *InvestmentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	investments, err := h.service.ListInvestments(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch investments", err)
		return
	}
	if investments == nil {
		investments = []*domain.Investment{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"investments": investments})
}

// Invest moves balance into a plan.
func (h *InvestmentHandler) Invest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req investRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	inv, err := h.service.Invest(r.Context(), userID, req.PlanID, req.Amount)
	if err != nil {
		respondServiceError(w, r, h.logger, "Investment", err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}
