package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"moneypro/internal/domain"
	"moneypro/internal/referral"
	"moneypro/pkg/logger"
)

type ReferralService interface {
	Link(ctx context.Context, accountID uuid.UUID) (*referral.Link, error)
	ValidateCode(ctx context.Context, code string) (string, error)
	Summary(ctx context.Context, accountID uuid.UUID) (*referral.Summary, error)
	ListBonuses(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.ReferralBonus, error)
}

// ReferralHandler serves the referral dashboard.
type ReferralHandler struct {
	service ReferralService
	logger  logger.Logger
}

func NewReferralHandler(service ReferralService, log logger.Logger) *ReferralHandler {
	return &ReferralHandler{service: service, logger: log}
}

// Summary lists the caller's level-1 and level-2 referrals and total earned.
func (h *ReferralHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch referrals", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *ReferralHandler) Bonuses(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	bonuses, err := h.service.ListBonuses(r.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch referral bonuses", err)
		return
	}
	if bonuses == nil {
		bonuses = []*domain.ReferralBonus{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bonuses": bonuses,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *ReferralHandler) Link(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	link, err := h.service.Link(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch referral link", err)
		return
	}
	respondJSON(w, http.StatusOK, link)
}

// Validate is public so the sign-up form can show who invited the visitor.
func (h *ReferralHandler) Validate(w http.ResponseWriter, r *http.Request) {
	name, err := h.service.ValidateCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, r, h.logger, "Validate referral code", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":         true,
		"referrer_name": name,
	})
}
