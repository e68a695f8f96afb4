package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"moneypro/internal/auth"
	"moneypro/internal/domain"
	"moneypro/internal/middleware"
	"moneypro/pkg/logger"
	"moneypro/pkg/validator"
)

// AuthService is the slice of auth.Service used over HTTP.
type AuthService interface {
	Register(ctx context.Context, req *auth.RegisterRequest) (*auth.TokenResponse, error)
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.TokenResponse, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	EnrolTOTP(ctx context.Context, accountID uuid.UUID) (*auth.TOTPEnrolment, error)
	ConfirmTOTP(ctx context.Context, accountID uuid.UUID, code string) error
}

// TokenRevoker revokes a bearer token for the rest of its lifetime.
type TokenRevoker interface {
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
}

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	service   AuthService
	revoker   TokenRevoker
	validator *validator.Validator
	logger    logger.Logger
}

func NewAuthHandler(service AuthService, revoker TokenRevoker, val *validator.Validator, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		revoker:   revoker,
		validator: val,
		logger:    log,
	}
}

// Register handles user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, "Registration", err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// Login authenticates a user and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, "Login", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, exp, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.revoker.Blacklist(r.Context(), token, time.Until(exp)); err != nil {
		respondServiceError(w, r, h.logger, "Logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's account including the current balance.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, "Fetch account", err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *AuthHandler) EnrolTOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	enrolment, err := h.service.EnrolTOTP(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, "TOTP enrolment", err)
		return
	}
	respondJSON(w, http.StatusOK, enrolment)
}

type confirmTOTPRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

func (h *AuthHandler) ConfirmTOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req confirmTOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	if err := h.service.ConfirmTOTP(r.Context(), userID, req.Code); err != nil {
		respondServiceError(w, r, h.logger, "TOTP confirmation", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"totp_enabled": true})
}
