// Package handler provides the HTTP handlers for the moneypro API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"moneypro/internal/middleware"
	apperrors "moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

const (
	maxBodyBytes     = 1 << 20
	defaultPageLimit = 50
	maxPageLimit     = 100
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidationErrors(w http.ResponseWriter, errs map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  "Validation failed",
		"errors": errs,
	})
}

// decodeJSON reads a bounded JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// errorStatus maps service errors onto HTTP statuses. Unknown errors are 500s.
var errorStatus = []struct {
	err    error
	status int
}{
	{apperrors.ErrInvalidInput, http.StatusBadRequest},
	{apperrors.ErrInvalidAmount, http.StatusBadRequest},
	{apperrors.ErrInvalidReferralCode, http.StatusBadRequest},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized},
	{apperrors.ErrOTPRequired, http.StatusUnauthorized},
	{apperrors.ErrInvalidOTP, http.StatusUnauthorized},
	{apperrors.ErrForbidden, http.StatusForbidden},
	{apperrors.ErrAccountNotFound, http.StatusNotFound},
	{apperrors.ErrTransactionNotFound, http.StatusNotFound},
	{apperrors.ErrPlanNotFound, http.StatusNotFound},
	{apperrors.ErrInvestmentNotFound, http.StatusNotFound},
	{apperrors.ErrCommissionRuleNotFound, http.StatusNotFound},
	{apperrors.ErrUserAlreadyExists, http.StatusConflict},
	{apperrors.ErrInvalidState, http.StatusConflict},
	{apperrors.ErrInvalidTransition, http.StatusConflict},
	{apperrors.ErrDuplicateRequest, http.StatusConflict},
	{apperrors.ErrInsufficientBalance, http.StatusUnprocessableEntity},
	{apperrors.ErrPlanInactive, http.StatusUnprocessableEntity},
	{apperrors.ErrAmountOutOfRange, http.StatusUnprocessableEntity},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondServiceError writes the mapped status. Only 500s are logged, with
// the cause hidden from the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, log logger.Logger, action string, err error) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		respondError(w, status, err.Error())
		return
	}

	requestID, _ := middleware.RequestIDFromContext(r.Context())
	log.Error(action+" failed", map[string]interface{}{
		"error":      err.Error(),
		"path":       r.URL.Path,
		"request_id": requestID,
	})
	respondError(w, status, action+" failed")
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

func uuidVar(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func int64Var(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
