// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Settlement errors
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidState        = errors.New("transaction is not in a state that allows this action")
	ErrInvalidTransition   = errors.New("invalid transaction status transition")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidInput        = errors.New("invalid input")
)

// Account and auth errors
var (
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrOTPRequired         = errors.New("one-time password required")
	ErrInvalidOTP          = errors.New("invalid one-time password")
	ErrForbidden           = errors.New("forbidden")
)

// Commission, plan and investment errors
var (
	ErrCommissionRuleNotFound = errors.New("commission rule not found")
	ErrPlanNotFound           = errors.New("investment plan not found")
	ErrPlanInactive           = errors.New("investment plan is not active")
	ErrAmountOutOfRange       = errors.New("amount is outside the plan limits")
	ErrInvestmentNotFound     = errors.New("investment not found")
)

// ErrDuplicateRequest is returned when an idempotency key is already being processed.
var ErrDuplicateRequest = errors.New("duplicate request")

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
