package transaction

import (
	"fmt"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

type statusTransition struct {
	From domain.TransactionStatus
	To   domain.TransactionStatus
}

// allowedTransitions is the full lifecycle: a pending record settles exactly once.
var allowedTransitions = []statusTransition{
	{From: domain.TransactionStatusPending, To: domain.TransactionStatusCompleted},
	{From: domain.TransactionStatusPending, To: domain.TransactionStatusFailed},
}

// ValidateTransition returns ErrInvalidTransition unless from -> to is allowed.
func ValidateTransition(from, to domain.TransactionStatus) error {
	for _, allowed := range allowedTransitions {
		if allowed.From == from && allowed.To == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, from, to)
}
