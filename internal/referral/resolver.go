// Package referral walks referral chains and exposes a referrer's downline.
package referral

import (
	"context"

	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

// MaxDepth is the number of referrer levels that earn a commission on a deposit.
const MaxDepth = 2

// AccountFinder resolves a referral code to its owner.
type AccountFinder interface {
	FindByReferralCode(ctx context.Context, code string) (*domain.Account, error)
}

// RuleProvider returns the active rule for a level, or nil when none exists.
type RuleProvider interface {
	GetActiveRule(ctx context.Context, level int) (*domain.CommissionRule, error)
}

type Resolver struct {
	accounts AccountFinder
	rules    RuleProvider
	logger   logger.Logger
}

func NewResolver(accounts AccountFinder, rules RuleProvider, log logger.Logger) *Resolver {
	return &Resolver{accounts: accounts, rules: rules, logger: log}
}

// ComputeCommissions returns the payouts owed to the referrers of account for a
// deposit of amount. A missing referrer or rule ends or skips a level without error.
func (r *Resolver) ComputeCommissions(ctx context.Context, account *domain.Account, amount decimal.Decimal) ([]domain.Commission, error) {
	var commissions []domain.Commission
	if account == nil || !amount.IsPositive() {
		return commissions, nil
	}

	current := account
	for level := 1; level <= MaxDepth; level++ {
		if current.ReferredBy == nil || *current.ReferredBy == "" {
			break
		}

		referrer, err := r.accounts.FindByReferralCode(ctx, *current.ReferredBy)
		if err != nil {
			if errors.Is(err, errors.ErrAccountNotFound) {
				r.logger.Warn("Dangling referral code", map[string]interface{}{
					"account_id":  current.ID,
					"referred_by": *current.ReferredBy,
					"level":       level,
				})
				break
			}
			return nil, err
		}
		// A chain that loops back to the depositor pays nobody further.
		if referrer.ID == account.ID {
			break
		}

		rule, err := r.rules.GetActiveRule(ctx, level)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			payout := Commission(amount, rule.CommissionPercentage)
			if payout.IsPositive() {
				commissions = append(commissions, domain.Commission{
					PayeeAccountID: referrer.ID,
					Level:          level,
					Percentage:     rule.CommissionPercentage,
					Amount:         payout,
				})
			}
		}

		current = referrer
	}

	return commissions, nil
}

// Commission is amount × percentage / 100 rounded half-up to cents.
func Commission(amount, percentage decimal.Decimal) decimal.Decimal {
	return amount.Mul(percentage).Div(decimal.NewFromInt(100)).Round(2)
}
