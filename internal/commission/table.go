// Package commission holds the per-level referral commission rates.
package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/pkg/cache"
	"moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

// MaxLevel is the deepest referral level that can carry a rule.
const MaxLevel = 2

type Repository interface {
	FindActiveByLevel(ctx context.Context, level int) (*domain.CommissionRule, error)
	FindByID(ctx context.Context, id int64) (*domain.CommissionRule, error)
	List(ctx context.Context) ([]*domain.CommissionRule, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, rule *domain.CommissionRule) error
	Update(ctx context.Context, rule *domain.CommissionRule) error
}

// Cache is the subset of pkg/cache the table needs.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// cachedRule is what gets stored per level. Found=false caches the absence of a rule.
type cachedRule struct {
	Found bool                   `json:"found"`
	Rule  *domain.CommissionRule `json:"rule,omitempty"`
}

// Table serves active commission rules, reading through a cache.
type Table struct {
	repo   Repository
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

// NewTable builds a Table. A nil cache disables caching.
func NewTable(repo Repository, c Cache, ttl time.Duration, log logger.Logger) *Table {
	return &Table{repo: repo, cache: c, ttl: ttl, logger: log}
}

func levelKey(level int) string {
	return fmt.Sprintf("commission_rule:level:%d", level)
}

// GetActiveRule returns the active rule for a level, or nil when the level pays nothing.
func (t *Table) GetActiveRule(ctx context.Context, level int) (*domain.CommissionRule, error) {
	if level < 1 || level > MaxLevel {
		return nil, nil
	}

	if t.cache != nil {
		var cached cachedRule
		err := t.cache.Get(ctx, levelKey(level), &cached)
		switch {
		case err == nil:
			return cached.Rule, nil
		case !errors.Is(err, cache.ErrMiss):
			t.logger.Warn("Commission rule cache read failed", map[string]interface{}{
				"level": level,
				"error": err,
			})
		}
	}

	rule, err := t.repo.FindActiveByLevel(ctx, level)
	if err != nil && !errors.Is(err, errors.ErrCommissionRuleNotFound) {
		return nil, err
	}
	if errors.Is(err, errors.ErrCommissionRuleNotFound) {
		rule = nil
	}

	if t.cache != nil {
		if err := t.cache.Set(ctx, levelKey(level), cachedRule{Found: rule != nil, Rule: rule}, t.ttl); err != nil {
			t.logger.Warn("Commission rule cache write failed", map[string]interface{}{
				"level": level,
				"error": err,
			})
		}
	}
	return rule, nil
}

func (t *Table) ListRules(ctx context.Context) ([]*domain.CommissionRule, error) {
	return t.repo.List(ctx)
}

// RuleInput carries the editable fields of a rule.
type RuleInput struct {
	Level                int
	CommissionPercentage decimal.Decimal
	BonusPercentage      decimal.Decimal
	IsActive             bool
}

func (in RuleInput) validate() error {
	if in.Level < 1 || in.Level > MaxLevel {
		return fmt.Errorf("%w: level must be between 1 and %d", errors.ErrInvalidInput, MaxLevel)
	}
	hundred := decimal.NewFromInt(100)
	if in.CommissionPercentage.IsNegative() || in.CommissionPercentage.GreaterThan(hundred) {
		return fmt.Errorf("%w: commission percentage must be between 0 and 100", errors.ErrInvalidInput)
	}
	if in.BonusPercentage.IsNegative() || in.BonusPercentage.GreaterThan(hundred) {
		return fmt.Errorf("%w: bonus percentage must be between 0 and 100", errors.ErrInvalidInput)
	}
	return nil
}

func (t *Table) CreateRule(ctx context.Context, in RuleInput) (*domain.CommissionRule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	rule := &domain.CommissionRule{
		Level:                in.Level,
		CommissionPercentage: in.CommissionPercentage,
		BonusPercentage:      in.BonusPercentage,
		IsActive:             in.IsActive,
	}
	if err := t.repo.Create(ctx, rule); err != nil {
		return nil, err
	}

	t.invalidate(ctx, rule.Level)
	t.logger.Info("Commission rule created", map[string]interface{}{
		"rule_id":    rule.ID,
		"level":      rule.Level,
		"percentage": rule.CommissionPercentage.String(),
		"active":     rule.IsActive,
	})
	return rule, nil
}

// UpdateRule changes the rates and active flag of a rule. The level is fixed.
func (t *Table) UpdateRule(ctx context.Context, id int64, in RuleInput) (*domain.CommissionRule, error) {
	rule, err := t.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Level = rule.Level
	if err := in.validate(); err != nil {
		return nil, err
	}

	rule.CommissionPercentage = in.CommissionPercentage
	rule.BonusPercentage = in.BonusPercentage
	rule.IsActive = in.IsActive
	if err := t.repo.Update(ctx, rule); err != nil {
		return nil, err
	}

	t.invalidate(ctx, rule.Level)
	t.logger.Info("Commission rule updated", map[string]interface{}{
		"rule_id":    rule.ID,
		"level":      rule.Level,
		"percentage": rule.CommissionPercentage.String(),
		"active":     rule.IsActive,
	})
	return rule, nil
}

// SeedDefaults installs one active rule per level when the table is empty.
func (t *Table) SeedDefaults(ctx context.Context, level1, level2 decimal.Decimal) error {
	count, err := t.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []RuleInput{
		{Level: 1, CommissionPercentage: level1, BonusPercentage: decimal.RequireFromString("1.00"), IsActive: true},
		{Level: 2, CommissionPercentage: level2, BonusPercentage: decimal.RequireFromString("0.50"), IsActive: true},
	}
	for _, in := range defaults {
		if _, err := t.CreateRule(ctx, in); err != nil {
			return errors.Wrap(err, "failed to seed commission rules")
		}
	}
	return nil
}

func (t *Table) invalidate(ctx context.Context, level int) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Delete(ctx, levelKey(level)); err != nil {
		t.logger.Warn("Commission rule cache invalidation failed", map[string]interface{}{
			"level": level,
			"error": err,
		})
	}
}
