package settlement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

// memStore is an in-memory stand-in for the Postgres repositories. WithinTx
// serialises callers and restores a snapshot when fn fails, so rollback
// behaviour can be asserted without a database.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]domain.Account
	txs      map[uuid.UUID]domain.Transaction
	rules    map[int64]domain.CommissionRule
	bonuses  []domain.ReferralBonus
	nextRule int64

	failBonusCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[uuid.UUID]domain.Account{},
		txs:      map[uuid.UUID]domain.Transaction{},
		rules:    map[int64]domain.CommissionRule{},
	}
}

type memSnapshot struct {
	accounts map[uuid.UUID]domain.Account
	txs      map[uuid.UUID]domain.Transaction
	rules    map[int64]domain.CommissionRule
	bonuses  []domain.ReferralBonus
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		accounts: make(map[uuid.UUID]domain.Account, len(s.accounts)),
		txs:      make(map[uuid.UUID]domain.Transaction, len(s.txs)),
		rules:    make(map[int64]domain.CommissionRule, len(s.rules)),
		bonuses:  append([]domain.ReferralBonus(nil), s.bonuses...),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.txs {
		snap.txs[k] = v
	}
	for k, v := range s.rules {
		snap.rules[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.accounts, s.txs, s.rules, s.bonuses = snap.accounts, snap.txs, snap.rules, snap.bonuses
}

type memTxKey struct{}

// WithinTx holds the store lock for the whole of fn, which is stricter than row
// locks but gives the same serial outcome.
func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// lock takes the store mutex unless ctx is already inside WithinTx.
func (s *memStore) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// --- seeding helpers ---

func (s *memStore) addAccount(code string, referredBy string, balance string) *domain.Account {
	a := domain.Account{
		ID:           uuid.New(),
		Email:        code + "@example.com",
		FirstName:    code,
		ReferralCode: code,
		Balance:      decimal.RequireFromString(balance),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if referredBy != "" {
		a.ReferredBy = &referredBy
	}
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.mu.Unlock()
	return &a
}

func (s *memStore) balance(id uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

func (s *memStore) transactionsOf(id uuid.UUID, t domain.TransactionType) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range s.txs {
		if tx.AccountID == id && tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

func (s *memStore) countTransactions(t domain.TransactionType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, tx := range s.txs {
		if tx.Type == t {
			n++
		}
	}
	return n
}

func (s *memStore) bonusRecords() []domain.ReferralBonus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ReferralBonus(nil), s.bonuses...)
}

// --- ledger.BalanceRepository ---

func (s *memStore) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	defer s.lock(ctx)()
	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, errors.ErrAccountNotFound
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, errors.ErrInsufficientBalance
	}
	a.Balance = next
	s.accounts[id] = a
	return next, nil
}

// --- account lookups ---

func (s *memStore) FindAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	defer s.lock(ctx)()
	a, ok := s.accounts[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return &a, nil
}

func (s *memStore) FindByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	defer s.lock(ctx)()
	for _, a := range s.accounts {
		if a.ReferralCode == code {
			a := a
			return &a, nil
		}
	}
	return nil, errors.ErrAccountNotFound
}

// accountView adapts FindAccount to the FindByID name expected by AccountFinder.
type accountView struct{ *memStore }

func (v accountView) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return v.FindAccount(ctx, id)
}

// --- transaction.Repository ---

type txView struct{ *memStore }

func (v txView) Create(ctx context.Context, tx *domain.Transaction) error {
	defer v.lock(ctx)()
	v.txs[tx.ID] = *tx
	return nil
}

func (v txView) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	defer v.lock(ctx)()
	tx, ok := v.txs[id]
	if !ok {
		return nil, errors.ErrTransactionNotFound
	}
	return &tx, nil
}

func (v txView) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return v.FindByID(ctx, id)
}

func (v txView) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	defer v.lock(ctx)()
	tx, ok := v.txs[id]
	if !ok || tx.Status != from {
		return false, nil
	}
	now := time.Now()
	tx.Status = to
	tx.UpdatedAt = now
	if to.IsTerminal() {
		tx.CompletedAt = &now
	}
	v.txs[id] = tx
	return true, nil
}

func (v txView) FindByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	return v.List(ctx, domain.TransactionFilter{AccountID: &accountID}, limit, offset)
}

func (v txView) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int, error) {
	return v.Count(ctx, domain.TransactionFilter{AccountID: &accountID})
}

func (v txView) List(ctx context.Context, f domain.TransactionFilter, limit, offset int) ([]*domain.Transaction, error) {
	defer v.lock(ctx)()
	var out []*domain.Transaction
	for _, tx := range v.txs {
		if matches(tx, f) {
			tx := tx
			out = append(out, &tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (v txView) Count(ctx context.Context, f domain.TransactionFilter) (int, error) {
	defer v.lock(ctx)()
	n := 0
	for _, tx := range v.txs {
		if matches(tx, f) {
			n++
		}
	}
	return n, nil
}

func matches(tx domain.Transaction, f domain.TransactionFilter) bool {
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.AccountID != nil && tx.AccountID != *f.AccountID {
		return false
	}
	return true
}

// --- commission.Repository ---

type ruleView struct{ *memStore }

func (v ruleView) FindActiveByLevel(ctx context.Context, level int) (*domain.CommissionRule, error) {
	defer v.lock(ctx)()
	var best *domain.CommissionRule
	for _, r := range v.rules {
		if r.Level != level || !r.IsActive {
			continue
		}
		if best == nil || r.UpdatedAt.After(best.UpdatedAt) {
			r := r
			best = &r
		}
	}
	if best == nil {
		return nil, errors.ErrCommissionRuleNotFound
	}
	return best, nil
}

func (v ruleView) FindByID(ctx context.Context, id int64) (*domain.CommissionRule, error) {
	defer v.lock(ctx)()
	r, ok := v.rules[id]
	if !ok {
		return nil, errors.ErrCommissionRuleNotFound
	}
	return &r, nil
}

func (v ruleView) List(ctx context.Context) ([]*domain.CommissionRule, error) {
	defer v.lock(ctx)()
	var out []*domain.CommissionRule
	for _, r := range v.rules {
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (v ruleView) Count(ctx context.Context) (int, error) {
	defer v.lock(ctx)()
	return len(v.rules), nil
}

func (v ruleView) Create(ctx context.Context, rule *domain.CommissionRule) error {
	defer v.lock(ctx)()
	v.nextRule++
	now := time.Now()
	rule.ID = v.nextRule
	rule.CreatedAt, rule.UpdatedAt = now, now
	v.rules[rule.ID] = *rule
	return nil
}

func (v ruleView) Update(ctx context.Context, rule *domain.CommissionRule) error {
	defer v.lock(ctx)()
	if _, ok := v.rules[rule.ID]; !ok {
		return errors.ErrCommissionRuleNotFound
	}
	rule.UpdatedAt = time.Now()
	v.rules[rule.ID] = *rule
	return nil
}

// --- BonusRepository ---

type bonusView struct{ *memStore }

func (v bonusView) Create(ctx context.Context, b *domain.ReferralBonus) error {
	defer v.lock(ctx)()
	if v.failBonusCreate {
		return fmt.Errorf("bonus insert failed")
	}
	for _, existing := range v.bonuses {
		if existing.DepositTransactionID == b.DepositTransactionID && existing.Level == b.Level {
			return fmt.Errorf("duplicate referral bonus for deposit %s level %d", b.DepositTransactionID, b.Level)
		}
	}
	v.bonuses = append(v.bonuses, *b)
	return nil
}
