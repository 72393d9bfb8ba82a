package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
)

// MemoryStore is an in-process Repository with the same uniqueness semantics as SQLiteStore.
type MemoryStore struct {
	mu sync.RWMutex

	transactions []models.StoredTransaction
	byKey        map[string]int // user|fingerprint -> index into transactions
	rules        map[string]models.CategorizationRule
	categories   map[string]models.Category
	patterns     map[string]models.RecurringPattern
	budgets      []models.Budget
	sessions     map[string]models.ImportSession
	sessionOrder []string
	accounts     map[string]models.Account

	now func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey:      make(map[string]int),
		rules:      make(map[string]models.CategorizationRule),
		categories: make(map[string]models.Category),
		patterns:   make(map[string]models.RecurringPattern),
		sessions:   make(map[string]models.ImportSession),
		accounts:   make(map[string]models.Account),
		now:        time.Now,
	}
}

func txKey(userID, fingerprint string) string { return userID + "|" + fingerprint }

func patternKey(p models.RecurringPattern) string {
	return p.UserID + "|" + p.Merchant + "|" + string(p.Frequency)
}

func (s *MemoryStore) FindByFingerprints(ctx context.Context, userID string, fingerprints []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]string)
	for _, fp := range fingerprints {
		if idx, ok := s.byKey[txKey(userID, fp)]; ok {
			found[fp] = s.transactions[idx].ID
		}
	}
	return found, nil
}

func (s *MemoryStore) InsertTransactions(ctx context.Context, txs []models.StoredTransaction) ([]InsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make([]InsertOutcome, len(txs))
	for i, tx := range txs {
		key := txKey(tx.UserID, tx.Fingerprint)
		if idx, ok := s.byKey[key]; ok {
			outcomes[i] = InsertOutcome{Status: InsertConflict, ID: s.transactions[idx].ID, Fingerprint: tx.Fingerprint}
			continue
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = s.now()
		}
		tx.Tags = slices.Clone(tx.Tags)
		s.transactions = append(s.transactions, tx)
		s.byKey[key] = len(s.transactions) - 1
		outcomes[i] = InsertOutcome{Status: Inserted, ID: tx.ID, Fingerprint: tx.Fingerprint}
	}
	return outcomes, nil
}

func (s *MemoryStore) UpdateTransaction(ctx context.Context, tx models.StoredTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, existing := range s.transactions {
		if existing.ID == tx.ID && existing.UserID == tx.UserID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	old := s.transactions[idx]
	if old.Fingerprint != tx.Fingerprint {
		newKey := txKey(tx.UserID, tx.Fingerprint)
		if _, taken := s.byKey[newKey]; taken {
			return fmt.Errorf("fingerprint %s: %w", tx.Fingerprint, parsererror.ErrDuplicateConstraint)
		}
		delete(s.byKey, txKey(old.UserID, old.Fingerprint))
		s.byKey[newKey] = idx
	}
	tx.CreatedAt = old.CreatedAt
	tx.Tags = slices.Clone(tx.Tags)
	s.transactions[idx] = tx
	return nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, userID, id string) (models.StoredTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.ID == id && tx.UserID == userID {
			return s.withCategory(tx), nil
		}
	}
	return models.StoredTransaction{}, ErrNotFound
}

func (s *MemoryStore) ListTransactions(ctx context.Context, q models.TransactionQuery) ([]models.StoredTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.StoredTransaction
	for _, tx := range s.transactions {
		if !matches(tx, q) {
			continue
		}
		out = append(out, s.withCategory(tx))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.Descending {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func matches(tx models.StoredTransaction, q models.TransactionQuery) bool {
	if tx.UserID != q.UserID {
		return false
	}
	if q.AccountID != "" && tx.AccountID != q.AccountID {
		return false
	}
	if !q.From.IsZero() && tx.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && tx.Date.After(q.To) {
		return false
	}
	if q.Kind != "" && tx.Kind != q.Kind {
		return false
	}
	if q.HasMerchant && tx.Merchant == "" {
		return false
	}
	return true
}

func (s *MemoryStore) withCategory(tx models.StoredTransaction) models.StoredTransaction {
	tx.Tags = slices.Clone(tx.Tags)
	if c, ok := s.categories[tx.CategoryID]; ok {
		tx.CategoryName = c.Name
	}
	return tx
}

func (s *MemoryStore) ListRules(ctx context.Context, userID string) ([]models.CategorizationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CategorizationRule
	for _, r := range s.rules {
		if r.IsDefault() || r.OwnerID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetRule(ctx context.Context, id string) (models.CategorizationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return models.CategorizationRule{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) CreateRule(ctx context.Context, rule models.CategorizationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule %s: %w", rule.ID, parsererror.ErrDuplicateConstraint)
	}
	s.rules[rule.ID] = rule
	return nil
}

func (s *MemoryStore) UpdateRule(ctx context.Context, rule models.CategorizationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return ErrNotFound
	}
	s.rules[rule.ID] = rule
	return nil
}

func (s *MemoryStore) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *MemoryStore) GetCategory(ctx context.Context, userID, id string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok || (c.OwnerID != "" && c.OwnerID != userID) {
		return models.Category{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) CreateCategory(ctx context.Context, c models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

func (s *MemoryStore) UpsertPattern(ctx context.Context, p models.RecurringPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[patternKey(p)] = p
	return nil
}

func (s *MemoryStore) ListPatterns(ctx context.Context, userID string) ([]models.RecurringPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RecurringPattern
	for _, p := range s.patterns {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sortPatterns(out)
	return out, nil
}

// sortPatterns orders by occurrence count descending, then merchant and frequency.
func sortPatterns(ps []models.RecurringPattern) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].OccurrenceCount != ps[j].OccurrenceCount {
			return ps[i].OccurrenceCount > ps[j].OccurrenceCount
		}
		if ps[i].Merchant != ps[j].Merchant {
			return ps[i].Merchant < ps[j].Merchant
		}
		return ps[i].Frequency < ps[j].Frequency
	})
}

func (s *MemoryStore) ListBudgets(ctx context.Context, userID string, month time.Time) ([]models.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Budget
	for _, b := range s.budgets {
		if b.UserID == userID && b.Month.Equal(month) {
			if c, ok := s.categories[b.CategoryID]; ok {
				b.CategoryName = c.Name
			}
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveBudget(ctx context.Context, b models.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.budgets {
		if existing.UserID == b.UserID && existing.CategoryID == b.CategoryID && existing.Month.Equal(b.Month) {
			s.budgets[i] = b
			return nil
		}
	}
	s.budgets = append(s.budgets, b)
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, sess models.ImportSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	s.sessions[sess.ID] = cloneSession(sess)
	s.sessionOrder = append(s.sessionOrder, sess.ID)
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, userID, id string) (models.ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID {
		return models.ImportSession{}, ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *MemoryStore) UpdateSession(ctx context.Context, sess models.ImportSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	sess.CreatedAt = existing.CreatedAt
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, userID string, limit int) ([]models.ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ImportSession
	for i := len(s.sessionOrder) - 1; i >= 0; i-- {
		sess := s.sessions[s.sessionOrder[i]]
		if sess.UserID != userID {
			continue
		}
		sess.Transactions = nil
		out = append(out, sess)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func cloneSession(sess models.ImportSession) models.ImportSession {
	sess.Transactions = slices.Clone(sess.Transactions)
	return sess
}

func (s *MemoryStore) GetAccount(ctx context.Context, userID, id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return models.Account{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, a models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Repository = (*MemoryStore)(nil)
