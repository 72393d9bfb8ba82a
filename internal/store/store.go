// Package store persists the ledger: transactions, rules, recurring patterns, budgets,
// accounts and import sessions. MemoryStore backs tests; SQLiteStore backs the CLI.
package store

import (
	"context"
	"errors"
	"time"

	"fjacquet/statement-ledger/internal/models"
)

// ErrNotFound is returned by point lookups that match nothing.
var ErrNotFound = errors.New("not found")

// InsertStatus tags the result of inserting one transaction.
type InsertStatus int

const (
	// Inserted means the row was written.
	Inserted InsertStatus = iota
	// InsertConflict means a transaction with the same (user, fingerprint) already exists.
	InsertConflict
)

func (s InsertStatus) String() string {
	if s == InsertConflict {
		return "conflict"
	}
	return "inserted"
}

// InsertOutcome is the per-row result of InsertTransactions, in input order.
type InsertOutcome struct {
	Status      InsertStatus
	ID          string
	Fingerprint string
}

// TransactionReader answers ledger queries.
type TransactionReader interface {
	// FindByFingerprints maps each fingerprint already stored for the user to its transaction ID.
	FindByFingerprints(ctx context.Context, userID string, fingerprints []string) (map[string]string, error)
	ListTransactions(ctx context.Context, q models.TransactionQuery) ([]models.StoredTransaction, error)
	GetTransaction(ctx context.Context, userID, id string) (models.StoredTransaction, error)
}

// TransactionWriter writes ledger entries. A fingerprint conflict is reported as an
// InsertConflict outcome, never as an error; any error means nothing from the call was written.
type TransactionWriter interface {
	InsertTransactions(ctx context.Context, txs []models.StoredTransaction) ([]InsertOutcome, error)
	UpdateTransaction(ctx context.Context, tx models.StoredTransaction) error
}

// RuleStore holds categorization rules and the categories they point at.
type RuleStore interface {
	ListRules(ctx context.Context, userID string) ([]models.CategorizationRule, error)
	GetRule(ctx context.Context, id string) (models.CategorizationRule, error)
	CreateRule(ctx context.Context, rule models.CategorizationRule) error
	UpdateRule(ctx context.Context, rule models.CategorizationRule) error
	DeleteRule(ctx context.Context, id string) error
	GetCategory(ctx context.Context, userID, id string) (models.Category, error)
	CreateCategory(ctx context.Context, c models.Category) error
}

// PatternStore keeps one recurring pattern per (user, merchant, frequency).
type PatternStore interface {
	UpsertPattern(ctx context.Context, p models.RecurringPattern) error
	ListPatterns(ctx context.Context, userID string) ([]models.RecurringPattern, error)
}

// BudgetReader reads a user's budgets for the month starting at month.
type BudgetReader interface {
	ListBudgets(ctx context.Context, userID string, month time.Time) ([]models.Budget, error)
}

// SessionStore tracks import sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s models.ImportSession) error
	GetSession(ctx context.Context, userID, id string) (models.ImportSession, error)
	UpdateSession(ctx context.Context, s models.ImportSession) error
	ListSessions(ctx context.Context, userID string, limit int) ([]models.ImportSession, error)
}

// AccountStore holds ledger accounts.
type AccountStore interface {
	GetAccount(ctx context.Context, userID, id string) (models.Account, error)
	CreateAccount(ctx context.Context, a models.Account) error
}

// Repository is the full store contract.
type Repository interface {
	TransactionReader
	TransactionWriter
	RuleStore
	PatternStore
	BudgetReader
	SessionStore
	AccountStore
	SaveBudget(ctx context.Context, b models.Budget) error
	Close() error
}
