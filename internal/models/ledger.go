package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategorizationRule maps a keyword to a category. An empty OwnerID marks a system default
// visible to every user.
type CategorizationRule struct {
	ID         string `json:"id" yaml:"id"`
	Keyword    string `json:"keyword" yaml:"keyword"`
	CategoryID string `json:"category_id" yaml:"category_id"`
	Priority   int    `json:"priority" yaml:"priority"`
	OwnerID    string `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
}

// IsDefault reports whether the rule is a system default.
func (r CategorizationRule) IsDefault() bool {
	return r.OwnerID == ""
}

// Category names a spending category. An empty OwnerID marks a system category.
type Category struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	OwnerID string `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
}

// RecurringPattern is a detected periodic payment, one per (user, merchant, frequency).
type RecurringPattern struct {
	UserID          string          `json:"user_id"`
	Merchant        string          `json:"merchant"`
	Frequency       Frequency       `json:"frequency"`
	AverageAmount   decimal.Decimal `json:"average_amount"`
	LastSeen        time.Time       `json:"last_seen"`
	OccurrenceCount int             `json:"occurrence_count"`
	CategoryID      string          `json:"category_id,omitempty"`
}

// Budget is a monthly spending limit for one category.
type Budget struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Amount       decimal.Decimal `json:"amount"`
	Month        time.Time       `json:"month"`
}

// Account is a ledger account owned by a user.
type Account struct {
	ID       string      `json:"id"`
	UserID   string      `json:"user_id"`
	Name     string      `json:"name"`
	Kind     AccountKind `json:"kind"`
	Currency string      `json:"currency"`
}

// InsightCard is a generated, non-persisted observation about a month of activity.
type InsightCard struct {
	Kind        InsightKind      `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	ChangePct   *int64           `json:"change_pct,omitempty"`
	Merchant    string           `json:"merchant,omitempty"`
	Category    string           `json:"category,omitempty"`
	Severity    Severity         `json:"severity"`
}

// ImportSession tracks one upload from preview to confirmation.
type ImportSession struct {
	ID               string                  `json:"id"`
	UserID           string                  `json:"user_id"`
	AccountID        string                  `json:"account_id"`
	Source           ImportSource            `json:"source"`
	Status           ImportStatus            `json:"status"`
	StoragePath      string                  `json:"storage_path,omitempty"`
	Transactions     []NormalizedTransaction `json:"transactions,omitempty"`
	TransactionCount int                     `json:"transaction_count"`
	DuplicateCount   int                     `json:"duplicate_count"`
	CreatedAt        time.Time               `json:"created_at"`
}
