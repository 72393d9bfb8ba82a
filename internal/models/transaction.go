// Package models holds the ledger's domain types.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CandidateRow is a parsed statement row before fingerprinting and categorization.
// Amount is always positive; direction is carried by Kind.
type CandidateRow struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        TransactionKind `json:"type"`
	Merchant    string          `json:"merchant,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

// MatchText is the text searched by categorization rules.
func (r CandidateRow) MatchText() string {
	return r.Description + " " + r.Merchant
}

// DateString renders Date as YYYY-MM-DD.
func (r CandidateRow) DateString() string {
	return r.Date.Format(DateLayout)
}

// NormalizedTransaction is a CandidateRow ready for preview and confirmation.
type NormalizedTransaction struct {
	CandidateRow
	Fingerprint string `json:"fingerprint"`
	CategoryID  string `json:"category_id,omitempty"`
	IsDuplicate bool   `json:"is_duplicate"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

// StoredTransaction is a persisted ledger entry. CategoryName is filled on read.
type StoredTransaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	AccountID    string          `json:"account_id"`
	CategoryID   string          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Kind         TransactionKind `json:"type"`
	Currency     string          `json:"currency"`
	Merchant     string          `json:"merchant,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Fingerprint  string          `json:"fingerprint"`
	ImportID     string          `json:"import_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (t StoredTransaction) IsDebit() bool {
	return t.Kind == KindDebit
}

// CategoryLabel returns the category name, or CategoryUncategorized when none is set.
func (t StoredTransaction) CategoryLabel() string {
	if strings.TrimSpace(t.CategoryName) == "" {
		return CategoryUncategorized
	}
	return t.CategoryName
}

// CategoryUncategorized labels transactions without a category.
const CategoryUncategorized = "Uncategorized"

// TransactionQuery filters ledger reads. Zero values mean "no filter";
// From and To are inclusive calendar dates.
type TransactionQuery struct {
	UserID      string
	AccountID   string
	From        time.Time
	To          time.Time
	Kind        TransactionKind
	HasMerchant bool
	Descending  bool
}
