// Package statement talks to the external service that turns uploaded bank statements into rows.
package statement

//go:generate mockgen -source=statement.go -destination=statement_mock.go -package=statement

import (
	"context"

	"github.com/shopspring/decimal"

	"fjacquet/statement-ledger/internal/rowparser"
)

// Transaction is one row as reported by the parsing service.
type Transaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Merchant    *string         `json:"merchant"`
}

// Result is the parsing service response.
type Result struct {
	Transactions     []Transaction    `json:"transactions"`
	BeginningBalance *decimal.Decimal `json:"beginning_balance"`
	Bank             *string          `json:"bank"`
}

// Records converts the service rows into raw records so they go through the same coercion
// as delimited input.
func (r *Result) Records() []rowparser.Record {
	if r == nil {
		return nil
	}
	out := make([]rowparser.Record, 0, len(r.Transactions))
	for _, t := range r.Transactions {
		rec := rowparser.Record{
			Date:        t.Date,
			Description: t.Description,
			Amount:      t.Amount.String(),
			Type:        t.Type,
		}
		if t.Merchant != nil {
			rec.Merchant = *t.Merchant
		}
		out = append(out, rec)
	}
	return out
}

// BankName returns the reported bank or "".
func (r *Result) BankName() string {
	if r == nil || r.Bank == nil {
		return ""
	}
	return *r.Bank
}

// Parser parses a stored statement file for the given statement year.
type Parser interface {
	Parse(ctx context.Context, storagePath string, year int) (*Result, error)
}
