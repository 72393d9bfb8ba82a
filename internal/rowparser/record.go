package rowparser

import (
	"strings"

	"github.com/shopspring/decimal"

	"fjacquet/statement-ledger/internal/dateutils"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
)

// Record is one raw statement row with every field still in text form.
// Column names follow the delimited-text header.
type Record struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Type        string `csv:"type"`
	Merchant    string `csv:"merchant"`
	Notes       string `csv:"notes"`
	Tags        string `csv:"tags"`
}

var kindSynonyms = map[string]models.TransactionKind{
	"debit":   models.KindDebit,
	"expense": models.KindDebit,
	"sortie":  models.KindDebit,
	"out":     models.KindDebit,
	"-":       models.KindDebit,
	"credit":  models.KindCredit,
	"income":  models.KindCredit,
	"entree":  models.KindCredit,
	"in":      models.KindCredit,
	"+":       models.KindCredit,
}

// ParseKind maps a type label to a transaction kind, case-insensitively.
func ParseKind(raw string) (models.TransactionKind, bool) {
	kind, ok := kindSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return kind, ok
}

// ParseAmount reads a positive decimal amount. The first comma is taken as the decimal separator.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.Replace(strings.TrimSpace(raw), ",", ".", 1)
	if s == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(s)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

// ParseTags splits a comma-separated tag list, dropping blanks.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Coerce validates a record and converts it to a candidate row. row is the 1-based data row
// number used in the rejection error.
func Coerce(rec Record, row int) (models.CandidateRow, error) {
	reject := func(field, value, reason string) (models.CandidateRow, error) {
		return models.CandidateRow{}, &parsererror.RowRejectedError{Row: row, Field: field, Value: value, Reason: reason}
	}

	if strings.TrimSpace(rec.Date) == "" {
		return reject("date", rec.Date, "required field is empty")
	}
	amount, ok := ParseAmount(rec.Amount)
	if !ok {
		return reject("amount", rec.Amount, "amount must be a positive number")
	}

	kind, ok := ParseKind(rec.Type)
	if !ok {
		return reject("type", rec.Type, "unknown transaction type")
	}

	date, err := dateutils.NormalizeStatementDate(rec.Date)
	if err != nil {
		return reject("date", rec.Date, err.Error())
	}

	return models.CandidateRow{
		Date:        date,
		Description: strings.TrimSpace(rec.Description),
		Amount:      amount,
		Kind:        kind,
		Merchant:    strings.TrimSpace(rec.Merchant),
		Notes:       strings.TrimSpace(rec.Notes),
		Tags:        ParseTags(rec.Tags),
	}, nil
}
