package ledger

import (
	"context"
	"io"
	"strings"
	"time"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
)

// ExportHeader is the first line of every export.
const ExportHeader = "date,description,amount,type,merchant,notes,tags,category"

// ExportFilter narrows an export. Zero values mean no filter; dates are inclusive.
type ExportFilter struct {
	AccountID string
	From      time.Time
	To        time.Time
}

// Export writes the user's transactions, newest first, as CSV. Lines are separated by "\n"
// with no newline after the last one.
func (s *Service) Export(ctx context.Context, w io.Writer, userID string, f ExportFilter) (int, error) {
	txs, err := s.store.ListTransactions(ctx, models.TransactionQuery{
		UserID:     userID,
		AccountID:  f.AccountID,
		From:       f.From,
		To:         f.To,
		Descending: true,
	})
	if err != nil {
		return 0, parsererror.Store("list transactions", err)
	}

	lines := make([]string, 0, len(txs)+1)
	lines = append(lines, ExportHeader)
	for _, tx := range txs {
		lines = append(lines, exportLine(tx))
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return 0, err
	}

	s.logger.Info("Ledger exported",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldCount, len(txs)))
	return len(txs), nil
}

func exportLine(tx models.StoredTransaction) string {
	return strings.Join([]string{
		tx.Date.Format(models.DateLayout),
		csvEscape(tx.Description),
		tx.Amount.StringFixed(2),
		string(tx.Kind),
		csvEscape(tx.Merchant),
		csvEscape(tx.Notes),
		strings.Join(tx.Tags, "|"),
		csvEscape(tx.CategoryName),
	}, ",")
}

// csvEscape quotes a field only when it holds a comma, quote or newline.
func csvEscape(v string) string {
	if !strings.ContainsAny(v, ",\"\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
