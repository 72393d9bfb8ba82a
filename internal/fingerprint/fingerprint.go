// Package fingerprint computes the content hash used to deduplicate ledger rows.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fjacquet/statement-ledger/internal/models"
)

// Build returns the fingerprint for a manually entered transaction.
func Build(userID string, date time.Time, amount decimal.Decimal, description string) string {
	return hash(key(userID, date, amount, description))
}

// BuildAt returns the fingerprint for the row at position within an imported batch.
// The position keeps identical rows inside one file distinct.
func BuildAt(userID string, date time.Time, amount decimal.Decimal, description string, position int) string {
	return hash(key(userID, date, amount, description) + "|" + strconv.Itoa(position))
}

// ForRow fingerprints a candidate row at its batch position.
func ForRow(userID string, row models.CandidateRow, position int) string {
	return BuildAt(userID, row.Date, row.Amount, row.Description, position)
}

func key(userID string, date time.Time, amount decimal.Decimal, description string) string {
	return strings.Join([]string{
		userID,
		date.Format(models.DateLayout),
		amount.String(),
		strings.ToLower(strings.TrimSpace(description)),
	}, "|")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
