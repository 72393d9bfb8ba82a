// Package importer turns parsed statement rows into previewable import sessions and writes
// confirmed sessions to the ledger.
package importer

import (
	"context"

	"fjacquet/statement-ledger/internal/categorizer"
	"fjacquet/statement-ledger/internal/fingerprint"
	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
)

// FingerprintFinder looks up fingerprints already stored for a user.
type FingerprintFinder interface {
	FindByFingerprints(ctx context.Context, userID string, fingerprints []string) (map[string]string, error)
}

// RuleSetLoader loads a user's ordered categorization rules.
type RuleSetLoader interface {
	RuleSet(ctx context.Context, userID string) (*categorizer.RuleSet, error)
}

// Normalizer fingerprints, deduplicates and categorizes candidate rows. It never writes.
type Normalizer struct {
	finder FingerprintFinder
	rules  RuleSetLoader
	logger logging.Logger
}

func NewNormalizer(finder FingerprintFinder, rules RuleSetLoader, logger logging.Logger) *Normalizer {
	return &Normalizer{finder: finder, rules: rules, logger: logging.OrDefault(logger)}
}

// Normalize processes rows in order. Each row's fingerprint includes its zero-based
// position, so identical rows within one batch stay distinct while a re-import of the same
// file matches row for row. Duplicate lookups are done in a single store query.
func (n *Normalizer) Normalize(ctx context.Context, userID, accountID string, rows []models.CandidateRow) ([]models.NormalizedTransaction, error) {
	if len(rows) == 0 {
		return []models.NormalizedTransaction{}, nil
	}

	out := make([]models.NormalizedTransaction, len(rows))
	fps := make([]string, len(rows))
	for i, row := range rows {
		fps[i] = fingerprint.ForRow(userID, row, i)
		out[i] = models.NormalizedTransaction{CandidateRow: row, Fingerprint: fps[i]}
	}

	existing, err := n.finder.FindByFingerprints(ctx, userID, fps)
	if err != nil {
		return nil, parsererror.Store("find fingerprints", err)
	}
	set, err := n.rules.RuleSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	duplicates, categorized := 0, 0
	for i := range out {
		if id, ok := existing[out[i].Fingerprint]; ok {
			out[i].IsDuplicate = true
			out[i].DuplicateOf = id
			duplicates++
		}
		if rule, ok := set.Match(out[i].MatchText()); ok {
			out[i].CategoryID = rule.CategoryID
			categorized++
		}
	}

	n.logger.Debug("Normalized import rows",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldAccountID, accountID),
		logging.F(logging.FieldCount, len(out)),
		logging.F("duplicates", duplicates),
		logging.F("categorized", categorized))
	return out, nil
}
