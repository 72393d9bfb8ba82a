package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/internal/categorizer"
	"fjacquet/statement-ledger/internal/fingerprint"
	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
	"fjacquet/statement-ledger/internal/store"
)

const user = "user1"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func candidate(d time.Time, desc, amount, merchant string) models.CandidateRow {
	return models.CandidateRow{
		Date:        d,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Kind:        models.KindDebit,
		Merchant:    merchant,
	}
}

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.CreateAccount(ctx, models.Account{ID: "acc", UserID: user, Name: "CIH", Kind: models.AccountBank, Currency: "MAD"}))
	require.NoError(t, s.CreateCategory(ctx, models.Category{ID: "groceries", Name: "Groceries"}))
	require.NoError(t, s.CreateCategory(ctx, models.Category{ID: "transport", Name: "Transport"}))
	require.NoError(t, s.CreateRule(ctx, models.CategorizationRule{ID: "default:groceries:marjane", Keyword: "marjane", CategoryID: "groceries", Priority: 10}))
	require.NoError(t, s.CreateRule(ctx, models.CategorizationRule{ID: "default:transport:taxi", Keyword: "taxi", CategoryID: "transport", Priority: 10}))
	return s
}

func TestNormalize_PositionsAndCategories(t *testing.T) {
	s := newTestStore(t)
	n := NewNormalizer(s, categorizer.NewEngine(s, nil), logging.NewMockLogger())

	rows := []models.CandidateRow{
		candidate(date(2024, 3, 5), "PAIEMENT PAR CARTE", "245.50", "MARJANE"),
		candidate(date(2024, 3, 5), "PAIEMENT PAR CARTE", "245.50", "MARJANE"),
		candidate(date(2024, 3, 6), "Petit taxi", "20", ""),
		candidate(date(2024, 3, 7), "Cinema", "60", ""),
	}

	out, err := n.Normalize(context.Background(), user, "acc", rows)
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.NotEqual(t, out[0].Fingerprint, out[1].Fingerprint, "identical rows at different positions")
	assert.Equal(t, fingerprint.ForRow(user, rows[0], 0), out[0].Fingerprint)
	assert.Equal(t, "groceries", out[0].CategoryID, "merchant is part of the matched text")
	assert.Equal(t, "transport", out[2].CategoryID)
	assert.Empty(t, out[3].CategoryID)
	for _, r := range out {
		assert.False(t, r.IsDuplicate)
	}

	again, err := n.Normalize(context.Background(), user, "acc", rows)
	require.NoError(t, err)
	for i := range out {
		assert.Equal(t, out[i].Fingerprint, again[i].Fingerprint, "re-run is stable")
	}
}

func TestNormalize_FlagsStoredRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	row := candidate(date(2024, 3, 5), "Coffee", "12.50", "")
	fp := fingerprint.ForRow(user, row, 1)
	_, err := s.InsertTransactions(ctx, []models.StoredTransaction{{
		ID: "existing", UserID: user, AccountID: "acc", Date: row.Date, Description: row.Description,
		Amount: row.Amount, Kind: row.Kind, Currency: "MAD", Fingerprint: fp,
	}})
	require.NoError(t, err)

	n := NewNormalizer(s, categorizer.NewEngine(s, nil), nil)
	out, err := n.Normalize(ctx, user, "acc", []models.CandidateRow{row, row})
	require.NoError(t, err)

	assert.False(t, out[0].IsDuplicate)
	assert.True(t, out[1].IsDuplicate)
	assert.Equal(t, "existing", out[1].DuplicateOf)

	other, err := n.Normalize(ctx, "user2", "acc", []models.CandidateRow{row, row})
	require.NoError(t, err)
	assert.False(t, other[1].IsDuplicate, "fingerprints are per user")
}

func TestNormalize_Empty(t *testing.T) {
	s := newTestStore(t)
	out, err := NewNormalizer(s, categorizer.NewEngine(s, nil), nil).Normalize(context.Background(), user, "acc", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

type brokenFinder struct{}

func (brokenFinder) FindByFingerprints(context.Context, string, []string) (map[string]string, error) {
	return nil, errors.New("connection reset")
}

func TestNormalize_StoreFailure(t *testing.T) {
	s := newTestStore(t)
	n := NewNormalizer(brokenFinder{}, categorizer.NewEngine(s, nil), nil)
	_, err := n.Normalize(context.Background(), user, "acc", []models.CandidateRow{candidate(date(2024, 1, 1), "x", "1", "")})
	assert.ErrorIs(t, err, parsererror.ErrStoreUnavailable)
}
