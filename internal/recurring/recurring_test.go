package recurring

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/store"
)

const user = "user1"

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		gaps   []int
		count  int
		want   models.Frequency
		wantOK bool
	}{
		{name: "monthly", gaps: []int{30, 31, 29, 30}, count: 5, want: models.FrequencyMonthly, wantOK: true},
		{name: "weekly", gaps: []int{7, 8, 6, 7}, count: 5, want: models.FrequencyWeekly, wantOK: true},
		{name: "weekly needs four occurrences", gaps: []int{7, 7}, count: 3},
		{name: "monthly needs three occurrences", gaps: []int{30}, count: 2},
		{name: "yearly with two occurrences", gaps: []int{366}, count: 2, want: models.FrequencyYearly, wantOK: true},
		{name: "monthly deviation too large", gaps: []int{20, 40}, count: 3},
		{name: "monthly deviation on the boundary", gaps: []int{23, 37}, count: 3, want: models.FrequencyMonthly, wantOK: true},
		{name: "irregular", gaps: []int{3, 60, 12}, count: 4},
		{name: "single occurrence", count: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.gaps, tt.count)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStats(t *testing.T) {
	st := Stats([]int{30, 31, 29, 30})
	assert.InDelta(t, 30.0, st.AvgGap, 1e-9)
	assert.InDelta(t, 1.0, st.MaxDeviation, 1e-9)
	assert.Equal(t, GapStats{}, Stats(nil))
}

func debit(merchant string, d time.Time, amount, category string) models.StoredTransaction {
	return models.StoredTransaction{
		ID:          uuid.NewString(),
		UserID:      user,
		AccountID:   "acc",
		CategoryID:  category,
		Date:        d,
		Description: "CARTE " + merchant,
		Amount:      decimal.RequireFromString(amount),
		Kind:        models.KindDebit,
		Currency:    models.DefaultCurrency,
		Merchant:    merchant,
		Fingerprint: uuid.NewString(),
	}
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, txs ...models.StoredTransaction) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	_, err := s.InsertTransactions(context.Background(), txs)
	require.NoError(t, err)
	return s
}

func TestDetect(t *testing.T) {
	s := seed(t,
		debit("Netflix", day(time.February, 3), "99", "subs"),
		debit("NETFLIX", day(time.March, 4), "99", "other"),
		debit("netflix", day(time.April, 4), "100", ""),
		debit("Gym", day(time.May, 1), "10", ""),
		debit("gym", day(time.May, 8), "10", ""),
		debit("Gym", day(time.May, 15), "10", ""),
		debit("Gym", day(time.May, 22), "10.01", ""),
		debit("Once", day(time.May, 2), "500", ""),
		debit("Random", day(time.January, 5), "5", ""),
		debit("Random", day(time.May, 30), "5", ""),
	)
	credit := debit("Employer", day(time.March, 1), "9000", "")
	credit.Kind = models.KindCredit
	old := debit("Netflix", time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), "99", "")
	_, err := s.InsertTransactions(context.Background(), []models.StoredTransaction{credit, old})
	require.NoError(t, err)

	d := NewDetector(s, logging.NewMockLogger(), WithClock(func() time.Time { return now }))
	got, err := d.Detect(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, got, 2)

	netflix := got[0]
	assert.Equal(t, "NETFLIX", netflix.Merchant)
	assert.Equal(t, models.FrequencyMonthly, netflix.Frequency)
	assert.Equal(t, 3, netflix.OccurrenceCount, "the 2023 charge is outside the window")
	assert.Equal(t, day(time.April, 4), netflix.LastSeen)
	assert.Equal(t, "subs", netflix.CategoryID, "category of the first occurrence")
	assert.Equal(t, "99.33", netflix.AverageAmount.StringFixed(2))

	gym := got[1]
	assert.Equal(t, "GYM", gym.Merchant)
	assert.Equal(t, models.FrequencyWeekly, gym.Frequency)
	assert.Equal(t, "10.00", gym.AverageAmount.StringFixed(2))
}

func TestRun_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := seed(t,
		debit("Spotify", day(time.February, 10), "59.99", ""),
		debit("Spotify", day(time.March, 10), "59.99", ""),
		debit("Spotify", day(time.April, 10), "59.99", ""),
	)
	d := NewDetector(s, nil, WithClock(func() time.Time { return now }))

	first, err := d.Run(ctx, user)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = d.Run(ctx, user)
	require.NoError(t, err)

	saved, err := d.ListPatterns(ctx, user)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, first[0].Merchant, saved[0].Merchant)
	assert.Equal(t, 3, saved[0].OccurrenceCount)
	assert.True(t, first[0].AverageAmount.Equal(saved[0].AverageAmount))

	_, err = s.InsertTransactions(ctx, []models.StoredTransaction{debit("Spotify", day(time.May, 10), "59.99", "")})
	require.NoError(t, err)
	_, err = d.Run(ctx, user)
	require.NoError(t, err)

	saved, err = d.ListPatterns(ctx, user)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 4, saved[0].OccurrenceCount, "rows are overwritten, not merged")
	assert.Equal(t, day(time.May, 10), saved[0].LastSeen)
}

func TestDetect_LookbackOption(t *testing.T) {
	s := seed(t,
		debit("Insurance", time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), "1200", ""),
		debit("Insurance", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), "1200", ""),
		debit("Insurance", day(time.June, 1), "1300", ""),
	)
	clock := WithClock(func() time.Time { return now })

	short, err := NewDetector(s, nil, clock).Detect(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, 2, short[0].OccurrenceCount)

	long, err := NewDetector(s, nil, clock, WithLookbackMonths(36)).Detect(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, long, 1)
	assert.Equal(t, models.FrequencyYearly, long[0].Frequency)
	assert.Equal(t, 3, long[0].OccurrenceCount)
	assert.Equal(t, "1233.33", long[0].AverageAmount.StringFixed(2))
}
