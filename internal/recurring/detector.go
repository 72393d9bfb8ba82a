// Package recurring finds merchants that charge a user on a regular schedule.
package recurring

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fjacquet/statement-ledger/internal/dateutils"
	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
)

const DefaultLookbackMonths = 13

// Store is the persistence the detector reads from and writes to.
type Store interface {
	ListTransactions(ctx context.Context, q models.TransactionQuery) ([]models.StoredTransaction, error)
	UpsertPattern(ctx context.Context, p models.RecurringPattern) error
	ListPatterns(ctx context.Context, userID string) ([]models.RecurringPattern, error)
}

type Detector struct {
	store          Store
	lookbackMonths int
	now            func() time.Time
	logger         logging.Logger
}

type Option func(*Detector)

func WithLookbackMonths(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.lookbackMonths = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

func NewDetector(st Store, logger logging.Logger, opts ...Option) *Detector {
	d := &Detector{
		store:          st,
		lookbackMonths: DefaultLookbackMonths,
		now:            time.Now,
		logger:         logging.OrDefault(logger),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type group struct {
	merchant   string
	dates      []time.Time
	total      decimal.Decimal
	categoryID string
}

// Detect classifies the user's debit merchants from the lookback window. Merchants are
// grouped case-insensitively and reported in the order they were first seen.
func (d *Detector) Detect(ctx context.Context, userID string) ([]models.RecurringPattern, error) {
	since := dateutils.Day(d.now().AddDate(0, -d.lookbackMonths, 0))
	txs, err := d.store.ListTransactions(ctx, models.TransactionQuery{
		UserID:      userID,
		From:        since,
		Kind:        models.KindDebit,
		HasMerchant: true,
	})
	if err != nil {
		return nil, parsererror.Store("list transactions", err)
	}

	fold := cases.Fold()
	upper := cases.Upper(language.Und)
	var order []string
	groups := make(map[string]*group)
	for _, tx := range txs {
		key := fold.String(strings.TrimSpace(tx.Merchant))
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{merchant: upper.String(key), total: decimal.Zero, categoryID: tx.CategoryID}
			groups[key] = g
			order = append(order, key)
		}
		g.dates = append(g.dates, dateutils.Day(tx.Date))
		g.total = g.total.Add(tx.Amount)
	}

	patterns := make([]models.RecurringPattern, 0)
	for _, key := range order {
		g := groups[key]
		if len(g.dates) < 2 {
			continue
		}
		gaps := make([]int, len(g.dates)-1)
		for i := 1; i < len(g.dates); i++ {
			gaps[i-1] = dateutils.DaysBetween(g.dates[i-1], g.dates[i])
		}
		freq, ok := Classify(gaps, len(g.dates))
		if !ok {
			continue
		}
		patterns = append(patterns, models.RecurringPattern{
			UserID:          userID,
			Merchant:        g.merchant,
			Frequency:       freq,
			AverageAmount:   g.total.Div(decimal.NewFromInt(int64(len(g.dates)))).Round(2),
			LastSeen:        g.dates[len(g.dates)-1],
			OccurrenceCount: len(g.dates),
			CategoryID:      g.categoryID,
		})
	}

	d.logger.Debug("Recurring detection finished",
		logging.F(logging.FieldUserID, userID),
		logging.F("merchants", len(order)),
		logging.F(logging.FieldCount, len(patterns)))
	return patterns, nil
}

// Save overwrites each pattern's stored row for (user, merchant, frequency).
func (d *Detector) Save(ctx context.Context, userID string, patterns []models.RecurringPattern) error {
	for _, p := range patterns {
		p.UserID = userID
		if err := d.store.UpsertPattern(ctx, p); err != nil {
			return parsererror.Store("upsert pattern", err)
		}
	}
	return nil
}

// Run detects and saves patterns.
func (d *Detector) Run(ctx context.Context, userID string) ([]models.RecurringPattern, error) {
	patterns, err := d.Detect(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := d.Save(ctx, userID, patterns); err != nil {
		return nil, err
	}
	d.logger.Info("Recurring patterns saved",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldCount, len(patterns)))
	return patterns, nil
}

// ListPatterns returns saved patterns, most frequent first.
func (d *Detector) ListPatterns(ctx context.Context, userID string) ([]models.RecurringPattern, error) {
	patterns, err := d.store.ListPatterns(ctx, userID)
	if err != nil {
		return nil, parsererror.Store("list patterns", err)
	}
	return patterns, nil
}
