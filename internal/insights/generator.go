// Package insights compares a month of activity with the previous one and produces a short,
// ranked list of observation cards.
package insights

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"fjacquet/statement-ledger/internal/dateutils"
	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
)

const DefaultMaxCards = 6

// Store is the read-only data the generator needs.
type Store interface {
	ListTransactions(ctx context.Context, q models.TransactionQuery) ([]models.StoredTransaction, error)
	ListBudgets(ctx context.Context, userID string, month time.Time) ([]models.Budget, error)
	ListPatterns(ctx context.Context, userID string) ([]models.RecurringPattern, error)
}

// PatternRefresher recomputes and saves a user's recurring patterns.
type PatternRefresher interface {
	Run(ctx context.Context, userID string) ([]models.RecurringPattern, error)
}

type Generator struct {
	store     Store
	refresher PatternRefresher
	maxCards  int
	currency  string
	money     moneyFormatter
	now       func() time.Time
	logger    logging.Logger
}

type Option func(*Generator)

func WithMaxCards(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxCards = n
		}
	}
}

func WithCurrency(code string) Option {
	return func(g *Generator) {
		if code != "" {
			g.currency = code
		}
	}
}

func WithLocale(locale string) Option {
	return func(g *Generator) { g.money = newMoneyFormatter(locale) }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithPatternRefresh makes every Generate call re-run recurring detection first, so due-soon
// cards never read stale patterns.
func WithPatternRefresh(r PatternRefresher) Option {
	return func(g *Generator) { g.refresher = r }
}

func NewGenerator(st Store, logger logging.Logger, opts ...Option) *Generator {
	g := &Generator{
		store:    st,
		maxCards: DefaultMaxCards,
		currency: models.DefaultCurrency,
		money:    newMoneyFormatter(DefaultLocale),
		now:      time.Now,
		logger:   logging.OrDefault(logger),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns at most maxCards cards for the month containing month, warnings first.
// Any failed read fails the whole call.
func (g *Generator) Generate(ctx context.Context, userID string, month time.Time) ([]models.InsightCard, error) {
	start := time.Now()
	month = dateutils.StartOfMonth(month)
	prevMonth := dateutils.AddMonths(month, -1)

	if g.refresher != nil {
		if _, err := g.refresher.Run(ctx, userID); err != nil {
			return nil, err
		}
	}

	snap := snapshot{today: dateutils.Day(g.now())}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		txs, err := g.store.ListTransactions(egCtx, models.TransactionQuery{
			UserID: userID, From: month, To: dateutils.EndOfMonth(month),
		})
		snap.current = txs
		return parsererror.Store("list current month", err)
	})
	eg.Go(func() error {
		txs, err := g.store.ListTransactions(egCtx, models.TransactionQuery{
			UserID: userID, From: prevMonth, To: dateutils.EndOfMonth(prevMonth),
		})
		snap.previous = txs
		return parsererror.Store("list previous month", err)
	})
	eg.Go(func() error {
		budgets, err := g.store.ListBudgets(egCtx, userID, month)
		snap.budgets = budgets
		return parsererror.Store("list budgets", err)
	})
	eg.Go(func() error {
		patterns, err := g.store.ListPatterns(egCtx, userID)
		snap.patterns = patterns
		return parsererror.Store("list patterns", err)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var cards []models.InsightCard
	if len(snap.current) == 0 {
		cards = []models.InsightCard{noActivity()}
	} else {
		for _, rule := range rules {
			cards = append(cards, rule(g, snap)...)
		}
	}

	slices.SortStableFunc(cards, func(a, b models.InsightCard) int {
		return a.Severity.Rank() - b.Severity.Rank()
	})
	if len(cards) > g.maxCards {
		cards = cards[:g.maxCards]
	}

	g.logger.Debug("Insights generated",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldMonth, month.Format(dateutils.MonthLayout)),
		logging.F(logging.FieldCount, len(cards)),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return cards, nil
}
