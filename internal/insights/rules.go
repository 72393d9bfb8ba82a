package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"fjacquet/statement-ledger/internal/dateutils"
	"fjacquet/statement-ledger/internal/models"
)

const (
	spikeThreshold         = 20
	spikeWarningThreshold  = 50
	dropThreshold          = -15
	categorySpikeThreshold = 30
	budgetWarningThreshold = 80
	budgetExceedThreshold  = 100
	recurringDueWindowDays = 5
	maxNewMerchants        = 3
	unknownCategory        = "Unknown"
)

// snapshot is everything one generation run looks at.
type snapshot struct {
	current  []models.StoredTransaction
	previous []models.StoredTransaction
	budgets  []models.Budget
	patterns []models.RecurringPattern
	today    time.Time
}

type ruleFunc func(g *Generator, s snapshot) []models.InsightCard

// rules run in this order; card order before the severity sort follows it.
var rules = []ruleFunc{
	spendingChange,
	categorySpike,
	newMerchants,
	budgetAlerts,
	recurringDue,
}

func ptrInt(v int64) *int64 { return &v }

func ptrDec(d decimal.Decimal) *decimal.Decimal { return &d }

func noActivity() models.InsightCard {
	return models.InsightCard{
		Kind:        models.InsightNoActivity,
		Title:       "No transactions yet this month",
		Description: "Start tracking your expenses by adding transactions or importing a statement",
		Severity:    models.SeverityInfo,
	}
}

func spendingChange(g *Generator, s snapshot) []models.InsightCard {
	cur := models.SumAmounts(s.current, models.KindDebit)
	prev := models.SumAmounts(s.previous, models.KindDebit)
	if prev.IsZero() {
		return nil
	}

	pct := models.PercentChange(cur, prev)
	switch {
	case pct >= spikeThreshold:
		severity := models.SeverityInfo
		if pct >= spikeWarningThreshold {
			severity = models.SeverityWarning
		}
		return []models.InsightCard{{
			Kind:        models.InsightSpendingSpike,
			Title:       "Spending spike this month",
			Description: fmt.Sprintf("You spent %d%% more than last month (%s vs %s %s)", pct, g.money.format(cur), g.money.format(prev), g.currency),
			Amount:      ptrDec(cur),
			ChangePct:   ptrInt(pct),
			Severity:    severity,
		}}
	case pct <= dropThreshold:
		return []models.InsightCard{{
			Kind:        models.InsightSpendingDown,
			Title:       "Great job saving this month!",
			Description: fmt.Sprintf("You spent %d%% less than last month (%s vs %s %s)", -pct, g.money.format(cur), g.money.format(prev), g.currency),
			Amount:      ptrDec(cur),
			ChangePct:   ptrInt(pct),
			Severity:    models.SeveritySuccess,
		}}
	}
	return nil
}

type categoryTotal struct {
	id    string
	name  string
	total decimal.Decimal
}

// debitsByCategory sums debits per category in first-encounter order. Uncategorized rows
// are ignored.
func debitsByCategory(txs []models.StoredTransaction) []*categoryTotal {
	var order []*categoryTotal
	byID := make(map[string]*categoryTotal)
	for _, tx := range txs {
		if !tx.IsDebit() || tx.CategoryID == "" {
			continue
		}
		ct, ok := byID[tx.CategoryID]
		if !ok {
			name := tx.CategoryName
			if name == "" {
				name = unknownCategory
			}
			ct = &categoryTotal{id: tx.CategoryID, name: name, total: decimal.Zero}
			byID[tx.CategoryID] = ct
			order = append(order, ct)
		}
		ct.total = ct.total.Add(tx.Amount)
	}
	return order
}

func categorySpike(g *Generator, s snapshot) []models.InsightCard {
	prevTotals := make(map[string]decimal.Decimal)
	for _, ct := range debitsByCategory(s.previous) {
		prevTotals[ct.id] = ct.total
	}

	var best *categoryTotal
	var bestPct int64
	for _, ct := range debitsByCategory(s.current) {
		prev, ok := prevTotals[ct.id]
		if !ok || prev.IsZero() {
			continue
		}
		if pct := models.PercentChange(ct.total, prev); pct > bestPct {
			best, bestPct = ct, pct
		}
	}
	if best == nil || bestPct < categorySpikeThreshold {
		return nil
	}
	return []models.InsightCard{{
		Kind:        models.InsightCategorySpike,
		Title:       fmt.Sprintf("%s spending up %d%%", best.name, bestPct),
		Description: fmt.Sprintf("You spent %s %s on %s this month", g.money.format(best.total), g.currency, best.name),
		Amount:      ptrDec(best.total),
		ChangePct:   ptrInt(bestPct),
		Category:    best.name,
		Severity:    models.SeverityWarning,
	}}
}

func newMerchants(g *Generator, s snapshot) []models.InsightCard {
	fold := cases.Fold()
	seen := make(map[string]bool)
	for _, tx := range s.previous {
		if m := strings.TrimSpace(tx.Merchant); m != "" {
			seen[fold.String(m)] = true
		}
	}

	var found []string
	for _, tx := range s.current {
		m := strings.TrimSpace(tx.Merchant)
		if !tx.IsDebit() || m == "" {
			continue
		}
		key := fold.String(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		found = append(found, m)
		if len(found) == maxNewMerchants {
			break
		}
	}
	if len(found) == 0 {
		return nil
	}

	plural := ""
	if len(found) > 1 {
		plural = "s"
	}
	return []models.InsightCard{{
		Kind:        models.InsightNewMerchants,
		Title:       fmt.Sprintf("%d new merchant%s this month", len(found), plural),
		Description: "First time spending at: " + strings.Join(found, ", "),
		Severity:    models.SeverityInfo,
	}}
}

func budgetAlerts(g *Generator, s snapshot) []models.InsightCard {
	var cards []models.InsightCard
	for _, b := range s.budgets {
		if !b.Amount.IsPositive() {
			continue
		}
		spent := decimal.Zero
		for _, tx := range s.current {
			if tx.IsDebit() && tx.CategoryID == b.CategoryID {
				spent = spent.Add(tx.Amount)
			}
		}
		name := b.CategoryName
		if name == "" {
			name = unknownCategory
		}

		pct := models.PercentOf(spent, b.Amount)
		switch {
		case pct >= budgetExceedThreshold:
			cards = append(cards, models.InsightCard{
				Kind:  models.InsightBudgetExceeded,
				Title: name + " budget exceeded",
				Description: fmt.Sprintf("You've spent %s %s, %d%% over your %s %s budget",
					g.money.format(spent), g.currency, pct-100, g.money.format(b.Amount), g.currency),
				Amount:    ptrDec(spent),
				ChangePct: ptrInt(pct),
				Category:  name,
				Severity:  models.SeverityWarning,
			})
		case pct >= budgetWarningThreshold:
			cards = append(cards, models.InsightCard{
				Kind:  models.InsightBudgetWarning,
				Title: fmt.Sprintf("%s budget at %d%%", name, pct),
				Description: fmt.Sprintf("You've used %s of your %s %s budget",
					g.money.format(spent), g.money.format(b.Amount), g.currency),
				Amount:    ptrDec(spent),
				ChangePct: ptrInt(pct),
				Category:  name,
				Severity:  models.SeverityWarning,
			})
		}
	}
	return cards
}

func recurringDue(g *Generator, s snapshot) []models.InsightCard {
	var cards []models.InsightCard
	for _, p := range s.patterns {
		if p.LastSeen.IsZero() {
			continue
		}
		daysUntil := p.Frequency.ExpectedGapDays() - dateutils.DaysBetween(p.LastSeen, s.today)
		if daysUntil < 0 || daysUntil > recurringDueWindowDays {
			continue
		}
		cards = append(cards, models.InsightCard{
			Kind:  models.InsightRecurringDue,
			Title: p.Merchant + " payment due soon",
			Description: fmt.Sprintf("Expected %s charge of ~%s %s in %d day(s)",
				p.Frequency, g.money.format(p.AverageAmount), g.currency, daysUntil),
			Amount:   ptrDec(p.AverageAmount),
			Merchant: p.Merchant,
			Severity: models.SeverityInfo,
		})
	}
	return cards
}
