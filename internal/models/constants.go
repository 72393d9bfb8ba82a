package models

// TransactionKind is the direction of money movement relative to the account holder.
type TransactionKind string

const (
	KindDebit  TransactionKind = "debit"
	KindCredit TransactionKind = "credit"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	return k == KindDebit || k == KindCredit
}

// Frequency is the cadence of a recurring payment.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// ExpectedGapDays is the nominal number of days between two occurrences.
func (f Frequency) ExpectedGapDays() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyYearly:
		return 365
	default:
		return 30
	}
}

// Severity ranks insight cards. Lower Rank sorts first.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 0
	case SeverityInfo:
		return 1
	default:
		return 2
	}
}

// InsightKind identifies the rule that produced an insight card.
type InsightKind string

const (
	InsightNoActivity     InsightKind = "no_activity"
	InsightSpendingSpike  InsightKind = "spending_spike"
	InsightSpendingDown   InsightKind = "spending_down"
	InsightCategorySpike  InsightKind = "category_spike"
	InsightNewMerchants   InsightKind = "new_merchants"
	InsightBudgetExceeded InsightKind = "budget_exceeded"
	InsightBudgetWarning  InsightKind = "budget_warning"
	InsightRecurringDue   InsightKind = "recurring_due"
)

// ImportStatus is the lifecycle state of an import session.
type ImportStatus string

const (
	ImportPending   ImportStatus = "pending"
	ImportParsed    ImportStatus = "parsed"
	ImportConfirmed ImportStatus = "confirmed"
	ImportFailed    ImportStatus = "failed"
)

// ImportSource is where an import session's rows came from.
type ImportSource string

const (
	SourceCSV       ImportSource = "csv"
	SourceStatement ImportSource = "statement"
)

// AccountKind classifies a ledger account.
type AccountKind string

const (
	AccountCash AccountKind = "cash"
	AccountCard AccountKind = "card"
	AccountBank AccountKind = "bank"
)

// DefaultCurrency is applied to stored transactions when the account has none.
const DefaultCurrency = "MAD"

// DateLayout is the canonical calendar-date rendering.
const DateLayout = "2006-01-02"

// File permissions
const (
	PermissionDirectory = 0750
	PermissionDataFile  = 0600
)
