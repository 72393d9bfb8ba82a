package categorizer

import (
	"context"

	"fjacquet/statement-ledger/internal/models"
)

// RuleSource lists the rules visible to a user: every system default plus the user's own.
type RuleSource interface {
	ListRules(ctx context.Context, userID string) ([]models.CategorizationRule, error)
}

// RuleRepository adds the write side used for rule management.
type RuleRepository interface {
	RuleSource
	GetRule(ctx context.Context, id string) (models.CategorizationRule, error)
	CreateRule(ctx context.Context, rule models.CategorizationRule) error
	UpdateRule(ctx context.Context, rule models.CategorizationRule) error
	DeleteRule(ctx context.Context, id string) error
	GetCategory(ctx context.Context, userID, id string) (models.Category, error)
}
