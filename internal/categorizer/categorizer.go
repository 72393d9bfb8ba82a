// Package categorizer assigns categories to transaction text with keyword rules.
package categorizer

import (
	"context"
	"fmt"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/parsererror"
)

// Engine matches text against the rules visible to a user.
type Engine struct {
	source RuleSource
	logger logging.Logger
}

// NewEngine creates an Engine backed by source.
func NewEngine(source RuleSource, logger logging.Logger) *Engine {
	return &Engine{source: source, logger: logging.OrDefault(logger)}
}

// RuleSet loads and orders the user's candidate rules once, for callers matching many rows.
func (e *Engine) RuleSet(ctx context.Context, userID string) (*RuleSet, error) {
	rules, err := e.source.ListRules(ctx, userID)
	if err != nil {
		return nil, parsererror.Store("list rules", fmt.Errorf("user %s: %w", userID, err))
	}
	set := NewRuleSet(rules)
	e.logger.Debug("Loaded categorization rules",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldCount, set.Len()))
	return set, nil
}

// Match returns the category ID of the best rule for text. found is false when no rule matches.
func (e *Engine) Match(ctx context.Context, userID, text string) (categoryID string, found bool, err error) {
	set, err := e.RuleSet(ctx, userID)
	if err != nil {
		return "", false, err
	}
	rule, ok := set.Match(text)
	if !ok {
		return "", false, nil
	}
	e.logger.Debug("Text categorized by keyword rule",
		logging.F("keyword", rule.Keyword),
		logging.F(logging.FieldCategory, rule.CategoryID))
	return rule.CategoryID, true, nil
}
