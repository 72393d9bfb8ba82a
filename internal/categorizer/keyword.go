package categorizer

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fjacquet/statement-ledger/internal/models"
)

// RuleSet is a user's candidate rules in match order. It is immutable and safe to share.
type RuleSet struct {
	rules   []models.CategorizationRule
	lowered []string
}

// NewRuleSet orders rules by priority (highest first), then user rules before system
// defaults, then by lower-cased keyword and finally by ID, so equal rules always resolve
// the same way regardless of store order.
func NewRuleSet(rules []models.CategorizationRule) *RuleSet {
	type entry struct {
		rule    models.CategorizationRule
		lowered string
	}

	lower := cases.Lower(language.Und)
	entries := make([]entry, 0, len(rules))
	for _, r := range rules {
		if k := lower.String(strings.TrimSpace(r.Keyword)); k != "" {
			entries = append(entries, entry{rule: r, lowered: k})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.rule.Priority != b.rule.Priority {
			return a.rule.Priority > b.rule.Priority
		}
		if a.rule.IsDefault() != b.rule.IsDefault() {
			return !a.rule.IsDefault()
		}
		if a.lowered != b.lowered {
			return a.lowered < b.lowered
		}
		return a.rule.ID < b.rule.ID
	})

	set := &RuleSet{
		rules:   make([]models.CategorizationRule, len(entries)),
		lowered: make([]string, len(entries)),
	}
	for i, e := range entries {
		set.rules[i] = e.rule
		set.lowered[i] = e.lowered
	}
	return set
}

// Match returns the category of the first rule whose keyword occurs in text, ignoring case.
// Both sides are lower-cased rather than folded, so "ss" does not match "ß".
func (s *RuleSet) Match(text string) (models.CategorizationRule, bool) {
	if s == nil || len(s.rules) == 0 {
		return models.CategorizationRule{}, false
	}
	haystack := cases.Lower(language.Und).String(text)
	for i, kw := range s.lowered {
		if strings.Contains(haystack, kw) {
			return s.rules[i], true
		}
	}
	return models.CategorizationRule{}, false
}

// Rules returns the ordered rules.
func (s *RuleSet) Rules() []models.CategorizationRule {
	out := make([]models.CategorizationRule, len(s.rules))
	copy(out, s.rules)
	return out
}

func (s *RuleSet) Len() int { return len(s.rules) }
