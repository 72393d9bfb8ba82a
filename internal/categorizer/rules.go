package categorizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
	"fjacquet/statement-ledger/internal/store"
)

const (
	MaxKeywordLength = 100
	MinPriority      = 0
	MaxPriority      = 100
	DefaultPriority  = 10
)

var (
	ErrRuleNotFound        = errors.New("rule not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrDefaultRuleReadOnly = errors.New("default rules cannot be modified")
	ErrInvalidRule         = errors.New("invalid rule")
)

// RuleUpdate carries optional changes to a user rule.
type RuleUpdate struct {
	Keyword  *string
	Priority *int
}

// Manager maintains a user's own categorization rules.
type Manager struct {
	repo   RuleRepository
	logger logging.Logger
}

func NewManager(repo RuleRepository, logger logging.Logger) *Manager {
	return &Manager{repo: repo, logger: logging.OrDefault(logger)}
}

// List returns the rules visible to the user in match order.
func (m *Manager) List(ctx context.Context, userID string) ([]models.CategorizationRule, error) {
	rules, err := m.repo.ListRules(ctx, userID)
	if err != nil {
		return nil, parsererror.Store("list rules", err)
	}
	return NewRuleSet(rules).Rules(), nil
}

// Add creates a rule owned by userID. A nil priority means DefaultPriority.
func (m *Manager) Add(ctx context.Context, userID, keyword, categoryID string, priority *int) (models.CategorizationRule, error) {
	keyword = strings.TrimSpace(keyword)
	if err := validateKeyword(keyword); err != nil {
		return models.CategorizationRule{}, err
	}
	p := DefaultPriority
	if priority != nil {
		p = *priority
	}
	if err := validatePriority(p); err != nil {
		return models.CategorizationRule{}, err
	}

	if _, err := m.repo.GetCategory(ctx, userID, categoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.CategorizationRule{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
		}
		return models.CategorizationRule{}, parsererror.Store("get category", err)
	}

	rule := models.CategorizationRule{
		ID:         uuid.NewString(),
		Keyword:    keyword,
		CategoryID: categoryID,
		Priority:   p,
		OwnerID:    userID,
	}
	if err := m.repo.CreateRule(ctx, rule); err != nil {
		return models.CategorizationRule{}, parsererror.Store("create rule", err)
	}

	m.logger.Info("Categorization rule created",
		logging.F(logging.FieldUserID, userID),
		logging.F("keyword", keyword),
		logging.F(logging.FieldCategory, categoryID))
	return rule, nil
}

// Update changes the keyword or priority of one of the user's rules.
func (m *Manager) Update(ctx context.Context, userID, ruleID string, upd RuleUpdate) (models.CategorizationRule, error) {
	rule, err := m.ownedRule(ctx, userID, ruleID)
	if err != nil {
		return models.CategorizationRule{}, err
	}

	if upd.Keyword != nil {
		kw := strings.TrimSpace(*upd.Keyword)
		if err := validateKeyword(kw); err != nil {
			return models.CategorizationRule{}, err
		}
		rule.Keyword = kw
	}
	if upd.Priority != nil {
		if err := validatePriority(*upd.Priority); err != nil {
			return models.CategorizationRule{}, err
		}
		rule.Priority = *upd.Priority
	}

	if err := m.repo.UpdateRule(ctx, rule); err != nil {
		return models.CategorizationRule{}, parsererror.Store("update rule", err)
	}
	return rule, nil
}

// Delete removes one of the user's rules.
func (m *Manager) Delete(ctx context.Context, userID, ruleID string) error {
	if _, err := m.ownedRule(ctx, userID, ruleID); err != nil {
		return err
	}
	if err := m.repo.DeleteRule(ctx, ruleID); err != nil {
		return parsererror.Store("delete rule", err)
	}
	m.logger.Info("Categorization rule deleted", logging.F(logging.FieldUserID, userID), logging.F("rule_id", ruleID))
	return nil
}

func (m *Manager) ownedRule(ctx context.Context, userID, ruleID string) (models.CategorizationRule, error) {
	rule, err := m.repo.GetRule(ctx, ruleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return rule, fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
		}
		return rule, parsererror.Store("get rule", err)
	}
	if rule.IsDefault() {
		return rule, fmt.Errorf("%w: %s", ErrDefaultRuleReadOnly, ruleID)
	}
	if rule.OwnerID != userID {
		return rule, fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
	}
	return rule, nil
}

func validateKeyword(kw string) error {
	n := utf8.RuneCountInString(kw)
	if n < 1 || n > MaxKeywordLength {
		return fmt.Errorf("%w: keyword must be 1-%d characters, got %d", ErrInvalidRule, MaxKeywordLength, n)
	}
	return nil
}

func validatePriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return fmt.Errorf("%w: priority must be between %d and %d, got %d", ErrInvalidRule, MinPriority, MaxPriority, p)
	}
	return nil
}
