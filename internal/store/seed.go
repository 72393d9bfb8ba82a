package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
)

//go:embed default_rules.yaml
var builtinDefaults []byte

// DefaultsFile is the YAML layout of system categories and their keyword rules.
type DefaultsFile struct {
	Categories []DefaultCategory `yaml:"categories"`
}

// DefaultCategory is one system category with its rules. A rule without a priority gets 10.
type DefaultCategory struct {
	ID    string        `yaml:"id"`
	Name  string        `yaml:"name"`
	Rules []DefaultRule `yaml:"rules"`
}

type DefaultRule struct {
	Keyword  string `yaml:"keyword"`
	Priority *int   `yaml:"priority"`
}

// FindDefaultsFile resolves filename against the working directory, ./config and
// ~/.config/statement-ledger.
func FindDefaultsFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err != nil {
			return "", err
		}
		return filename, nil
	}

	locations := []string{filename, filepath.Join("config", filename)}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "statement-ledger", filename))
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}

// LoadDefaults reads system categories and rules from filename, or from the built-in set
// when filename is empty.
func LoadDefaults(filename string) (*DefaultsFile, error) {
	data := builtinDefaults
	if filename != "" {
		path, err := FindDefaultsFile(filename)
		if err != nil {
			return nil, fmt.Errorf("defaults file %s: %w", filename, err)
		}
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("error reading defaults file: %w", err)
		}
	}

	var defaults DefaultsFile
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, fmt.Errorf("error parsing defaults file: %w", err)
	}
	for _, c := range defaults.Categories {
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("defaults file: category needs both id and name (got id=%q name=%q)", c.ID, c.Name)
		}
	}
	return &defaults, nil
}

// SeedDefaults writes system categories and rules into rs. Rules already present are left
// untouched, so seeding on every start is safe.
func SeedDefaults(ctx context.Context, rs RuleStore, defaults *DefaultsFile, logger logging.Logger) error {
	logger = logging.OrDefault(logger)
	created := 0
	for _, c := range defaults.Categories {
		if err := rs.CreateCategory(ctx, models.Category{ID: c.ID, Name: c.Name}); err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
		for _, r := range c.Rules {
			rule := models.CategorizationRule{
				ID:         "default:" + c.ID + ":" + r.Keyword,
				Keyword:    r.Keyword,
				CategoryID: c.ID,
				Priority:   10,
			}
			if r.Priority != nil {
				rule.Priority = *r.Priority
			}

			_, err := rs.GetRule(ctx, rule.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("seed rule %s: %w", rule.ID, err)
			}
			if err := rs.CreateRule(ctx, rule); err != nil {
				return fmt.Errorf("seed rule %s: %w", rule.ID, err)
			}
			created++
		}
	}
	logger.Debug("Seeded default categorization rules", logging.F(logging.FieldCount, created))
	return nil
}
