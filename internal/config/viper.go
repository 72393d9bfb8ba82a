// Package config provides Viper-based hierarchical configuration management.
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Store struct {
		Driver string `mapstructure:"driver" yaml:"driver"`
		Path   string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"store" yaml:"store"`

	Rules struct {
		DefaultsFile string `mapstructure:"defaults_file" yaml:"defaults_file"`
	} `mapstructure:"rules" yaml:"rules"`

	Import struct {
		BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"`
		UserID    string `mapstructure:"user_id" yaml:"user_id"`
	} `mapstructure:"import" yaml:"import"`

	Statement struct {
		BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
	} `mapstructure:"statement" yaml:"statement"`

	FileStore struct {
		Driver    string `mapstructure:"driver" yaml:"driver"`
		Directory string `mapstructure:"directory" yaml:"directory"`
		Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	} `mapstructure:"filestore" yaml:"filestore"`

	Recurring struct {
		LookbackMonths int `mapstructure:"lookback_months" yaml:"lookback_months"`
	} `mapstructure:"recurring" yaml:"recurring"`

	Insights struct {
		MaxCards         int    `mapstructure:"max_cards" yaml:"max_cards"`
		RefreshRecurring bool   `mapstructure:"refresh_recurring" yaml:"refresh_recurring"`
		Currency         string `mapstructure:"currency" yaml:"currency"`
		Locale           string `mapstructure:"locale" yaml:"locale"`
	} `mapstructure:"insights" yaml:"insights"`
}

// InitializeConfig loads defaults, then the config file (configFile when set, otherwise
// config.yaml from the usual locations), then LEDGER_* environment variables.
func InitializeConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.statement-ledger")
		v.AddConfigPath(".statement-ledger")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Defaults always decode.
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "ledger.db")

	v.SetDefault("rules.defaults_file", "")

	v.SetDefault("import.batch_size", 50)
	v.SetDefault("import.user_id", "")

	v.SetDefault("statement.base_url", "http://localhost:8000")
	v.SetDefault("statement.timeout_seconds", 60)
	v.SetDefault("statement.max_retries", 2)

	v.SetDefault("filestore.driver", "local")
	v.SetDefault("filestore.directory", "statements")
	v.SetDefault("filestore.bucket", "")

	v.SetDefault("recurring.lookback_months", 13)

	v.SetDefault("insights.max_cards", 6)
	v.SetDefault("insights.refresh_recurring", false)
	v.SetDefault("insights.currency", "MAD")
	v.SetDefault("insights.locale", "fr-MA")
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	switch config.Store.Driver {
	case "sqlite":
		if config.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid store driver: %s (must be 'sqlite' or 'memory')", config.Store.Driver)
	}

	if config.Import.BatchSize < 1 || config.Import.BatchSize > 1000 {
		return fmt.Errorf("import.batch_size must be between 1 and 1000, got: %d", config.Import.BatchSize)
	}

	if config.Statement.TimeoutSeconds < 1 || config.Statement.TimeoutSeconds > 600 {
		return fmt.Errorf("statement.timeout_seconds must be between 1 and 600, got: %d", config.Statement.TimeoutSeconds)
	}

	if config.Statement.MaxRetries < 0 || config.Statement.MaxRetries > 10 {
		return fmt.Errorf("statement.max_retries must be between 0 and 10, got: %d", config.Statement.MaxRetries)
	}

	switch config.FileStore.Driver {
	case "local":
		if config.FileStore.Directory == "" {
			return fmt.Errorf("filestore.directory is required for the local driver")
		}
	case "gcs":
		if config.FileStore.Bucket == "" {
			return fmt.Errorf("filestore.bucket is required for the gcs driver")
		}
	default:
		return fmt.Errorf("invalid filestore driver: %s (must be 'local' or 'gcs')", config.FileStore.Driver)
	}

	if config.Recurring.LookbackMonths < 1 {
		return fmt.Errorf("recurring.lookback_months must be positive, got: %d", config.Recurring.LookbackMonths)
	}

	if config.Insights.MaxCards < 1 {
		return fmt.Errorf("insights.max_cards must be positive, got: %d", config.Insights.MaxCards)
	}

	return nil
}
