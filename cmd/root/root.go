// Package root contains the root command for the application
package root

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fjacquet/statement-ledger/internal/config"
	"fjacquet/statement-ledger/internal/container"
	"fjacquet/statement-ledger/internal/logging"
)

// CommonFlags represents the flags that are common to all commands
type CommonFlags struct {
	ConfigFile string
	UserID     string
	LogLevel   string
}

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// AppConfig and AppContainer are set by PersistentPreRunE. Tests may assign them directly.
	AppConfig    *config.Config
	AppContainer *container.Container

	SharedFlags = CommonFlags{}

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "ledger",
		Short: "Import bank statements into a personal ledger and explain the spending.",
		Long: `ledger imports CSV exports and PDF bank statements into a personal ledger.
Imported rows are previewed with duplicate detection and keyword categorization
before they are confirmed. The ledger also detects recurring charges and
produces monthly insight cards.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if AppContainer != nil {
				return nil
			}
			cfg, err := config.InitializeConfig(SharedFlags.ConfigFile)
			if err != nil {
				return err
			}
			if SharedFlags.LogLevel != "" {
				cfg.Log.Level = SharedFlags.LogLevel
			}
			configureLog(cfg)

			c, err := container.NewContainer(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			AppConfig = cfg
			AppContainer = c
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if AppContainer == nil {
				return
			}
			if err := AppContainer.Close(); err != nil {
				Log.Warnf("Failed to close resources: %v", err)
			}
			AppContainer = nil
		},
	}
)

// Init initializes the root command flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default: ./config.yaml or ~/.statement-ledger/config.yaml)")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.UserID, "user", "u", "", "User the command acts for (default: import.user_id)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Override the configured log level")
}

func configureLog(cfg *config.Config) {
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		Log.SetLevel(level)
	}
	if cfg.Log.Format == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}
}

// GetContainer returns the container built for the running command, or nil.
func GetContainer() *container.Container {
	return AppContainer
}

func GetConfig() *config.Config {
	return AppConfig
}

// GetLogrusAdapter wraps Log in the logging interface used by the services.
func GetLogrusAdapter() logging.Logger {
	return logging.NewLogrusAdapterFromLogger(Log)
}

// Services returns the running container, failing when the root pre-run has not built one.
func Services() (*container.Container, error) {
	if AppContainer == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	return AppContainer, nil
}

// UserID resolves the acting user from --user, then import.user_id.
func UserID() (string, error) {
	if SharedFlags.UserID != "" {
		return SharedFlags.UserID, nil
	}
	if AppConfig != nil && AppConfig.Import.UserID != "" {
		return AppConfig.Import.UserID, nil
	}
	return "", fmt.Errorf("no user: pass --user or set import.user_id")
}

// Context returns the command's context, or Background for commands run outside Execute.
func Context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
