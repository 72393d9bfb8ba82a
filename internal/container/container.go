// Package container wires the ledger's services from a Config.
// Every command builds one Container and closes it when done.
package container

import (
	"context"
	"fmt"
	"io"
	"time"

	"fjacquet/statement-ledger/internal/categorizer"
	"fjacquet/statement-ledger/internal/config"
	"fjacquet/statement-ledger/internal/filestore"
	"fjacquet/statement-ledger/internal/importer"
	"fjacquet/statement-ledger/internal/insights"
	"fjacquet/statement-ledger/internal/ledger"
	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/recurring"
	"fjacquet/statement-ledger/internal/statement"
	"fjacquet/statement-ledger/internal/store"
)

// Container holds all application dependencies.
//
// Container is immutable after creation: fields are private and only reachable
// through getters.
type Container struct {
	logger logging.Logger
	config *config.Config
	store  store.Repository
	files  filestore.FileStore

	statements *statement.Client
	engine     *categorizer.Engine
	rules      *categorizer.Manager
	importer   *importer.Service
	detector   *recurring.Detector
	insights   *insights.Generator
	ledger     *ledger.Service
}

// NewContainer creates and wires all application dependencies. The store is
// seeded with the default categories and rules on every call.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)

	repo, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	defaults, err := store.LoadDefaults(cfg.Rules.DefaultsFile)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	if err := store.SeedDefaults(ctx, repo, defaults, logger); err != nil {
		_ = repo.Close()
		return nil, err
	}

	files, err := filestore.New(ctx, filestore.Options{
		Driver:    cfg.FileStore.Driver,
		Directory: cfg.FileStore.Directory,
		Bucket:    cfg.FileStore.Bucket,
	}, logger)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}

	retry := statement.DefaultRetryConfig()
	retry.MaxRetries = cfg.Statement.MaxRetries
	statements := statement.NewClient(cfg.Statement.BaseURL,
		statement.WithTimeout(time.Duration(cfg.Statement.TimeoutSeconds)*time.Second),
		statement.WithRetryConfig(retry),
		statement.WithLogger(logger),
	)

	engine := categorizer.NewEngine(repo, logger)
	detector := recurring.NewDetector(repo, logger,
		recurring.WithLookbackMonths(cfg.Recurring.LookbackMonths))

	insightOpts := []insights.Option{
		insights.WithMaxCards(cfg.Insights.MaxCards),
		insights.WithCurrency(cfg.Insights.Currency),
		insights.WithLocale(cfg.Insights.Locale),
	}
	if cfg.Insights.RefreshRecurring {
		insightOpts = append(insightOpts, insights.WithPatternRefresh(detector))
	}

	c := &Container{
		logger:     logger,
		config:     cfg,
		store:      repo,
		files:      files,
		statements: statements,
		engine:     engine,
		rules:      categorizer.NewManager(repo, logger),
		importer: importer.NewService(repo, engine, files, statements, logger,
			importer.WithBatchSize(cfg.Import.BatchSize)),
		detector: detector,
		insights: insights.NewGenerator(repo, logger, insightOpts...),
		ledger:   ledger.NewService(repo, engine, logger),
	}

	logger.Debug("Container initialized",
		logging.F("store_driver", cfg.Store.Driver),
		logging.F("filestore_driver", cfg.FileStore.Driver))
	return c, nil
}

func openStore(cfg *config.Config) (store.Repository, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite", "":
		st, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the underlying repository. Commands use it for accounts and
// budgets, which have no service of their own.
func (c *Container) GetStore() store.Repository {
	return c.store
}

func (c *Container) GetFileStore() filestore.FileStore {
	return c.files
}

func (c *Container) GetCategorizer() *categorizer.Engine {
	return c.engine
}

func (c *Container) GetRuleManager() *categorizer.Manager {
	return c.rules
}

func (c *Container) GetImporter() *importer.Service {
	return c.importer
}

func (c *Container) GetDetector() *recurring.Detector {
	return c.detector
}

func (c *Container) GetInsights() *insights.Generator {
	return c.insights
}

func (c *Container) GetLedger() *ledger.Service {
	return c.ledger
}

// Close releases the store and, for remote drivers, the file store client.
func (c *Container) Close() error {
	var firstErr error
	if closer, ok := c.files.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			firstErr = err
		}
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.logger.Debug("Container closed")
	return firstErr
}
