// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smishguard/api/schemas"
	"github.com/xkilldash9x/smishguard/internal/analyzer"
	"github.com/xkilldash9x/smishguard/internal/classifier"
	"github.com/xkilldash9x/smishguard/internal/config"
	"github.com/xkilldash9x/smishguard/internal/network"
	"github.com/xkilldash9x/smishguard/internal/reputation"
	"github.com/xkilldash9x/smishguard/internal/server"
	"github.com/xkilldash9x/smishguard/internal/store"
	"github.com/xkilldash9x/smishguard/internal/urlextract"
)

// components holds the initialized pipeline and its optional history store.
type components struct {
	Analyzer   *analyzer.Analyzer
	Checker    *reputation.Checker
	Classifier *classifier.Classifier
	Store      *store.Store
	DBPool     *pgxpool.Pool
}

// Shutdown releases every resource held by the components.
func (c *components) Shutdown() {
	if c.DBPool != nil {
		c.DBPool.Close()
	}
}

// Health snapshots stage readiness for the health endpoint.
func (c *components) Health() server.Health {
	h := server.Health{
		Status:               "healthy",
		Version:              Version,
		ReputationConfigured: c.Checker.Configured(),
		ModelLoaded:          c.Classifier.IsLoaded(),
	}
	if h.ModelLoaded {
		meta := c.Classifier.Metadata()
		h.Model = &meta
	}
	return h
}

// reportStore returns the store as the interface, keeping a nil *Store nil.
func (c *components) reportStore() schemas.ReportStore {
	if c.Store == nil {
		return nil
	}
	return c.Store
}

// storeConnector opens the report history store. Tests replace it.
type storeConnector func(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.Store, *pgxpool.Pool, error)

var connectStore storeConnector = defaultConnectStore

func defaultConnectStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.Store, *pgxpool.Pool, error) {
	pool, err := store.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Migrate {
		if err := store.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize report store: %w", err)
	}
	return s, pool, nil
}

// initializeComponents wires the pipeline explicitly from configuration.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{}

	// 1. Outbound HTTP
	clientCfg, err := network.ClientConfigFromNetwork(cfg.Network, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure http client: %w", err)
	}
	oracleHTTP := network.NewClient(clientCfg)

	// 2. Reputation stage
	oracle, err := reputation.NewClient(reputation.ClientOptionsFromConfig(cfg.Reputation), oracleHTTP, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reputation client: %w", err)
	}
	cache := reputation.NewCache(cfg.Reputation.CacheTTL, nil)
	checker, err := reputation.NewChecker(oracle, cache, reputation.OptionsFromConfig(cfg.Reputation), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reputation checker: %w", err)
	}
	if !checker.Configured() {
		logger.Warn("Reputation API key is not set (SMISHGUARD_REPUTATION_API_KEY). Every lookup will be reported as unavailable.")
	}
	c.Checker = checker

	// 3. Classifier stage
	var model *classifier.Classifier
	if cfg.Classifier.Enabled {
		model = classifier.Load(cfg.Classifier.ModelDir, logger)
	} else {
		logger.Info("Local classifier disabled by configuration.")
		model = classifier.NewUnloaded(logger)
	}
	c.Classifier = model.WithConcurrency(cfg.Engine.WorkerConcurrency)

	// 4. Optional report history
	opts := analyzer.Options{Timeout: cfg.Engine.AnalysisTimeout}
	if cfg.Database.URL != "" {
		s, pool, err := connectStore(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		c.Store, c.DBPool = s, pool
		opts.Store = s
		logger.Info("Report history enabled.")
	}

	// 5. Optional short URL expansion
	if cfg.Extractor.ExpandShorteners {
		expandCfg := *clientCfg
		expandCfg.FollowRedirects = true
		opts.Expander = urlextract.NewExpander(network.NewClient(&expandCfg), cfg.Extractor.ExpandTimeout, logger)
	}

	// 6. Orchestrator
	a, err := analyzer.New(urlextract.NewExtractor(logger), c.Checker, c.Classifier, opts, logger)
	if err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}
	c.Analyzer = a
	return c, nil
}
