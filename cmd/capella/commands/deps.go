package commands

import (
	"fmt"

	"github.com/capellaquant/capella/internal/alpha"
	"github.com/capellaquant/capella/internal/data"
	"github.com/capellaquant/capella/internal/engine"
	"github.com/capellaquant/capella/internal/external/screener"
	"github.com/capellaquant/capella/internal/portfolio"
	"github.com/capellaquant/capella/internal/strategyconfig"
	"github.com/capellaquant/capella/internal/universe"
	"github.com/capellaquant/capella/pkg/config"
	"github.com/capellaquant/capella/pkg/database"
	"github.com/capellaquant/capella/pkg/httputil"
	"github.com/capellaquant/capella/pkg/logger"
	"github.com/capellaquant/capella/pkg/redis"
)

// app bundles the dependencies most commands need.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *database.DB
	store      *data.PostgresStore
	strategy   *strategyconfig.Config
	configHash string
}

// initApp loads config, logging, the database store and the strategy.
func initApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	path := strategyFile
	if path == "" {
		path = cfg.StrategyFile
	}
	strategy, _, err := strategyconfig.Load(path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load strategy %s: %w", path, err)
	}
	for _, warning := range strategyconfig.Warn(strategy) {
		log.WithField("code", warning.Code).Warn(warning.Message)
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		store:      data.NewPostgresStore(db.Pool),
		strategy:   strategy,
		configHash: hash,
	}, nil
}

func (a *app) close() {
	a.db.Close()
}

// newEngine wires a fresh model chain against the app's store.
func (a *app) newEngine() *engine.Engine {
	sim := engine.NewSimulator(a.log)
	uni := universe.NewSmallCapsLowPE(a.strategy.UniverseConfig(), a.log)
	alphaModel := alpha.NewConstant(a.strategy.AlphaConfig(), a.log)
	port := portfolio.NewEqualWeighting(a.strategy.PortfolioConfig(), sim, a.log)

	return engine.NewEngine(a.store, uni, alphaModel, port, sim, a.log)
}

// newScreenerClient builds the rate-limited, cached screener client.
func (a *app) newScreenerClient() (*screener.Client, error) {
	redisClient, err := redis.New(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "capella")

	httpClient := httputil.New(a.log).
		WithRateLimit(a.cfg.Screener.RequestsPerSec).
		WithUserAgent("capella/1.0")

	client := screener.NewClient(a.cfg.Screener.BaseURL, httpClient, cache, a.log).
		WithCacheTTL(a.cfg.Screener.CacheTTL)
	return client, nil
}
