package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/internal/config"
	"github.com/vsinha/ordercalc/pkg/application/services/calculation"
	"github.com/vsinha/ordercalc/pkg/domain/repositories"
	"github.com/vsinha/ordercalc/pkg/infrastructure/cache"
	"github.com/vsinha/ordercalc/pkg/infrastructure/inventree"
	"github.com/vsinha/ordercalc/pkg/infrastructure/metrics"
	"github.com/vsinha/ordercalc/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/ordercalc/pkg/infrastructure/selections"
)

const redisPingTimeout = 2 * time.Second

// App carries what every subcommand shares once flags are parsed
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder

	closers []func() error
}

// NewApp builds the shared state for cfg
func NewApp(cfg *config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  metrics.NewRecorder("ordercalc", reg),
	}
}

// Gateway opens the configured inventory source, wrapped in the Redis cache
// when enabled. An unreachable Redis server disables the cache with a
// warning.
func (a *App) Gateway(ctx context.Context) (repositories.InventoryGateway, error) {
	var gw repositories.InventoryGateway

	switch a.Config.Source {
	case config.SourceCSV:
		loaded, err := csv.NewLoader().LoadGateway(a.Config.SnapshotDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		a.Logger.Info("loaded CSV snapshot",
			zap.String("dir", a.Config.SnapshotDir),
			zap.Int("parts", len(loaded.Parts())),
			zap.Int("bom_lines", len(loaded.BOMLines())))
		gw = loaded
	default:
		client, err := inventree.NewClient(inventree.Config{
			BaseURL:    a.Config.InvenTree.URL,
			Token:      a.Config.InvenTree.Token,
			Timeout:    a.Config.InvenTree.Timeout,
			MaxRetries: a.Config.InvenTree.MaxRetries,
			PageSize:   a.Config.InvenTree.PageSize,
		}, a.Logger, a.Metrics)
		if err != nil {
			return nil, err
		}
		gw = client
	}

	if !a.Config.Cache.Enabled {
		return gw, nil
	}
	cached, err := a.cachedGateway(ctx, gw)
	if err != nil {
		a.Logger.Warn("redis unavailable, running without cache",
			zap.String("addr", a.Config.Cache.RedisAddr), zap.Error(err))
		return gw, nil
	}
	return cached, nil
}

// CacheGateway returns the Redis cache layer itself, for maintenance
func (a *App) CacheGateway(ctx context.Context) (*cache.Gateway, error) {
	return a.cachedGateway(ctx, nil)
}

func (a *App) cachedGateway(ctx context.Context, next repositories.InventoryGateway) (*cache.Gateway, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Cache.RedisAddr,
		Password: a.Config.Cache.Password,
		DB:       a.Config.Cache.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.Config.Cache.RedisAddr, err)
	}
	a.closers = append(a.closers, client.Close)

	return cache.NewGateway(next, client, a.Config.Cache.TTL, a.Config.Cache.Prefix, a.Logger, a.Metrics), nil
}

// Calculator builds a calculator over gw
func (a *App) Calculator(gw repositories.InventoryGateway) *calculation.Calculator {
	return calculation.NewCalculator(gw, a.Logger, a.Metrics)
}

// Options returns the configured calculation defaults
func (a *App) Options() calculation.Options {
	opts := calculation.DefaultOptions()
	c := a.Config.Calculation
	opts.IncludeConsumables = c.IncludeConsumables
	opts.MaxDepth = c.MaxDepth
	if c.POChunkSize > 0 {
		opts.POChunkSize = c.POChunkSize
	}
	opts.ExcludeSuppliers = c.ExcludeSuppliers
	opts.ExcludeManufacturers = c.ExcludeManufacturers
	return opts
}

// Selections opens the saved selection store
func (a *App) Selections() *selections.YAMLStore {
	return selections.NewYAMLStore(a.Config.Selections.Path)
}

// Close releases connections opened by the app
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.Logger.Debug("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.Logger.Sync()
}
