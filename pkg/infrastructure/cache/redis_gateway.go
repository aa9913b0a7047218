// Package cache provides a Redis read-through layer in front of an inventory
// gateway, so repeated calculations share part and BOM lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/domain/repositories"
	"github.com/vsinha/ordercalc/pkg/infrastructure/metrics"
)

const (
	// DefaultTTL matches the refresh interval of part master data
	DefaultTTL = 10 * time.Minute
	// DefaultPrefix namespaces every key written by the cache
	DefaultPrefix = "ordercalc"

	layer = "redis"
)

// Gateway caches part details, BOMs and category listings in Redis. Stock
// commitments and purchasing data always go to the wrapped gateway. Redis
// failures are logged and the call falls through.
type Gateway struct {
	repositories.InventoryGateway

	client  *redis.Client
	ttl     time.Duration
	prefix  string
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// Verify interface compliance
var _ repositories.InventoryGateway = (*Gateway)(nil)

// NewGateway wraps next. A non-positive ttl uses DefaultTTL, an empty prefix
// DefaultPrefix.
func NewGateway(next repositories.InventoryGateway, client *redis.Client, ttl time.Duration, prefix string, logger *zap.Logger, recorder *metrics.Recorder) *Gateway {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		InventoryGateway: next,
		client:           client,
		ttl:              ttl,
		prefix:           prefix,
		logger:           logger.With(zap.String("component", "redis_cache")),
		metrics:          recorder,
	}
}

func (g *Gateway) key(kind string, id int) string {
	return fmt.Sprintf("%s:%s:%d", g.prefix, kind, id)
}

// GetPart returns the cached part or fetches and stores it
func (g *Gateway) GetPart(ctx context.Context, id entities.PartID) (*entities.Part, error) {
	key := g.key("part", int(id))
	var part entities.Part
	if g.getJSON(ctx, key, &part) {
		return &part, nil
	}

	fetched, err := g.InventoryGateway.GetPart(ctx, id)
	if err != nil {
		return nil, err
	}
	g.setJSON(ctx, key, fetched)
	return fetched, nil
}

// GetBOMLines returns the cached BOM or fetches and stores it
func (g *Gateway) GetBOMLines(ctx context.Context, assemblyID entities.PartID) ([]entities.BOMLine, error) {
	key := g.key("bom", int(assemblyID))
	var lines []entities.BOMLine
	if g.getJSON(ctx, key, &lines) {
		if lines == nil {
			lines = []entities.BOMLine{}
		}
		return lines, nil
	}

	fetched, err := g.InventoryGateway.GetBOMLines(ctx, assemblyID)
	if err != nil {
		return nil, err
	}
	g.setJSON(ctx, key, fetched)
	return fetched, nil
}

// GetPartsInCategory returns the cached listing or fetches and stores it
func (g *Gateway) GetPartsInCategory(ctx context.Context, categoryID int) ([]entities.PartSummary, error) {
	key := g.key("category", categoryID)
	var parts []entities.PartSummary
	if g.getJSON(ctx, key, &parts) {
		return parts, nil
	}

	fetched, err := g.InventoryGateway.GetPartsInCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	g.setJSON(ctx, key, fetched)
	return fetched, nil
}

// Flush removes every key under the cache prefix and returns how many were
// deleted
func (g *Gateway) Flush(ctx context.Context) (int, error) {
	var deleted int
	iter := g.client.Scan(ctx, 0, g.prefix+":*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			n, err := g.client.Del(ctx, batch...).Result()
			if err != nil {
				return deleted, fmt.Errorf("delete cache keys: %w", err)
			}
			deleted += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan cache keys: %w", err)
	}
	if len(batch) > 0 {
		n, err := g.client.Del(ctx, batch...).Result()
		if err != nil {
			return deleted, fmt.Errorf("delete cache keys: %w", err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

// getJSON reports whether key was found and decoded into dst
func (g *Gateway) getJSON(ctx context.Context, key string, dst any) bool {
	data, err := g.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			g.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		g.metrics.CacheLookup(layer, false)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		g.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		g.metrics.CacheLookup(layer, false)
		return false
	}
	g.metrics.CacheLookup(layer, true)
	return true
}

func (g *Gateway) setJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		g.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := g.client.Set(ctx, key, data, g.ttl).Err(); err != nil {
		g.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
