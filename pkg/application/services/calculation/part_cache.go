package calculation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/domain/repositories"
	"github.com/vsinha/ordercalc/pkg/infrastructure/metrics"
)

// PartCache memoizes part and BOM lookups for the lifetime of one run, so both
// passes and the assembler see the same snapshot. Failures are memoized too:
// a part that could not be fetched stays missing for the rest of the run.
type PartCache struct {
	gateway repositories.PartRepository
	logger  *zap.Logger
	metrics *metrics.Recorder

	mu      sync.Mutex
	parts   map[entities.PartID]partEntry
	boms    map[entities.PartID]bomEntry
	lookups int
	hits    int
}

type partEntry struct {
	part *entities.Part
	err  error
}

type bomEntry struct {
	lines []entities.BOMLine
	err   error
}

// NewPartCache creates an empty per-run cache over gateway
func NewPartCache(gateway repositories.PartRepository, logger *zap.Logger, recorder *metrics.Recorder) *PartCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartCache{
		gateway: gateway,
		logger:  logger,
		metrics: recorder,
		parts:   make(map[entities.PartID]partEntry),
		boms:    make(map[entities.PartID]bomEntry),
	}
}

// Part returns the part snapshot. The returned value is shared; callers must
// not modify it.
func (c *PartCache) Part(ctx context.Context, id entities.PartID) (*entities.Part, error) {
	c.mu.Lock()
	c.lookups++
	if entry, ok := c.parts[id]; ok {
		c.hits++
		c.mu.Unlock()
		c.metrics.CacheLookup("run", true)
		return entry.part, entry.err
	}
	c.mu.Unlock()
	c.metrics.CacheLookup("run", false)

	part, err := c.gateway.GetPart(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			// do not poison the cache with a cancellation
			return nil, err
		}
		c.logger.Warn("failed to fetch part", zap.Int("part_id", int(id)), zap.Error(err))
		part = nil
	}

	c.mu.Lock()
	c.parts[id] = partEntry{part: part, err: err}
	c.mu.Unlock()
	return part, err
}

// BOMLines returns the direct BOM lines of an assembly
func (c *PartCache) BOMLines(ctx context.Context, id entities.PartID) ([]entities.BOMLine, error) {
	c.mu.Lock()
	c.lookups++
	if entry, ok := c.boms[id]; ok {
		c.hits++
		c.mu.Unlock()
		c.metrics.CacheLookup("run", true)
		return entry.lines, entry.err
	}
	c.mu.Unlock()
	c.metrics.CacheLookup("run", false)

	lines, err := c.gateway.GetBOMLines(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Warn("failed to fetch BOM", zap.Int("part_id", int(id)), zap.Error(err))
		lines = nil
	}

	c.mu.Lock()
	c.boms[id] = bomEntry{lines: lines, err: err}
	c.mu.Unlock()
	return lines, err
}

// Known returns every successfully fetched part keyed by id
func (c *PartCache) Known() map[entities.PartID]*entities.Part {
	c.mu.Lock()
	defer c.mu.Unlock()
	known := make(map[entities.PartID]*entities.Part, len(c.parts))
	for id, entry := range c.parts {
		if entry.part != nil {
			known[id] = entry.part
		}
	}
	return known
}

// Stats returns the number of lookups and how many were served from memory
func (c *PartCache) Stats() (lookups, hits int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups, c.hits
}
