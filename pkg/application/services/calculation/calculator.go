package calculation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/application/dto"
	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/domain/repositories"
	"github.com/vsinha/ordercalc/pkg/infrastructure/events"
	"github.com/vsinha/ordercalc/pkg/infrastructure/metrics"
)

// DefaultMaxDepth bounds BOM nesting. Real BOMs are far shallower; deeper
// structures are almost certainly malformed.
const DefaultMaxDepth = 64

// Options tune one calculation run
type Options struct {
	// IncludeConsumables counts consumable parts and consumable BOM lines.
	IncludeConsumables bool
	// ExcludeSuppliers drops order lines sourced from any of these suppliers.
	ExcludeSuppliers []string
	// ExcludeManufacturers drops order lines made by any of these manufacturers.
	ExcludeManufacturers []string
	// MaxDepth limits BOM nesting; 0 disables the guard.
	MaxDepth int
	// POChunkSize bounds ids per purchasing request.
	POChunkSize int
	// Events receives progress and warnings under the run id. Optional.
	Events events.EventStore
	// RunID identifies the run; generated when empty.
	RunID string
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		IncludeConsumables: true,
		MaxDepth:           DefaultMaxDepth,
		POChunkSize:        DefaultChunkSize,
	}
}

// Calculator turns target assemblies into an order list and a build list
type Calculator struct {
	gateway repositories.InventoryGateway
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewCalculator creates a calculator reading from gateway. logger and
// recorder may be nil.
func NewCalculator(gateway repositories.InventoryGateway, logger *zap.Logger, recorder *metrics.Recorder) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{gateway: gateway, logger: logger, metrics: recorder}
}

// Calculate runs the two-pass explosion for targets. Gateway failures degrade
// the result and are reported in its warnings; only a configuration problem
// or a cancelled context returns an error.
func (c *Calculator) Calculate(ctx context.Context, targets []entities.TargetRequest, opts Options) (result *dto.CalculationResult, err error) {
	startedAt := time.Now()

	if c.gateway == nil {
		return nil, &entities.ConfigurationError{Field: "gateway", Message: "no inventory gateway configured"}
	}
	if opts.MaxDepth < 0 {
		return nil, &entities.ConfigurationError{Field: "max_depth", Message: fmt.Sprintf("must not be negative, got %d", opts.MaxDepth)}
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	cache := NewPartCache(c.gateway, c.logger, c.metrics)
	run := newRunContext(runID, cache, opts, c.logger)

	run.publish(events.CalculationStartedEvent, events.CalculationStarted{RunID: runID, Targets: targets})
	run.logger.Info("calculation started", zap.Int("targets", len(targets)))

	defer func() {
		elapsed := time.Since(startedAt)
		if err != nil {
			c.metrics.ObserveCalculation(err, elapsed, 0, 0)
			run.publish(events.CalculationFailedEvent, events.CalculationFailed{Error: err.Error()})
			run.logger.Error("calculation failed", zap.Error(err), zap.Duration("duration", elapsed))
			return
		}
		result.Stats.Duration = elapsed
		c.metrics.ObserveCalculation(nil, elapsed, len(result.OrderLines), len(result.BuildLines))
		run.publish(events.CalculationCompletedEvent, events.CalculationCompleted{
			OrderLines: len(result.OrderLines),
			BuildLines: len(result.BuildLines),
			Duration:   elapsed,
		})
		run.logger.Info("calculation complete",
			zap.Int("order_lines", len(result.OrderLines)),
			zap.Int("build_lines", len(result.BuildLines)),
			zap.Int("warnings", len(result.Warnings)),
			zap.Duration("duration", elapsed))
	}()

	roots, err := c.validateTargets(ctx, run, targets)
	if err != nil {
		return nil, err
	}
	run.progress(events.StageValidate, 5, "Validated %d of %d targets", len(roots), len(targets))

	result = &dto.CalculationResult{
		RunID:      runID,
		OrderLines: []entities.OrderLine{},
		BuildLines: []entities.BuildLine{},
		Stats: dto.CalculationStats{
			Targets:        len(roots),
			SkippedTargets: len(targets) - len(roots),
			StartedAt:      startedAt,
		},
	}
	if len(roots) == 0 {
		result.Warnings = run.warnings
		run.progress(events.StageDone, 100, "No valid targets")
		return result, nil
	}

	rootIDs := make([]entities.PartID, 0, len(roots))
	for _, t := range roots {
		rootIDs = append(rootIDs, t.PartID)
	}

	// pass 1: gross requirements and the structure below every root
	for i, t := range roots {
		run.progress(events.StageGrossPass, 10+((i+1)*30)/len(roots),
			"Pass 1: calculating gross BOM for '%s' (%d/%d)", c.rootName(ctx, cache, t.PartID), i+1, len(roots))
		if err := run.resolve(ctx, t.PartID, t.PartID, t.Quantity, nil); err != nil {
			return nil, err
		}
	}
	grossSubTotals, subRoots := AggregateSubAssemblies(run.subDemand)

	run.progress(events.StageCommitments, 45, "Fetching 'required for order' data")
	if err := c.fetchCommitments(ctx, run, commitmentIDs(run, grossSubTotals, rootIDs)); err != nil {
		return nil, err
	}

	// pass 2: net requirements below sub-assembly shortfalls
	for i, t := range roots {
		run.progress(events.StageNetPass, 50+((i+1)*30)/len(roots),
			"Pass 2: calculating net BOM for '%s' (%d/%d)", c.rootName(ctx, cache, t.PartID), i+1, len(roots))
		if err := run.netRoot(ctx, t); err != nil {
			return nil, err
		}
	}
	if err := run.netSubAssemblies(ctx); err != nil {
		return nil, err
	}
	subTotals := Aggregate(run.netDemand)
	netTotals := Aggregate(run.net)

	run.progress(events.StagePartDetails, 85, "Fetching part details")
	parts := collectParts(cache, sortedKeys(netTotals), sortedKeys(subTotals), rootIDs)

	join := NewPOJoin(c.gateway, run.logger, c.metrics, opts.POChunkSize)
	orderIDs := sortedKeys(netTotals)
	for id, names := range join.SupplierNames(ctx, orderIDs) {
		if p, ok := parts[id]; ok {
			p.AddSuppliers(names...)
		}
	}

	run.progress(events.StageStock, 90, "Calculating stock levels")
	run.progress(events.StagePurchasing, 92, "Fetching purchase orders")
	purchaseOrders := join.FindOpenOrders(ctx, orderIDs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run.progress(events.StageFinalize, 95, "Finalizing results")
	result.OrderLines, result.BuildLines = Assemble(AssemblyInput{
		NetTotals:            netTotals,
		NetRoots:             Attribution(run.gross),
		SubTotals:            subTotals,
		SubRoots:             subRoots,
		Parts:                parts,
		Available:            run.availableStock,
		Commitments:          run.commitments,
		PurchaseOrders:       purchaseOrders,
		BOMConsumable:        run.bomConsumable,
		ExcludeSuppliers:     opts.ExcludeSuppliers,
		ExcludeManufacturers: opts.ExcludeManufacturers,
	})

	lookups, hits := cache.Stats()
	result.Warnings = run.warnings
	result.Stats.PartsSeen = len(run.encountered)
	result.Stats.CacheLookups = lookups
	result.Stats.CacheHits = hits

	run.progress(events.StageDone, 100, "Calculation complete")
	return result, nil
}

// validateTargets drops invalid and unresolvable targets and merges
// duplicates, keeping the order of first appearance
func (c *Calculator) validateTargets(ctx context.Context, run *runContext, targets []entities.TargetRequest) ([]entities.TargetRequest, error) {
	index := make(map[entities.PartID]int)
	valid := make([]entities.TargetRequest, 0, len(targets))

	for _, t := range targets {
		if err := t.Validate(); err != nil {
			run.warn(fmt.Sprintf("ignoring target: %v", err))
			continue
		}
		if i, ok := index[t.PartID]; ok {
			valid[i].Quantity = valid[i].Quantity.Add(t.Quantity)
			continue
		}
		if _, err := run.cache.Part(ctx, t.PartID); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			run.warn(fmt.Sprintf("ignoring target %d: part cannot be resolved", t.PartID), zap.Error(err))
			continue
		}
		index[t.PartID] = len(valid)
		valid = append(valid, t)
	}
	return valid, nil
}

// collectParts copies the details of every part that appears in the result
// from the run cache. Parts that could not be fetched are left out.
func collectParts(cache *PartCache, groups ...[]entities.PartID) map[entities.PartID]*entities.Part {
	known := cache.Known()
	parts := make(map[entities.PartID]*entities.Part)
	for _, ids := range groups {
		for _, id := range ids {
			if _, done := parts[id]; done {
				continue
			}
			part, ok := known[id]
			if !ok {
				continue
			}
			cp := *part
			cp.SupplierNames = append([]string(nil), part.SupplierNames...)
			parts[id] = &cp
		}
	}
	return parts
}

func (c *Calculator) rootName(ctx context.Context, cache *PartCache, id entities.PartID) string {
	part, err := cache.Part(ctx, id)
	if err != nil {
		return fmt.Sprintf("ID %d", id)
	}
	return part.DisplayName()
}

func sortedKeys(m map[entities.PartID]entities.Quantity) []entities.PartID {
	ids := make([]entities.PartID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	entities.SortPartIDs(ids)
	return ids
}
