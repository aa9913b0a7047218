package calculation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/infrastructure/events"
)

// Mode selects which BOM pass is running
type Mode int

const (
	// ModeGross explodes full demand and records the BOM structure
	ModeGross Mode = iota
	// ModeNet explodes only what sub-assembly stock cannot cover
	ModeNet
)

// String method for Mode enum
func (m Mode) String() string {
	switch m {
	case ModeGross:
		return "gross"
	case ModeNet:
		return "net"
	default:
		return "unknown"
	}
}

// runContext owns every accumulator of one calculation run. Nothing in it is
// shared between runs.
type runContext struct {
	id     string
	logger *zap.Logger
	cache  *PartCache
	opts   Options
	events events.EventStore

	gross     entities.RequirementMap
	net       entities.RequirementMap
	subDemand entities.SubAssemblyDemand
	netDemand entities.SubAssemblyDemand

	templateOnly    map[entities.PartID]bool
	variantsAllowed map[entities.PartID]bool
	bomConsumable   map[entities.PartID]bool
	encountered     map[entities.PartID]struct{}

	// structure found by the gross pass and replayed by the net pass
	expanded map[entities.PartID]bool
	links    map[entities.PartID]map[entities.PartID]bool

	commitments map[entities.PartID]entities.Quantity
	netted      map[entities.PartID]bool

	warnings []string
}

func newRunContext(id string, cache *PartCache, opts Options, logger *zap.Logger) *runContext {
	return &runContext{
		id:              id,
		logger:          logger.With(zap.String("run_id", id)),
		cache:           cache,
		opts:            opts,
		events:          opts.Events,
		gross:           entities.NewRequirementMap(),
		net:             entities.NewRequirementMap(),
		subDemand:       entities.NewRequirementMap(),
		netDemand:       entities.NewRequirementMap(),
		templateOnly:    make(map[entities.PartID]bool),
		variantsAllowed: make(map[entities.PartID]bool),
		bomConsumable:   make(map[entities.PartID]bool),
		encountered:     make(map[entities.PartID]struct{}),
		expanded:        make(map[entities.PartID]bool),
		links:           make(map[entities.PartID]map[entities.PartID]bool),
		commitments:     make(map[entities.PartID]entities.Quantity),
		netted:          make(map[entities.PartID]bool),
	}
}

// availableStock is the stock that may be used for a part in this run.
// Variant stock is pooled for templates and for parts some BOM line accepts
// variants of, unless a line required the template itself.
func (r *runContext) availableStock(p *entities.Part) entities.Quantity {
	if r.templateOnly[p.ID] {
		return p.InStock
	}
	if p.IsTemplate || r.variantsAllowed[p.ID] {
		return p.InStock.Add(p.VariantStock)
	}
	return p.InStock
}

// link records that the gross pass descended from parent into sub
func (r *runContext) link(parent, sub entities.PartID) {
	subs, ok := r.links[parent]
	if !ok {
		subs = make(map[entities.PartID]bool)
		r.links[parent] = subs
	}
	subs[sub] = true
}

func (r *runContext) linked(parent, sub entities.PartID) bool {
	return r.links[parent][sub]
}

// commitment returns the external commitment for a part, zero when unknown
func (r *runContext) commitment(id entities.PartID) entities.Quantity {
	if q, ok := r.commitments[id]; ok {
		return q
	}
	return decimal.Zero
}

func (r *runContext) encounter(id entities.PartID) {
	r.encountered[id] = struct{}{}
}

// encounteredIDs returns every part id seen so far, ascending
func (r *runContext) encounteredIDs() []entities.PartID {
	ids := make([]entities.PartID, 0, len(r.encountered))
	for id := range r.encountered {
		ids = append(ids, id)
	}
	entities.SortPartIDs(ids)
	return ids
}

// warn logs a degradation and keeps it for the result
func (r *runContext) warn(msg string, fields ...zap.Field) {
	r.logger.Warn(msg, fields...)
	r.warnings = append(r.warnings, msg)
	r.publish(events.WarningRaisedEvent, events.WarningRaised{Message: msg})
}

func (r *runContext) progress(stage events.Stage, percent int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Debug("progress", zap.String("stage", string(stage)), zap.Int("percent", percent), zap.String("message", msg))
	r.publish(events.ProgressUpdatedEvent, events.ProgressUpdated{Stage: stage, Percent: percent, Message: msg})
}

func (r *runContext) publish(eventType string, data interface{}) {
	if r.events == nil {
		return
	}
	if err := r.events.AppendEvent(r.id, events.NewEvent(eventType, r.id, data)); err != nil {
		r.logger.Debug("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
