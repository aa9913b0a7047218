package calculation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// resolve is the gross pass. It explodes qty units of partID below root with
// no regard to stock and records leaf requirements, sub-assembly demand and
// the links the net pass replays. path holds the assemblies currently being
// expanded and is used for cycle detection.
//
// Fetch failures degrade: the affected part or BOM is skipped with a warning.
// Only context cancellation is returned as an error.
func (r *runContext) resolve(ctx context.Context, root, partID entities.PartID, qty entities.Quantity, path []entities.PartID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.encounter(partID)

	part, err := r.cache.Part(ctx, partID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.warn(fmt.Sprintf("skipping part %d: details unavailable", partID), zap.Error(err))
		return nil
	}

	if !part.IsAssembly {
		r.addLeaf(ModeGross, root, part, qty, false)
		return nil
	}

	if r.opts.MaxDepth > 0 && len(path) >= r.opts.MaxDepth {
		r.warn(fmt.Sprintf("skipping BOM of part %d: %v at depth %d", partID, entities.ErrDepthExceeded, len(path)))
		return nil
	}

	lines, err := r.cache.BOMLines(ctx, partID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.warn(fmt.Sprintf("skipping BOM of assembly %d: lines unavailable", partID), zap.Error(err))
		return nil
	}
	r.expanded[partID] = true

	r.logger.Debug("expanding assembly",
		zap.String("mode", ModeGross.String()),
		zap.Int("part_id", int(partID)),
		zap.String("name", part.Name),
		zap.String("quantity", qty.String()))

	path = append(path, partID)
	for _, line := range lines {
		if err := r.resolveLine(ctx, root, line, qty, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *runContext) resolveLine(ctx context.Context, root entities.PartID, line entities.BOMLine, parentQty entities.Quantity, path []entities.PartID) error {
	subID := line.SubPartID
	r.encounter(subID)

	lineNeed := parentQty.Mul(line.QuantityPer)

	sub, err := r.cache.Part(ctx, subID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.warn(fmt.Sprintf("skipping sub part %d in BOM of %d: details unavailable", subID, line.ParentID), zap.Error(err))
		return nil
	}

	if line.AllowVariants {
		r.variantsAllowed[subID] = true
	}

	// a template that must not be substituted is ordered as itself, even
	// when it is an assembly
	if orderedAsLeaf(sub, line) {
		if sub.IsTemplate && !line.AllowVariants {
			r.templateOnly[subID] = true
		}
		r.addLeaf(ModeGross, root, sub, lineNeed, line.Consumable)
		return nil
	}

	if containsPart(path, subID) {
		r.warn(fmt.Sprintf("skipping sub assembly %d in BOM of %d: %v", subID, line.ParentID, entities.ErrCycleDetected),
			zap.Any("path", path))
		return nil
	}

	r.subDemand.Add(root, subID, lineNeed)
	r.link(line.ParentID, subID)
	return r.resolve(ctx, root, subID, lineNeed, path)
}

// netRoot starts the net pass for one target. Roots are never netted against
// their own stock: the full target quantity is exploded.
func (r *runContext) netRoot(ctx context.Context, t entities.TargetRequest) error {
	part, err := r.cache.Part(ctx, t.PartID)
	if err != nil {
		return ctx.Err()
	}
	if !part.IsAssembly {
		r.addLeaf(ModeNet, t.PartID, part, t.Quantity, false)
		return nil
	}
	return r.expand(ctx, t.PartID, t.PartID, t.Quantity)
}

// netSubAssemblies nets every sub-assembly the gross pass found, parents
// before children, so each one sees its complete demand over all roots
// before its shortfall is exploded
func (r *runContext) netSubAssemblies(ctx context.Context) error {
	for _, id := range r.netOrder() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.netSubAssembly(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *runContext) netSubAssembly(ctx context.Context, id entities.PartID) error {
	r.netted[id] = true

	sub, err := r.cache.Part(ctx, id)
	if err != nil {
		return ctx.Err()
	}

	roots := r.netDemand.Roots()
	demand := decimal.Zero
	for _, root := range roots {
		demand = demand.Add(r.netDemand.Get(root, id))
	}
	covered := r.availableStock(sub).Sub(r.commitment(id)).Add(sub.Building)
	toBuild := entities.ClampZero(demand.Sub(covered))

	r.logger.Debug("sub assembly",
		zap.String("mode", ModeNet.String()),
		zap.Int("part_id", int(id)),
		zap.String("need", demand.String()),
		zap.String("to_build", toBuild.String()))

	if !toBuild.IsPositive() {
		return nil
	}

	// split the shortfall over the roots; earlier roots draw on stock first
	remaining := covered
	for _, root := range roots {
		need := r.netDemand.Get(root, id)
		if !need.IsPositive() {
			continue
		}
		share := entities.ClampZero(need.Sub(remaining))
		remaining = entities.ClampZero(remaining.Sub(need))
		if !share.IsPositive() {
			continue
		}
		if err := r.expand(ctx, root, id, share); err != nil {
			return err
		}
	}
	return nil
}

// expand explodes qty units of an assembly the gross pass expanded. Leaves
// are recorded directly; sub-assemblies only collect demand and are netted
// later by netSubAssemblies.
func (r *runContext) expand(ctx context.Context, root, assemblyID entities.PartID, qty entities.Quantity) error {
	if !r.expanded[assemblyID] {
		return nil
	}
	lines, err := r.cache.BOMLines(ctx, assemblyID)
	if err != nil {
		return ctx.Err()
	}

	for _, line := range lines {
		subID := line.SubPartID
		sub, err := r.cache.Part(ctx, subID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if line.Consumable {
			r.bomConsumable[subID] = true
		}
		lineNeed := qty.Mul(line.QuantityPer)

		switch {
		case orderedAsLeaf(sub, line):
			r.addLeaf(ModeNet, root, sub, lineNeed, line.Consumable)
		case !r.linked(assemblyID, subID):
			// cut by the gross pass as a cycle
		case r.netted[subID]:
			r.warn(fmt.Sprintf("dropping demand for sub assembly %d from %d: %v", subID, assemblyID, entities.ErrCycleDetected))
		default:
			r.netDemand.Add(root, subID, lineNeed)
		}
	}
	return nil
}

// netOrder sorts the sub-assemblies of the gross pass so that every parent
// comes before its children. Parts on a cycle follow in id order.
func (r *runContext) netOrder() []entities.PartID {
	nodes := make(map[entities.PartID]bool)
	for _, parts := range r.subDemand {
		for id := range parts {
			nodes[id] = true
		}
	}

	indegree := make(map[entities.PartID]int, len(nodes))
	for parent, subs := range r.links {
		if !nodes[parent] {
			continue
		}
		for sub := range subs {
			indegree[sub]++
		}
	}

	ready := make([]entities.PartID, 0, len(nodes))
	for id := range nodes {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]entities.PartID, 0, len(nodes))
	placed := make(map[entities.PartID]bool, len(nodes))
	for len(ready) > 0 {
		entities.SortPartIDs(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		placed[id] = true
		for sub := range r.links[id] {
			indegree[sub]--
			if indegree[sub] == 0 {
				ready = append(ready, sub)
			}
		}
	}

	if len(order) < len(nodes) {
		rest := make([]entities.PartID, 0, len(nodes)-len(order))
		for id := range nodes {
			if !placed[id] {
				rest = append(rest, id)
			}
		}
		entities.SortPartIDs(rest)
		order = append(order, rest...)
	}
	return order
}

// orderedAsLeaf reports whether a BOM line ends the explosion: base
// components, and templates whose variants may not be substituted
func orderedAsLeaf(sub *entities.Part, line entities.BOMLine) bool {
	return !sub.IsAssembly || (sub.IsTemplate && !line.AllowVariants)
}

// addLeaf records a terminal requirement. Consumables contribute nothing
// when they are excluded.
func (r *runContext) addLeaf(mode Mode, root entities.PartID, part *entities.Part, qty entities.Quantity, lineConsumable bool) {
	if !r.opts.IncludeConsumables && (part.Consumable || lineConsumable) {
		r.logger.Debug("ignoring consumable", zap.Int("part_id", int(part.ID)))
		return
	}
	if mode == ModeGross {
		r.gross.Add(root, part.ID, qty)
		return
	}
	r.net.Add(root, part.ID, qty)
}

func containsPart(path []entities.PartID, id entities.PartID) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}
