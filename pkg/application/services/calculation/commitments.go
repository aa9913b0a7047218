package calculation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// fetchCommitments loads the quantity each part already owes to other open
// orders. A failed lookup counts as zero commitment.
func (c *Calculator) fetchCommitments(ctx context.Context, run *runContext, ids []entities.PartID) error {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, done := run.commitments[id]; done {
			continue
		}

		qty, err := c.gateway.GetRequiredForOrder(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			run.warn(fmt.Sprintf("required-for-order of part %d unavailable, assuming 0", id), zap.Error(err))
			qty = decimal.Zero
		}
		run.commitments[id] = qty
	}
	return nil
}

// commitmentIDs is every part whose commitment can influence the result:
// all parts seen in the gross pass, its sub-assemblies and the roots
func commitmentIDs(run *runContext, subTotals map[entities.PartID]entities.Quantity, roots []entities.PartID) []entities.PartID {
	seen := make(map[entities.PartID]bool)
	ids := make([]entities.PartID, 0, len(run.encountered)+len(subTotals)+len(roots))
	add := func(id entities.PartID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range run.encounteredIDs() {
		add(id)
	}
	for id := range subTotals {
		add(id)
	}
	for _, id := range roots {
		add(id)
	}
	entities.SortPartIDs(ids)
	return ids
}
