package calculation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

func TestAggregate(t *testing.T) {
	m := entities.NewRequirementMap()
	m.Add(1, 10, entities.Qty(4))
	m.Add(2, 10, entities.QtyFromFloat(1.5))
	m.Add(2, 11, entities.Qty(3))

	totals := Aggregate(m)

	assert.Equal(t, "5.5", totals[10].String())
	assert.Equal(t, "3", totals[11].String())
	assert.Len(t, totals, 2)
}

func TestAggregateSubAssemblies(t *testing.T) {
	d := entities.NewRequirementMap()
	d.Add(2, 20, entities.Qty(5))
	d.Add(1, 20, entities.Qty(5))
	d.Add(1, 21, entities.Qty(1))

	totals, roots := AggregateSubAssemblies(d)

	assert.Equal(t, "10", totals[20].String())
	assert.Equal(t, []entities.PartID{1, 2}, roots[20])
	assert.Equal(t, []entities.PartID{1}, roots[21])
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(entities.NewRequirementMap()))
	assert.Empty(t, Attribution(entities.NewRequirementMap()))
}
