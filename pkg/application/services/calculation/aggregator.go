package calculation

import (
	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// Aggregate sums a requirement map over its roots
func Aggregate(m entities.RequirementMap) map[entities.PartID]entities.Quantity {
	totals := make(map[entities.PartID]entities.Quantity)
	for _, parts := range m {
		for id, qty := range parts {
			totals[id] = totals[id].Add(qty)
		}
	}
	return totals
}

// AggregateSubAssemblies sums sub-assembly demand over roots and records
// which roots need each sub-assembly
func AggregateSubAssemblies(d entities.SubAssemblyDemand) (map[entities.PartID]entities.Quantity, map[entities.PartID][]entities.PartID) {
	return Aggregate(d), Attribution(d)
}

// Attribution maps each part to the roots whose requirements include it,
// roots in ascending id order
func Attribution(m entities.RequirementMap) map[entities.PartID][]entities.PartID {
	roots := make(map[entities.PartID][]entities.PartID)
	for _, root := range m.Roots() {
		for id := range m[root] {
			roots[id] = append(roots[id], root)
		}
	}
	return roots
}
