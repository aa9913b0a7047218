package entities

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TargetRequest asks for a number of finished units of one root assembly
type TargetRequest struct {
	PartID   PartID   `json:"part_id" yaml:"part_id"`
	Quantity Quantity `json:"quantity" yaml:"quantity"`
}

// Validate rejects non-positive quantities and ids
func (t TargetRequest) Validate() error {
	if t.PartID <= 0 {
		return &InvalidTargetError{PartID: t.PartID, Reason: "part id must be positive"}
	}
	if !t.Quantity.IsPositive() {
		return &InvalidTargetError{PartID: t.PartID, Reason: "quantity must be positive"}
	}
	return nil
}

// RequirementMap accumulates quantities per root assembly and part:
// map[rootID]map[partID]quantity. The same shape records sub-assembly demand.
type RequirementMap map[PartID]map[PartID]Quantity

// SubAssemblyDemand is the gross per-root demand for intermediate assemblies
type SubAssemblyDemand = RequirementMap

// NewRequirementMap creates an empty RequirementMap
func NewRequirementMap() RequirementMap {
	return make(RequirementMap)
}

// Add accumulates qty for part under root
func (m RequirementMap) Add(root, part PartID, qty Quantity) {
	parts, ok := m[root]
	if !ok {
		parts = make(map[PartID]Quantity)
		m[root] = parts
	}
	parts[part] = parts[part].Add(qty)
}

// Get returns the quantity for part under root, zero when absent
func (m RequirementMap) Get(root, part PartID) Quantity {
	if parts, ok := m[root]; ok {
		if q, ok := parts[part]; ok {
			return q
		}
	}
	return decimal.Zero
}

// Roots returns the root ids in ascending order
func (m RequirementMap) Roots() []PartID {
	roots := make([]PartID, 0, len(m))
	for root := range m {
		roots = append(roots, root)
	}
	SortPartIDs(roots)
	return roots
}

// SortPartIDs sorts ids in ascending order in place
func SortPartIDs(ids []PartID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
