package services

import (
	"fmt"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// BOMValidator provides validation for BOM structure integrity
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]entities.PartID
	DuplicateLines []entities.BOMLine
	UnknownParts   []entities.PartID
	Errors         []string
}

// Valid reports whether no errors were found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateBOM checks a snapshot of BOM lines against the known parts. Pass a
// nil parts slice to skip the reference check.
func (v *BOMValidator) ValidateBOM(parts []entities.Part, bomLines []entities.BOMLine) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:     make([][]entities.PartID, 0),
		DuplicateLines: make([]entities.BOMLine, 0),
		UnknownParts:   make([]entities.PartID, 0),
		Errors:         make([]string, 0),
	}

	adjacencyMap := v.buildAdjacencyMap(bomLines)

	result.CyclePaths = v.detectCycles(adjacencyMap)
	result.HasCycles = len(result.CyclePaths) > 0
	result.DuplicateLines = v.detectDuplicateLines(bomLines)
	if parts != nil {
		result.UnknownParts = v.detectUnknownParts(parts, bomLines)
	}

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate BOM lines", len(result.DuplicateLines)))
	}
	if len(result.UnknownParts) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM references unknown parts: %v", result.UnknownParts))
	}

	return result
}

// buildAdjacencyMap creates a map of parent -> sub part relationships
func (v *BOMValidator) buildAdjacencyMap(bomLines []entities.BOMLine) map[entities.PartID][]entities.PartID {
	adjacencyMap := make(map[entities.PartID][]entities.PartID)
	seen := make(map[[2]entities.PartID]bool)

	for _, line := range bomLines {
		edge := [2]entities.PartID{line.ParentID, line.SubPartID}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		adjacencyMap[line.ParentID] = append(adjacencyMap[line.ParentID], line.SubPartID)
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles; parents are visited in id order so
// the reported paths are stable
func (v *BOMValidator) detectCycles(adjacencyMap map[entities.PartID][]entities.PartID) [][]entities.PartID {
	visited := make(map[entities.PartID]bool)
	onStack := make(map[entities.PartID]bool)
	cycles := make([][]entities.PartID, 0)

	parents := make([]entities.PartID, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		parents = append(parents, parent)
	}
	entities.SortPartIDs(parents)

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, onStack, nil, &cycles)
		}
	}

	return cycles
}

func (v *BOMValidator) dfsDetectCycle(
	current entities.PartID,
	adjacencyMap map[entities.PartID][]entities.PartID,
	visited map[entities.PartID]bool,
	onStack map[entities.PartID]bool,
	path []entities.PartID,
	cycles *[][]entities.PartID,
) {
	visited[current] = true
	onStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, onStack, path, cycles)
			continue
		}
		if !onStack[child] {
			continue
		}
		for i, part := range path {
			if part == child {
				cycle := make([]entities.PartID, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, child) // close the cycle
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	onStack[current] = false
}

// detectDuplicateLines finds repeated parent/sub part pairs
func (v *BOMValidator) detectDuplicateLines(bomLines []entities.BOMLine) []entities.BOMLine {
	seen := make(map[[2]entities.PartID]bool)
	duplicates := make([]entities.BOMLine, 0)

	for _, line := range bomLines {
		key := [2]entities.PartID{line.ParentID, line.SubPartID}
		if seen[key] {
			duplicates = append(duplicates, line)
			continue
		}
		seen[key] = true
	}

	return duplicates
}

func (v *BOMValidator) detectUnknownParts(parts []entities.Part, bomLines []entities.BOMLine) []entities.PartID {
	known := make(map[entities.PartID]bool, len(parts))
	for _, p := range parts {
		known[p.ID] = true
	}

	missing := make(map[entities.PartID]bool)
	for _, line := range bomLines {
		if !known[line.ParentID] {
			missing[line.ParentID] = true
		}
		if !known[line.SubPartID] {
			missing[line.SubPartID] = true
		}
	}

	ids := make([]entities.PartID, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	entities.SortPartIDs(ids)
	return ids
}
