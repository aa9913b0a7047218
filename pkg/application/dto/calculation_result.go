package dto

import (
	"time"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// CalculationResult contains the complete output of an order calculation
type CalculationResult struct {
	RunID      string               `json:"run_id"`
	OrderLines []entities.OrderLine `json:"parts_to_order"`
	BuildLines []entities.BuildLine `json:"subassemblies"`
	Warnings   []string             `json:"warnings,omitempty"`
	Stats      CalculationStats     `json:"stats"`
}

// CalculationStats describes how a run went
type CalculationStats struct {
	Targets        int           `json:"targets"`
	SkippedTargets int           `json:"skipped_targets"`
	PartsSeen      int           `json:"parts_seen"`
	CacheLookups   int           `json:"cache_lookups"`
	CacheHits      int           `json:"cache_hits"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
}

// Empty reports whether nothing needs to be ordered or built
func (r *CalculationResult) Empty() bool {
	return len(r.OrderLines) == 0 && len(r.BuildLines) == 0
}
