package events

import (
	"time"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

const (
	CalculationStartedEvent   = "calculation.started"
	CalculationCompletedEvent = "calculation.completed"
	CalculationFailedEvent    = "calculation.failed"

	ProgressUpdatedEvent = "progress.updated"
	WarningRaisedEvent   = "warning.raised"
)

// AllCalculationEvents lists every event type a calculation run emits
var AllCalculationEvents = []string{
	CalculationStartedEvent,
	CalculationCompletedEvent,
	CalculationFailedEvent,
	ProgressUpdatedEvent,
	WarningRaisedEvent,
}

// Stage names a phase of a calculation run
type Stage string

const (
	StageValidate    Stage = "validate"
	StageGrossPass   Stage = "gross_pass"
	StageCommitments Stage = "commitments"
	StageNetPass     Stage = "net_pass"
	StagePartDetails Stage = "part_details"
	StageStock       Stage = "stock"
	StagePurchasing  Stage = "purchase_orders"
	StageFinalize    Stage = "finalize"
	StageDone        Stage = "done"
)

type CalculationStarted struct {
	RunID   string                   `json:"run_id"`
	Targets []entities.TargetRequest `json:"targets"`
}

type ProgressUpdated struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

type WarningRaised struct {
	Message string `json:"message"`
}

type CalculationCompleted struct {
	OrderLines int           `json:"order_lines"`
	BuildLines int           `json:"build_lines"`
	Duration   time.Duration `json:"duration"`
}

type CalculationFailed struct {
	Error string `json:"error"`
}
