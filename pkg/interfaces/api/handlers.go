package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/application/dto"
	"github.com/vsinha/ordercalc/pkg/application/services/calculation"
	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/domain/repositories"
	"github.com/vsinha/ordercalc/pkg/infrastructure/events"
	"github.com/vsinha/ordercalc/pkg/interfaces/cli/output"
)

// maxRetainedRuns bounds how many run event streams stay readable
const maxRetainedRuns = 100

// maxRequestBody bounds calculation request bodies
const maxRequestBody = 1 << 20

// RunStore keeps run event streams and can forget old ones
type RunStore interface {
	events.EventStore
	DeleteStream(streamID string)
}

// Handlers holds HTTP handlers for the order calculation API
type Handlers struct {
	calculator *calculation.Calculator
	parts      repositories.PartRepository
	runs       RunStore
	defaults   calculation.Options
	logger     *zap.Logger

	mu      sync.Mutex
	runIDs  []string
	started time.Time
}

// NewHandlers creates new HTTP handlers. runs may be nil, which disables the
// events endpoint.
func NewHandlers(calculator *calculation.Calculator, parts repositories.PartRepository, runs RunStore, defaults calculation.Options, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		calculator: calculator,
		parts:      parts,
		runs:       runs,
		defaults:   defaults,
		logger:     logger,
		started:    time.Now(),
	}
}

// APIResponse represents standard API response format
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CalculationRequest asks for one calculation. Unset options fall back to
// the server defaults.
type CalculationRequest struct {
	Targets              []entities.TargetRequest `json:"targets"`
	IncludeConsumables   *bool                    `json:"include_consumables,omitempty"`
	ExcludeSuppliers     []string                 `json:"exclude_suppliers,omitempty"`
	ExcludeManufacturers []string                 `json:"exclude_manufacturers,omitempty"`
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.sendSuccess(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"service":   "ordercalc",
	})
}

// Calculate runs a calculation and returns the JSON result
func (h *Handlers) Calculate(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	h.sendSuccess(w, result)
}

// CalculateOrdersCSV runs a calculation and returns the order list as CSV
func (h *Handlers) CalculateOrdersCSV(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	h.sendCSV(w, result.RunID, output.OrdersCSVFile, func() error {
		return output.WriteOrdersCSV(w, result.OrderLines)
	})
}

// CalculateBuildsCSV runs a calculation and returns the build list as CSV
func (h *Handlers) CalculateBuildsCSV(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	h.sendCSV(w, result.RunID, output.BuildsCSVFile, func() error {
		return output.WriteBuildsCSV(w, result.BuildLines)
	})
}

// RunEvents returns the progress and warning events of a recent run
func (h *Handlers) RunEvents(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.sendError(w, http.StatusNotFound, "run events are not recorded")
		return
	}
	runID := mux.Vars(r)["runId"]
	if _, err := uuid.Parse(runID); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	from := 1
	if s := r.URL.Query().Get("from"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			h.sendError(w, http.StatusBadRequest, "invalid from version")
			return
		}
		from = v
	}

	evts, err := h.runs.ReadEvents(runID, from)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(evts) == 0 && from == 1 {
		h.sendError(w, http.StatusNotFound, fmt.Sprintf("no events for run %s", runID))
		return
	}
	h.sendSuccess(w, evts)
}

// CategoryParts lists the parts of a category, sorted by name
func (h *Handlers) CategoryParts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.Atoi(mux.Vars(r)["categoryId"])
	if err != nil || categoryID <= 0 {
		h.sendError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	parts, err := h.parts.GetPartsInCategory(r.Context(), categoryID)
	if err != nil {
		h.logger.Warn("category listing failed", zap.Int("category_id", categoryID), zap.Error(err))
		h.sendError(w, http.StatusBadGateway, "failed to list category parts")
		return
	}
	h.sendSuccess(w, parts)
}

// run decodes the request and runs the calculation. It writes the error
// response itself and reports whether the caller should continue.
func (h *Handlers) run(w http.ResponseWriter, r *http.Request) (*dto.CalculationResult, bool) {
	var req CalculationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return nil, false
	}
	if len(req.Targets) == 0 {
		h.sendError(w, http.StatusBadRequest, "at least one target is required")
		return nil, false
	}

	opts := h.defaults
	if req.IncludeConsumables != nil {
		opts.IncludeConsumables = *req.IncludeConsumables
	}
	if req.ExcludeSuppliers != nil {
		opts.ExcludeSuppliers = req.ExcludeSuppliers
	}
	if req.ExcludeManufacturers != nil {
		opts.ExcludeManufacturers = req.ExcludeManufacturers
	}
	opts.RunID = uuid.NewString()
	if h.runs != nil {
		opts.Events = h.runs
		h.retain(opts.RunID)
	}

	result, err := h.calculator.Calculate(r.Context(), req.Targets, opts)
	if err != nil {
		switch {
		case entities.IsConfigurationError(err):
			h.sendError(w, http.StatusInternalServerError, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			h.sendError(w, http.StatusServiceUnavailable, "calculation cancelled")
		default:
			h.sendError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	w.Header().Set("X-Run-ID", result.RunID)
	return result, true
}

// retain records runID and forgets the oldest stream beyond maxRetainedRuns
func (h *Handlers) retain(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runIDs = append(h.runIDs, runID)
	for len(h.runIDs) > maxRetainedRuns {
		h.runs.DeleteStream(h.runIDs[0])
		h.runIDs = h.runIDs[1:]
	}
}

func (h *Handlers) sendCSV(w http.ResponseWriter, runID, filename string, write func() error) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := write(); err != nil {
		h.logger.Error("failed to write CSV response", zap.String("run_id", runID), zap.Error(err))
	}
}

// sendSuccess sends a successful API response
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to send response", zap.Error(err))
	}
}

// sendError sends an error API response
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to send error response", zap.Error(err))
	}
}
