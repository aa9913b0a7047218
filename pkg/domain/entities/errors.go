package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrPartNotFound is returned by gateways when a part id does not exist
	ErrPartNotFound = errors.New("part not found")
	// ErrInvalidTarget marks a target request that cannot be calculated
	ErrInvalidTarget = errors.New("invalid target")
	// ErrCycleDetected marks a BOM that references one of its own ancestors
	ErrCycleDetected = errors.New("bom cycle detected")
	// ErrDepthExceeded marks a BOM nested deeper than the configured limit
	ErrDepthExceeded = errors.New("bom depth exceeded")
)

// InvalidTargetError describes why a target was rejected
type InvalidTargetError struct {
	PartID PartID
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %d: %s", e.PartID, e.Reason)
}

func (e *InvalidTargetError) Unwrap() error {
	return ErrInvalidTarget
}

// GatewayError wraps a failed call to the inventory system
type GatewayError struct {
	Operation  string
	StatusCode int
	Cause      error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s failed with status %d: %v", e.Operation, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("gateway %s failed: %v", e.Operation, e.Cause)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Temporary reports whether retrying the call may succeed
func (e *GatewayError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// ConfigurationError is the only error that aborts a calculation
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// IsConfigurationError reports whether err carries a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
