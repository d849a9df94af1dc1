package agentconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound indicates an agent YAML file was not found.
	ErrConfigNotFound = errors.New("agent configuration file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrAgentNotFound indicates the agent id was not found in the registry.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrCycleDetected indicates an extends chain refers back to itself.
	ErrCycleDetected = errors.New("extends cycle detected")

	// ErrMissingRequiredField indicates a required field is missing.
	ErrMissingRequiredField = errors.New("missing required field")
)

// ValidationError wraps agent-configuration validation errors with context;
// each one names a single field, the first invalid one found.
type ValidationError struct {
	AgentID string
	Field   string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("agent %q: field %q: %v", e.AgentID, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(agentID, field string, err error) *ValidationError {
	return &ValidationError{AgentID: agentID, Field: field, Err: err}
}
