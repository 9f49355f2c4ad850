/*
errors.go - Centralized error types for the transition engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Illegal or malformed transitions
  2. Logging errors - Audit trail persistence failures (fatal to the call)
  3. Rule errors - Malformed or missing rule configuration

USAGE:
  Callers distinguish the fatal audit path from recoverable failures:

    result, err := transition.Execute(ctx, coord, req, op)
    if errors.Is(err, transition.ErrLogAppendFailed) {
        // the state change is unaudited; surface loudly
    }

SEE ALSO:
  - coordinator.go: Propagation policy
  - logger.go: Wraps store failures in ErrLogAppendFailed
*/
package transition

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when fromState -> toState is not
	// permitted for the entity type. Surfaced to coordinator callers as a
	// failure Result, never as a raw error.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrLogAppendFailed is returned when the transaction log could not
	// persist an attempt. This is fatal to the coordinator call: an
	// unaudited transition is worse than a failed one.
	ErrLogAppendFailed = errors.New("transaction log append failed")

	// ErrEntityTypeNotFound is returned when an entity type has no rules.
	ErrEntityTypeNotFound = errors.New("entity type not found")

	// ErrEmptyStateName is returned when a rule set contains an empty
	// entity type or state name.
	ErrEmptyStateName = errors.New("empty state name in rule set")

	// ErrNoRuleSource is returned by Reload when the store was built
	// without a backing source.
	ErrNoRuleSource = errors.New("rule store has no backing source")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError describes exactly which edge was denied.
type InvalidTransitionError struct {
	EntityType string
	FromState  string
	ToState    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s -> %s", e.EntityType, e.FromState, e.ToState)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// LogAppendError wraps the underlying store failure so the caller can see
// both the sentinel and the cause.
type LogAppendError struct {
	EntityType string
	EntityID   string
	Cause      error
}

func (e *LogAppendError) Error() string {
	return fmt.Sprintf("failed to append attempt for %s/%s: %v", e.EntityType, e.EntityID, e.Cause)
}

func (e *LogAppendError) Unwrap() error {
	return ErrLogAppendFailed
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrEmptyStateName)
}

// IsNotFound returns true if the error indicates a missing entity type.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityTypeNotFound)
}
