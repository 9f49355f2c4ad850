/*
Package transition provides the core state-transition and transaction
coordination engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for gating
  entity state changes. Whether the entity is a task, a reminder, or a
  category, the same engine decides whether a claimed transition is legal,
  wraps the business operation that performs it, and records an immutable
  audit trail of every attempt.

KEY CONCEPTS IN THIS FILE (types.go):
  - TransitionAttempt: An immutable audit entry, one per coordinator call
  - ComplianceRecord: A pass/fail business-rule evaluation
  - Result[T]: The uniform envelope returned to every caller
  - DistributedContext: Shared context for saga-style multi-entity work
  - CompensatingActions: Optional success/failure callbacks

DESIGN PRINCIPLES:
  1. Immutability: Attempts are never modified after creation
  2. Deny-by-default: A transition without a rule is never allowed
  3. Auditability: Every attempt is logged, pass or fail, with timing and actor
  4. Translation boundary: Internal failures become structured results,
     never raw errors leaking to the caller

USAGE:
  result, err := transition.Execute(ctx, coord, transition.Request{
      EntityType: "task",
      EntityID:   "42",
      FromState:  "pending",
      ToState:    "in_progress",
      ActorID:    "user-7",
  }, func(ctx context.Context) (string, error) {
      return "ok", markStarted(ctx)
  })

SEE ALSO:
  - rules.go: Rule storage and lookup
  - coordinator.go: The transaction coordinator
  - logger.go: Audit trail persistence
*/
package transition

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// AttemptID identifies one persisted TransitionAttempt.
type AttemptID string

// EntityType identifies what kind of entity is being transitioned.
// This is an interface so domain packages define their own concrete types.
// The transition package has NO knowledge of specific entity kinds.
//
// Domain packages implement this:
//
//	// In tasks/types.go
//	type TaskEntity string
//	func (e TaskEntity) EntityTypeID() string { return string(e) }
//	func (e TaskEntity) EntityDomain() string { return "tasks" }
//	const EntityTask TaskEntity = "task"
type EntityType interface {
	// EntityTypeID returns the unique identifier for this entity type.
	EntityTypeID() string

	// EntityDomain returns which domain this entity type belongs to.
	EntityDomain() string
}

// =============================================================================
// TRANSITION ATTEMPT - Immutable audit entry, one per coordinator invocation
// =============================================================================

// TransitionAttempt records one attempt to move an entity between states.
// Created once per coordinator invocation and never mutated afterwards.
// Retention and deletion policy is an external concern.
type TransitionAttempt struct {
	ID         AttemptID
	EntityType string
	EntityID   string
	FromState  string
	ToState    string

	// Actor fields
	ActorID   string
	ActorName string

	Timestamp     time.Time
	Success       bool
	FailureReason string // present iff !Success
	Metadata      map[string]string

	// DurationMS is nil when timing was not captured (e.g. a direct
	// store write outside the coordinator).
	DurationMS *int64

	// TransactionID groups attempts belonging to one distributed
	// transaction. Empty for single-entity work.
	TransactionID string
}

// =============================================================================
// COMPLIANCE RECORD - Business-rule evaluation, independent of legality
// =============================================================================

// ComplianceRecord captures a pass/fail business-rule check tied to an
// entity, distinct from raw state-machine legality. Typically created
// alongside a TransitionAttempt but never required by one.
type ComplianceRecord struct {
	ID         string
	EntityType string
	EntityID   string
	ActorID    string
	RuleID     string
	RuleName   string
	Compliant  bool
	Message    string
	Timestamp  time.Time
}

// =============================================================================
// RESULT - Uniform envelope returned to every coordinator caller
// =============================================================================

// Code is a stable, language-neutral error code on a failure Result.
type Code string

const (
	CodeInvalidTransition Code = "InvalidTransition"
	CodeOperationFailure  Code = "OperationFailure"
	CodeCancelled         Code = "Cancelled"
)

// Result is the envelope every coordinator entry point returns.
//
// INVARIANT: exactly one of {Value} or {ErrorCode, ErrorMessage} is
// populated, keyed off Success.
type Result[T any] struct {
	Success      bool
	Value        T      // zero value unless Success
	ErrorCode    Code   // empty unless !Success
	ErrorMessage string // empty unless !Success

	// AttemptID references the audit entry created for this invocation.
	AttemptID AttemptID

	// TransactionID is set for distributed transactions.
	TransactionID string
}

func success[T any](value T, attemptID AttemptID, txID string) Result[T] {
	return Result[T]{Success: true, Value: value, AttemptID: attemptID, TransactionID: txID}
}

func failure[T any](code Code, message string, attemptID AttemptID, txID string) Result[T] {
	return Result[T]{Success: false, ErrorCode: code, ErrorMessage: message, AttemptID: attemptID, TransactionID: txID}
}

// =============================================================================
// DISTRIBUTED TRANSACTION CONTEXT
// =============================================================================

// DistributedContext is the shared context for one distributed transaction.
// It is owned exclusively by the coordinator invocation that created it,
// passed by reference to the operation and compensating callbacks, and
// discarded when the invocation returns.
type DistributedContext struct {
	TransactionID   string
	TransactionType string
	FromState       string
	ToState         string

	// Result is free text progressively updated by participants as the
	// operation touches collaborators.
	Result string

	StartedAt time.Time
}

// AppendResult adds a progress note to the running result text.
func (d *DistributedContext) AppendResult(note string) {
	if d.Result == "" {
		d.Result = note
		return
	}
	d.Result += "; " + note
}

// CompensatingActions holds the optional callbacks fired after a distributed
// operation resolves. At most one of the two fires, at most once, after the
// primary outcome is already determined. A callback error is logged and
// never overrides that outcome.
type CompensatingActions struct {
	OnSuccess func(dtx *DistributedContext) error
	OnFailure func(dtx *DistributedContext) error
}
