/*
coordinator.go - The transaction coordinator

PURPOSE:
  Orchestrates every audited state change. Validates the claimed
  transition, executes the caller-supplied operation only if the gate
  passes, always appends exactly one TransitionAttempt, and returns a
  uniform Result envelope. Also runs distributed (saga-style) transactions
  with optional compensating callbacks.

PER-INVOCATION STATE MACHINE:
  Start -> Validating -> {Rejected (end) | Executing} -> {Succeeded | Failed}
  The distributed path skips Validating/Rejected (participants validate
  via their own calls back into the engine) and adds Compensating before
  Failed.

PROPAGATION POLICY:
  - Validation and operation failures are recovered into the Result
  - Transaction log failures propagate as errors: an unaudited transition
    is worse than a failed one
  - Compensation failures are logged and discarded relative to the outcome

ORDERING:
  The coordinator does NOT serialize concurrent attempts on one entity id.
  Two racing callers may both pass validation against the state each
  observed; the storage collaborator that owns the entity resolves the
  conflict (optimistic concurrency, expected-version tokens in Metadata).

SEE ALSO:
  - validator.go: The gate
  - logger.go: The audit trail
  - compliance.go: Caller-driven business-rule records
*/
package transition

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator wires the validator, transaction log and compliance recorder
// behind the only entry points business collaborators are allowed to call.
type Coordinator struct {
	Validator  *Validator
	Log        *TransactionLog
	Compliance *ComplianceRecorder
	Logger     *slog.Logger
	Metrics    *Metrics
}

// NewCoordinator assembles a coordinator. Metrics may be nil to disable
// instrumentation; a nil logger falls back to slog.Default().
func NewCoordinator(validator *Validator, log *TransactionLog, compliance *ComplianceRecorder, logger *slog.Logger, metrics *Metrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		Validator:  validator,
		Log:        log,
		Compliance: compliance,
		Logger:     logger,
		Metrics:    metrics,
	}
}

// Request identifies one single-entity transition attempt.
type Request struct {
	EntityType string
	EntityID   string
	FromState  string
	ToState    string
	ActorID    string
	ActorName  string
	Metadata   map[string]string
}

// Operation is the caller-supplied unit of work executed under a validated
// transition, e.g. "mark task complete in storage".
type Operation[T any] func(ctx context.Context) (T, error)

// DistributedRequest identifies one distributed transaction.
type DistributedRequest struct {
	TransactionType string
	TransactionID   string // generated when empty
	FromState       string
	ToState         string
	ActorID         string
	ActorName       string
	Metadata        map[string]string
}

// DistributedOperation performs work against one or more collaborators,
// recording intermediate results on the shared context.
type DistributedOperation[T any] func(ctx context.Context, dtx *DistributedContext) (T, error)

// =============================================================================
// SINGLE-ENTITY EXECUTION
// =============================================================================

// Execute validates the transition, runs op only if the gate passes, and
// always appends exactly one attempt.
//
// The returned error is non-nil ONLY when the audit write path is broken
// (ErrLogAppendFailed); every other failure is recovered into the Result.
func Execute[T any](ctx context.Context, c *Coordinator, req Request, op Operation[T]) (Result[T], error) {
	start := time.Now()

	attempt := TransitionAttempt{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		FromState:  req.FromState,
		ToState:    req.ToState,
		ActorID:    req.ActorID,
		ActorName:  req.ActorName,
		Metadata:   req.Metadata,
	}

	decision := c.Validator.Validate(ValidationRequest{
		EntityType: req.EntityType,
		FromState:  req.FromState,
		ToState:    req.ToState,
		ActorID:    req.ActorID,
		Metadata:   req.Metadata,
	})
	attempt.EntityType = decision.EntityType
	attempt.FromState = decision.FromState
	attempt.ToState = decision.ToState

	if !decision.Valid {
		// Rejected: the operation is never invoked.
		attempt.Success = false
		attempt.FailureReason = decision.Reason
		attemptID, err := c.finishAttempt(ctx, &attempt, start, outcomeRejected)
		if err != nil {
			return Result[T]{}, err
		}
		c.Logger.Info("transition_rejected",
			"entity_type", attempt.EntityType,
			"entity_id", attempt.EntityID,
			"from", attempt.FromState,
			"to", attempt.ToState,
			"reason", decision.Reason,
		)
		return failure[T](CodeInvalidTransition, decision.Reason, attemptID, ""), nil
	}

	value, opErr := op(ctx)
	if opErr != nil {
		attempt.Success = false
		attempt.FailureReason = opErr.Error()
		attemptID, err := c.finishAttempt(ctx, &attempt, start, outcomeFailed)
		if err != nil {
			return Result[T]{}, err
		}
		c.Logger.Warn("transition_failed",
			"entity_type", attempt.EntityType,
			"entity_id", attempt.EntityID,
			"from", attempt.FromState,
			"to", attempt.ToState,
			"error", opErr,
		)
		return failure[T](codeForError(opErr), opErr.Error(), attemptID, ""), nil
	}

	attempt.Success = true
	attemptID, err := c.finishAttempt(ctx, &attempt, start, outcomeSuccess)
	if err != nil {
		return Result[T]{}, err
	}
	c.Logger.Info("transition_succeeded",
		"entity_type", attempt.EntityType,
		"entity_id", attempt.EntityID,
		"from", attempt.FromState,
		"to", attempt.ToState,
		"duration_ms", *attempt.DurationMS,
	)
	return success(value, attemptID, ""), nil
}

// =============================================================================
// DISTRIBUTED (SAGA-STYLE) EXECUTION
// =============================================================================

// ExecuteDistributed runs op against a fresh DistributedContext, fires at
// most one compensating callback after the primary outcome is determined,
// and appends exactly one attempt tagged with the transaction id.
//
// Compensation is best-effort: a callback error is logged and counted but
// never overrides the primary outcome or prevents the audit append.
func ExecuteDistributed[T any](ctx context.Context, c *Coordinator, req DistributedRequest, op DistributedOperation[T], comp *CompensatingActions) (Result[T], error) {
	start := time.Now()

	txID := req.TransactionID
	if txID == "" {
		txID = uuid.NewString()
	}

	dtx := &DistributedContext{
		TransactionID:   txID,
		TransactionType: req.TransactionType,
		FromState:       req.FromState,
		ToState:         req.ToState,
		StartedAt:       start.UTC(),
	}

	attempt := TransitionAttempt{
		EntityType:    req.TransactionType,
		EntityID:      txID,
		FromState:     req.FromState,
		ToState:       req.ToState,
		ActorID:       req.ActorID,
		ActorName:     req.ActorName,
		Metadata:      req.Metadata,
		TransactionID: txID,
	}

	value, opErr := op(ctx, dtx)

	if opErr != nil {
		c.compensate(req.TransactionType, txID, comp, false, dtx)
		c.Metrics.observeDistributed(req.TransactionType, false)

		attempt.Success = false
		attempt.FailureReason = opErr.Error()
		attemptID, err := c.finishAttempt(ctx, &attempt, start, outcomeFailed)
		if err != nil {
			return Result[T]{}, err
		}
		c.Logger.Warn("distributed_transaction_failed",
			"type", req.TransactionType,
			"transaction_id", txID,
			"error", opErr,
			"result", dtx.Result,
		)
		return failure[T](codeForError(opErr), opErr.Error(), attemptID, txID), nil
	}

	c.compensate(req.TransactionType, txID, comp, true, dtx)
	c.Metrics.observeDistributed(req.TransactionType, true)

	attempt.Success = true
	attemptID, err := c.finishAttempt(ctx, &attempt, start, outcomeSuccess)
	if err != nil {
		return Result[T]{}, err
	}
	c.Logger.Info("distributed_transaction_succeeded",
		"type", req.TransactionType,
		"transaction_id", txID,
		"result", dtx.Result,
		"duration_ms", *attempt.DurationMS,
	)
	return success(value, attemptID, txID), nil
}

// compensate fires the callback matching the primary outcome. OnSuccess
// and OnFailure are mutually exclusive and each fires at most once.
func (c *Coordinator) compensate(txType, txID string, comp *CompensatingActions, succeeded bool, dtx *DistributedContext) {
	if comp == nil {
		return
	}
	cb := comp.OnFailure
	name := "on_failure"
	if succeeded {
		cb = comp.OnSuccess
		name = "on_success"
	}
	if cb == nil {
		return
	}
	if err := cb(dtx); err != nil {
		c.Metrics.observeCompensationFailure(txType)
		c.Logger.Error("compensation_failed",
			"type", txType,
			"transaction_id", txID,
			"callback", name,
			"error", err,
		)
	}
}

// finishAttempt stamps duration and timestamp on the caller's attempt and
// appends it. The append uses a context detached from caller cancellation
// so a cancelled operation still leaves an audit entry.
func (c *Coordinator) finishAttempt(ctx context.Context, attempt *TransitionAttempt, start time.Time, outcome string) (AttemptID, error) {
	elapsed := time.Since(start)
	ms := elapsed.Milliseconds()
	attempt.DurationMS = &ms
	attempt.Timestamp = time.Now().UTC()

	id, err := c.Log.Append(context.WithoutCancel(ctx), *attempt)
	if err != nil {
		c.Logger.Error("attempt_append_failed",
			"entity_type", attempt.EntityType,
			"entity_id", attempt.EntityID,
			"error", err,
		)
		return "", err
	}
	c.Metrics.observeAttempt(attempt.EntityType, outcome, elapsed)
	return id, nil
}

// codeForError maps an operation error to a stable result code.
// Cancellation is distinguished so the audit trail shows interrupted work.
func codeForError(err error) Code {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}
	return CodeOperationFailure
}

// =============================================================================
// QUERY AND COMPLIANCE ENTRY POINTS
// =============================================================================
// Business collaborators call these instead of touching the rule store or
// the transaction log directly.

// ValidateTransition answers transition legality without executing
// anything and without logging an attempt.
func (c *Coordinator) ValidateTransition(req ValidationRequest) Decision {
	return c.Validator.Validate(req)
}

// GetAvailableTransitions enumerates legal next states.
func (c *Coordinator) GetAvailableTransitions(entityType, fromState string) []string {
	return c.Validator.AvailableTransitions(entityType, fromState)
}

// GetEntityTransactions returns an entity's attempt history, newest first.
func (c *Coordinator) GetEntityTransactions(ctx context.Context, entityType, entityID string, limit int) ([]TransitionAttempt, error) {
	return c.Log.GetEntityHistory(ctx, entityType, entityID, limit)
}

// GetDistributedTransaction returns the attempts grouped under one
// transaction id, newest first.
func (c *Coordinator) GetDistributedTransaction(ctx context.Context, transactionID string) ([]TransitionAttempt, error) {
	return c.Log.GetTransaction(ctx, transactionID)
}

// LogComplianceCheck records a business-rule evaluation. Failures are
// reported to the direct caller but never abort any primary transaction.
func (c *Coordinator) LogComplianceCheck(ctx context.Context, record ComplianceRecord) (ComplianceRecord, error) {
	return c.Compliance.Record(ctx, record)
}

// GetComplianceRecords returns an entity's compliance history, newest first.
func (c *Coordinator) GetComplianceRecords(ctx context.Context, entityType, entityID string, limit int) ([]ComplianceRecord, error) {
	return c.Compliance.EntityRecords(ctx, entityType, entityID, limit)
}
