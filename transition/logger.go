/*
logger.go - Append-only transaction log

PURPOSE:
  The TransactionLog is the immutable audit trail of every transition
  attempt. Every coordinator invocation produces exactly one Append,
  whether the wrapped operation succeeded, failed validation, or errored.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, attempts cannot be modified
  3. LOUD FAILURES: An append failure is never silently swallowed - the
     audit trail is the whole point of the subsystem

WHY APPEND-ONLY?
  - Audit trail: You can always explain how an entity reached its state
  - Debugging: "Why did this fail?" -> failure reason is in the history
  - Compliance: SOC2-style audits require immutable logs

SEE ALSO:
  - store.go: Low-level persistence interface
  - coordinator.go: The single producer of attempts
*/
package transition

import (
	"context"
	"time"
)

// =============================================================================
// TRANSACTION LOG
// =============================================================================

// TransactionLog wraps an AttemptStore with timestamping and loud-failure
// semantics.
type TransactionLog struct {
	Store AttemptStore
}

func NewTransactionLog(store AttemptStore) *TransactionLog {
	return &TransactionLog{Store: store}
}

// Append persists one attempt and returns its id. Zero timestamps are
// stamped with the current UTC time. Failures wrap ErrLogAppendFailed.
func (l *TransactionLog) Append(ctx context.Context, attempt TransitionAttempt) (AttemptID, error) {
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = time.Now().UTC()
	}

	id, err := l.Store.AppendAttempt(ctx, attempt)
	if err != nil {
		return "", &LogAppendError{
			EntityType: attempt.EntityType,
			EntityID:   attempt.EntityID,
			Cause:      err,
		}
	}
	return id, nil
}

// GetEntityHistory returns an entity's attempts, newest first, bounded by
// limit.
func (l *TransactionLog) GetEntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]TransitionAttempt, error) {
	return l.Store.AttemptsByEntity(ctx, entityType, entityID, limit)
}

// GetTransaction returns all attempts grouped under one distributed
// transaction id, newest first.
func (l *TransactionLog) GetTransaction(ctx context.Context, transactionID string) ([]TransitionAttempt, error) {
	return l.Store.AttemptsByTransaction(ctx, transactionID)
}

// GetActorHistory returns the attempts performed by one actor, newest
// first, bounded by limit.
func (l *TransactionLog) GetActorHistory(ctx context.Context, actorID string, limit int) ([]TransitionAttempt, error) {
	return l.Store.AttemptsByActor(ctx, actorID, limit)
}
