/*
store.go - Persistence interfaces for attempts and compliance records

PURPOSE:
  Defines the interface between the engine and the database. Stores are
  APPEND-ONLY: attempts and compliance records are audit data, never
  updated or deleted after creation.

APPEND-ONLY CONTRACT:
  - AppendAttempt() / AppendCompliance(): the only write operations
  - NO Update() or Delete() methods exist
  - Ids are generated by the store (server-generated, safe under
    concurrent writers)

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - transition/store/memory.go: In-memory for testing

SEE ALSO:
  - logger.go: Higher-level transaction log using AttemptStore
  - compliance.go: Recorder using ComplianceStore
*/
package transition

import "context"

// =============================================================================
// ATTEMPT STORE - Interface for attempt persistence (append-only)
// =============================================================================

// AttemptStore persists transition attempts.
// IMPORTANT: append-only. No Update, No Delete. Ever.
type AttemptStore interface {
	// AppendAttempt persists one attempt and returns its generated id.
	// This is the ONLY write operation.
	AppendAttempt(ctx context.Context, attempt TransitionAttempt) (AttemptID, error)

	// AttemptsByEntity returns attempts for one entity, newest first,
	// bounded by limit (limit <= 0 means no bound).
	AttemptsByEntity(ctx context.Context, entityType, entityID string, limit int) ([]TransitionAttempt, error)

	// AttemptsByTransaction returns all attempts grouped under one
	// distributed-transaction id, newest first.
	AttemptsByTransaction(ctx context.Context, transactionID string) ([]TransitionAttempt, error)

	// AttemptsByActor returns attempts performed by one actor, newest
	// first, bounded by limit.
	AttemptsByActor(ctx context.Context, actorID string, limit int) ([]TransitionAttempt, error)
}

// =============================================================================
// COMPLIANCE STORE
// =============================================================================

// ComplianceStore persists compliance-rule evaluations. Also append-only.
type ComplianceStore interface {
	AppendCompliance(ctx context.Context, record ComplianceRecord) (string, error)

	// ComplianceByEntity returns records for one entity, newest first,
	// bounded by limit (limit <= 0 means no bound).
	ComplianceByEntity(ctx context.Context, entityType, entityID string, limit int) ([]ComplianceRecord, error)
}
