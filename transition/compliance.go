/*
compliance.go - Compliance-rule evaluation log

PURPOSE:
  Records pass/fail business-rule evaluations tied to an entity, separate
  from plain state-machine legality. "Is this state reachable" is the
  validator's question; "does this transition satisfy policy X" is a
  compliance check.

SEMANTICS:
  Fire-and-forget relative to the primary transaction outcome. A recorder
  failure must not roll back or fail the primary operation; it is logged
  and the primary result stands. A non-compliant record is data, not an
  error - callers decide what to do with it.

SEE ALSO:
  - store.go: ComplianceStore interface
  - coordinator.go: LogComplianceCheck entry point
*/
package transition

import (
	"context"
	"log/slog"
	"time"
)

// =============================================================================
// COMPLIANCE RECORDER
// =============================================================================

// ComplianceRecorder appends compliance evaluations.
type ComplianceRecorder struct {
	Store  ComplianceStore
	Logger *slog.Logger
}

func NewComplianceRecorder(store ComplianceStore, logger *slog.Logger) *ComplianceRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplianceRecorder{Store: store, Logger: logger}
}

// Record appends one compliance evaluation and returns the stored record.
// The error return is for the direct caller; coordinator paths treat a
// failure here as non-fatal to the primary outcome.
func (r *ComplianceRecorder) Record(ctx context.Context, record ComplianceRecord) (ComplianceRecord, error) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	id, err := r.Store.AppendCompliance(ctx, record)
	if err != nil {
		r.Logger.Error("compliance_record_failed",
			"entity_type", record.EntityType,
			"entity_id", record.EntityID,
			"rule_id", record.RuleID,
			"error", err,
		)
		return record, err
	}
	record.ID = id

	if !record.Compliant {
		r.Logger.Warn("compliance_check_failed",
			"entity_type", record.EntityType,
			"entity_id", record.EntityID,
			"rule_id", record.RuleID,
			"rule_name", record.RuleName,
			"message", record.Message,
		)
	}
	return record, nil
}

// EntityRecords returns an entity's compliance history, newest first.
func (r *ComplianceRecorder) EntityRecords(ctx context.Context, entityType, entityID string, limit int) ([]ComplianceRecord, error) {
	return r.Store.ComplianceByEntity(ctx, entityType, entityID, limit)
}
