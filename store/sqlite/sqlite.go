/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements transition.AttemptStore, transition.ComplianceStore and the
  rule source/writer pair using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  transition.AttemptStore:    Attempt persistence (append-only)
  transition.ComplianceStore: Compliance record persistence (append-only)
  transition.RuleSource:      Rule set loading for Reload
  transition.RuleWriter:      Durable per-entity-type rule updates

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on transition_attempts or compliance_records
  - No DELETE statements on those tables
  - Retention is an external concern

KEY TABLES:
  transition_attempts: Immutable audit trail, one row per coordinator call
  compliance_records:  Business-rule evaluations
  transition_rules:    One row per (entity_type, from_state, to_state) edge

ORDERING:
  History queries order by the autoincrement sequence, newest first, so
  two attempts in the same millisecond still come back in append order.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time, better crash
  recovery. The append path stays safe under concurrent writers.

USAGE:
  store, err := sqlite.New("./data/transitions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  txLog := transition.NewTransactionLog(store)

SEE ALSO:
  - transition/store.go: Interface definitions
  - transition/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/transition-engine/transition"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transition attempts (append-only audit trail)
	CREATE TABLE IF NOT EXISTS transition_attempts (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		user_id TEXT NOT NULL,
		username TEXT,
		timestamp TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		failure_reason TEXT,
		metadata_json TEXT,
		duration_ms INTEGER,
		transaction_id TEXT
	);

	-- Entity history (hot path)
	CREATE INDEX IF NOT EXISTS idx_attempts_entity
		ON transition_attempts(entity_type, entity_id, seq DESC);

	-- Distributed transaction grouping
	CREATE INDEX IF NOT EXISTS idx_attempts_transaction
		ON transition_attempts(transaction_id) WHERE transaction_id IS NOT NULL;

	-- Actor history
	CREATE INDEX IF NOT EXISTS idx_attempts_actor
		ON transition_attempts(user_id, seq DESC);

	-- Compliance records (append-only)
	CREATE TABLE IF NOT EXISTS compliance_records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		rule_name TEXT NOT NULL,
		is_compliant BOOLEAN NOT NULL,
		message TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_compliance_entity
		ON compliance_records(entity_type, entity_id, seq DESC);

	-- Transition rules, one row per permitted edge
	CREATE TABLE IF NOT EXISTS transition_rules (
		entity_type TEXT NOT NULL,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (entity_type, from_state, to_state)
	);

	CREATE INDEX IF NOT EXISTS idx_rules_entity_type
		ON transition_rules(entity_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTEMPT STORE (transition.AttemptStore interface)
// =============================================================================

// AppendAttempt adds one attempt to the audit trail and returns its id.
func (s *Store) AppendAttempt(ctx context.Context, attempt transition.TransitionAttempt) (transition.AttemptID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	metadataJSON, _ := json.Marshal(attempt.Metadata)

	ts := attempt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var durationMS any
	if attempt.DurationMS != nil {
		durationMS = *attempt.DurationMS
	}

	query := `
		INSERT INTO transition_attempts
		(id, entity_type, entity_id, from_state, to_state, user_id, username,
		 timestamp, success, failure_reason, metadata_json, duration_ms, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		id,
		attempt.EntityType,
		attempt.EntityID,
		attempt.FromState,
		attempt.ToState,
		attempt.ActorID,
		nullString(attempt.ActorName),
		ts.Format(time.RFC3339Nano),
		attempt.Success,
		nullString(attempt.FailureReason),
		string(metadataJSON),
		durationMS,
		nullString(attempt.TransactionID),
	)
	if err != nil {
		return "", fmt.Errorf("failed to append attempt: %w", err)
	}

	return transition.AttemptID(id), nil
}

// AttemptsByEntity returns attempts for one entity, newest first.
func (s *Store) AttemptsByEntity(ctx context.Context, entityType, entityID string, limit int) ([]transition.TransitionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := attemptColumns + `
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY seq DESC
	` + limitClause(limit)

	return s.queryAttempts(ctx, query, entityType, entityID)
}

// AttemptsByTransaction returns attempts grouped under one distributed
// transaction id, newest first.
func (s *Store) AttemptsByTransaction(ctx context.Context, transactionID string) ([]transition.TransitionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := attemptColumns + `
		WHERE transaction_id = ?
		ORDER BY seq DESC
	`

	return s.queryAttempts(ctx, query, transactionID)
}

// AttemptsByActor returns attempts performed by one actor, newest first.
func (s *Store) AttemptsByActor(ctx context.Context, actorID string, limit int) ([]transition.TransitionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := attemptColumns + `
		WHERE user_id = ?
		ORDER BY seq DESC
	` + limitClause(limit)

	return s.queryAttempts(ctx, query, actorID)
}

const attemptColumns = `
	SELECT id, entity_type, entity_id, from_state, to_state, user_id, username,
	       timestamp, success, failure_reason, metadata_json, duration_ms, transaction_id
	FROM transition_attempts
`

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

func (s *Store) queryAttempts(ctx context.Context, query string, args ...any) ([]transition.TransitionAttempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []transition.TransitionAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

func scanAttempt(rows *sql.Rows) (transition.TransitionAttempt, error) {
	var (
		attempt       transition.TransitionAttempt
		timestamp     string
		username      sql.NullString
		failureReason sql.NullString
		metadataJSON  sql.NullString
		durationMS    sql.NullInt64
		transactionID sql.NullString
	)

	err := rows.Scan(
		&attempt.ID, &attempt.EntityType, &attempt.EntityID,
		&attempt.FromState, &attempt.ToState, &attempt.ActorID, &username,
		&timestamp, &attempt.Success, &failureReason, &metadataJSON,
		&durationMS, &transactionID,
	)
	if err != nil {
		return attempt, fmt.Errorf("failed to scan attempt: %w", err)
	}

	attempt.ActorName = username.String
	attempt.FailureReason = failureReason.String
	attempt.TransactionID = transactionID.String
	attempt.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	if durationMS.Valid {
		ms := durationMS.Int64
		attempt.DurationMS = &ms
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		json.Unmarshal([]byte(metadataJSON.String), &attempt.Metadata)
	}

	return attempt, nil
}

// =============================================================================
// COMPLIANCE STORE (transition.ComplianceStore interface)
// =============================================================================

// AppendCompliance adds one compliance record and returns its id.
func (s *Store) AppendCompliance(ctx context.Context, record transition.ComplianceRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := `
		INSERT INTO compliance_records
		(id, entity_type, entity_id, user_id, rule_id, rule_name, is_compliant, message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		id,
		record.EntityType,
		record.EntityID,
		record.ActorID,
		record.RuleID,
		record.RuleName,
		record.Compliant,
		nullString(record.Message),
		ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("failed to append compliance record: %w", err)
	}

	return id, nil
}

// ComplianceByEntity returns records for one entity, newest first.
func (s *Store) ComplianceByEntity(ctx context.Context, entityType, entityID string, limit int) ([]transition.ComplianceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, entity_type, entity_id, user_id, rule_id, rule_name, is_compliant, message, timestamp
		FROM compliance_records
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY seq DESC
	` + limitClause(limit)

	rows, err := s.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query compliance records: %w", err)
	}
	defer rows.Close()

	var records []transition.ComplianceRecord
	for rows.Next() {
		var (
			record    transition.ComplianceRecord
			message   sql.NullString
			timestamp string
		)
		err := rows.Scan(
			&record.ID, &record.EntityType, &record.EntityID, &record.ActorID,
			&record.RuleID, &record.RuleName, &record.Compliant, &message, &timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compliance record: %w", err)
		}
		record.Message = message.String
		record.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		records = append(records, record)
	}

	return records, rows.Err()
}

// =============================================================================
// RULE SOURCE / RULE WRITER
// =============================================================================

// LoadRules reassembles the complete rule set from the edge table.
func (s *Store) LoadRules(ctx context.Context) (transition.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, from_state, to_state
		FROM transition_rules
		ORDER BY entity_type, from_state, position, to_state
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	rules := transition.RuleSet{}
	for rows.Next() {
		var entityType, fromState, toState string
		if err := rows.Scan(&entityType, &fromState, &toState); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		states := rules[entityType]
		if states == nil {
			states = transition.StateRules{}
			rules[entityType] = states
		}
		states[fromState] = append(states[fromState], toState)
	}

	return rules, rows.Err()
}

// SaveRules replaces the stored edges for one entity type atomically.
func (s *Store) SaveRules(ctx context.Context, entityType string, rules transition.StateRules) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM transition_rules WHERE entity_type = ?", entityType,
	); err != nil {
		return fmt.Errorf("failed to clear rules: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for fromState, targets := range rules {
		for i, toState := range targets {
			if _, err := sqlTx.ExecContext(ctx, `
				INSERT INTO transition_rules (entity_type, from_state, to_state, position, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, entityType, fromState, toState, i, now); err != nil {
				return fmt.Errorf("failed to insert rule: %w", err)
			}
		}
	}

	return sqlTx.Commit()
}

// SaveRuleSet persists a complete rule set, replacing each entity type's
// edges. Used to seed a fresh database from file or embedded defaults.
func (s *Store) SaveRuleSet(ctx context.Context, rules transition.RuleSet) error {
	for entityType, states := range rules {
		if err := s.SaveRules(ctx, entityType, states); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
