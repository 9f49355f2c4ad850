// Package store provides AttemptStore and ComplianceStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/transition-engine/transition"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	attempts   []transition.TransitionAttempt
	byEntity   map[entityKey][]int // indexes into attempts, append order
	byTx       map[string][]int
	byActor    map[string][]int
	compliance map[entityKey][]transition.ComplianceRecord
}

type entityKey struct {
	EntityType string
	EntityID   string
}

func NewMemory() *Memory {
	return &Memory{
		byEntity:   make(map[entityKey][]int),
		byTx:       make(map[string][]int),
		byActor:    make(map[string][]int),
		compliance: make(map[entityKey][]transition.ComplianceRecord),
	}
}

// AppendAttempt stores one attempt and returns its generated id. Append-only.
func (m *Memory) AppendAttempt(_ context.Context, attempt transition.TransitionAttempt) (transition.AttemptID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt.ID = transition.AttemptID(uuid.NewString())
	idx := len(m.attempts)
	m.attempts = append(m.attempts, attempt)

	k := entityKey{EntityType: attempt.EntityType, EntityID: attempt.EntityID}
	m.byEntity[k] = append(m.byEntity[k], idx)
	if attempt.TransactionID != "" {
		m.byTx[attempt.TransactionID] = append(m.byTx[attempt.TransactionID], idx)
	}
	if attempt.ActorID != "" {
		m.byActor[attempt.ActorID] = append(m.byActor[attempt.ActorID], idx)
	}
	return attempt.ID, nil
}

func (m *Memory) AttemptsByEntity(_ context.Context, entityType, entityID string, limit int) ([]transition.TransitionAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(m.byEntity[entityKey{EntityType: entityType, EntityID: entityID}], limit), nil
}

func (m *Memory) AttemptsByTransaction(_ context.Context, transactionID string) ([]transition.TransitionAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(m.byTx[transactionID], 0), nil
}

func (m *Memory) AttemptsByActor(_ context.Context, actorID string, limit int) ([]transition.TransitionAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(m.byActor[actorID], limit), nil
}

// collect materializes indexes newest-first, bounded by limit.
func (m *Memory) collect(idxs []int, limit int) []transition.TransitionAttempt {
	result := make([]transition.TransitionAttempt, 0, len(idxs))
	for i := len(idxs) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, m.attempts[idxs[i]])
	}
	return result
}

// AppendCompliance stores one compliance record. Append-only.
func (m *Memory) AppendCompliance(_ context.Context, record transition.ComplianceRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.ID = uuid.NewString()
	k := entityKey{EntityType: record.EntityType, EntityID: record.EntityID}
	m.compliance[k] = append(m.compliance[k], record)
	return record.ID, nil
}

func (m *Memory) ComplianceByEntity(_ context.Context, entityType, entityID string, limit int) ([]transition.ComplianceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.compliance[entityKey{EntityType: entityType, EntityID: entityID}]
	result := make([]transition.ComplianceRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, records[i])
	}
	return result, nil
}
