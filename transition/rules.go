/*
rules.go - Transition rule storage and lookup

PURPOSE:
  Holds, per entity type, the set of permitted (fromState -> {toState})
  edges. Answers "is this transition legal?" and "what can this entity do
  next?". Rules are loaded at startup from a RuleSource, replaceable
  wholesale via Reload, or incrementally via UpdateRules.

DENY-BY-DEFAULT:
  The absence of a rule is never implicitly "allow". An unknown entity
  type, an unknown fromState, or a toState missing from the allowed set
  all answer false.

CONCURRENCY:
  Read-mostly. The current rule set is an immutable snapshot behind an
  atomic pointer. Reload and UpdateRules build a full replacement and
  swap it in one store; readers observe either the old or the new set in
  full, never a partial mix. Writers serialize among themselves.

SEE ALSO:
  - source.go: Backing sources (static, JSON file)
  - validator.go: Request-shape normalization on top of this store
*/
package transition

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// =============================================================================
// RULE SET - Immutable value types
// =============================================================================

// StateRules maps a from-state to its ordered list of legal target states.
type StateRules map[string][]string

// RuleSet maps an entity type to its StateRules.
type RuleSet map[string]StateRules

// Clone returns a deep copy. Snapshots handed to the store must never
// share backing storage with caller-held maps.
func (r RuleSet) Clone() RuleSet {
	out := make(RuleSet, len(r))
	for entityType, states := range r {
		out[entityType] = states.Clone()
	}
	return out
}

// Clone returns a deep copy of the per-entity-type rules.
func (s StateRules) Clone() StateRules {
	out := make(StateRules, len(s))
	for from, targets := range s {
		out[from] = append([]string(nil), targets...)
	}
	return out
}

// Validate rejects rule sets with empty entity type or state names.
func (r RuleSet) Validate() error {
	for entityType, states := range r {
		if strings.TrimSpace(entityType) == "" {
			return fmt.Errorf("%w: entity type", ErrEmptyStateName)
		}
		if err := states.Validate(); err != nil {
			return fmt.Errorf("entity type %q: %w", entityType, err)
		}
	}
	return nil
}

// Validate rejects state rules with empty state names.
func (s StateRules) Validate() error {
	for from, targets := range s {
		if strings.TrimSpace(from) == "" {
			return fmt.Errorf("%w: from-state", ErrEmptyStateName)
		}
		for _, to := range targets {
			if strings.TrimSpace(to) == "" {
				return fmt.Errorf("%w: target of %q", ErrEmptyStateName, from)
			}
		}
	}
	return nil
}

// =============================================================================
// RULE STORE - Snapshot-swapped, read-mostly
// =============================================================================

// RuleStore answers transition legality questions against the current
// rule snapshot. Safe for concurrent readers and writers.
type RuleStore struct {
	snapshot atomic.Pointer[RuleSet]

	// writeMu serializes Reload/UpdateRules so concurrent writers cannot
	// interleave clone-modify-swap cycles. Readers never take it.
	writeMu sync.Mutex
	source  RuleSource
	writer  RuleWriter
}

// NewRuleStore creates a store seeded with the given rules.
// The rules are cloned; the caller's map is not retained.
func NewRuleStore(rules RuleSet) (*RuleStore, error) {
	if rules == nil {
		rules = RuleSet{}
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	s := &RuleStore{}
	snap := rules.Clone()
	s.snapshot.Store(&snap)
	return s, nil
}

// NewRuleStoreFromSource creates a store and performs an initial load.
// If src also implements RuleWriter, UpdateRules persists through it.
func NewRuleStoreFromSource(ctx context.Context, src RuleSource) (*RuleStore, error) {
	rules, err := src.LoadRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial rule load: %w", err)
	}
	s, err := NewRuleStore(rules)
	if err != nil {
		return nil, err
	}
	s.source = src
	s.writer, _ = src.(RuleWriter)
	return s, nil
}

func (s *RuleStore) current() RuleSet {
	return *s.snapshot.Load()
}

// GetRules returns the fromState -> targets mapping for an entity type.
// The returned rules are a copy; mutating them does not affect the store.
func (s *RuleStore) GetRules(entityType string) (StateRules, error) {
	states, ok := s.current()[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityTypeNotFound, entityType)
	}
	return states.Clone(), nil
}

// GetAvailableTransitions enumerates the legal target states from a given
// state. Returns an empty slice (never an error) for unknown entity types
// or states with no outgoing edges.
func (s *RuleStore) GetAvailableTransitions(entityType, fromState string) []string {
	targets := s.current()[entityType][fromState]
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// IsValidTransition answers whether fromState -> toState is permitted for
// the entity type. Deny-by-default: false for anything not present.
func (s *RuleStore) IsValidTransition(entityType, fromState, toState string) bool {
	for _, target := range s.current()[entityType][fromState] {
		if target == toState {
			return true
		}
	}
	return false
}

// ListEntityTypes returns all entity types with at least one rule, sorted.
func (s *RuleStore) ListEntityTypes() []string {
	snap := s.current()
	out := make([]string, 0, len(snap))
	for entityType := range snap {
		out = append(out, entityType)
	}
	sort.Strings(out)
	return out
}

// Reload atomically replaces the entire rule set from the backing source.
// Calling Reload twice against an unchanged source yields identical sets.
func (s *RuleStore) Reload(ctx context.Context) error {
	if s.source == nil {
		return ErrNoRuleSource
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rules, err := s.source.LoadRules(ctx)
	if err != nil {
		return fmt.Errorf("reload rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return err
	}

	snap := rules.Clone()
	s.snapshot.Store(&snap)
	return nil
}

// UpdateRules atomically replaces the rules for one entity type, leaving
// all other entity types untouched. Persists through the backing source
// when it supports writes; the snapshot is swapped only after persistence
// succeeds, so readers never serve rules the source rejected.
func (s *RuleStore) UpdateRules(ctx context.Context, entityType string, rules StateRules) error {
	if strings.TrimSpace(entityType) == "" {
		return fmt.Errorf("%w: entity type", ErrEmptyStateName)
	}
	if err := rules.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writer != nil {
		if err := s.writer.SaveRules(ctx, entityType, rules); err != nil {
			return fmt.Errorf("persist rules for %s: %w", entityType, err)
		}
	}

	next := s.current().Clone()
	next[entityType] = rules.Clone()
	s.snapshot.Store(&next)
	return nil
}

// Snapshot returns a copy of the complete current rule set.
func (s *RuleStore) Snapshot() RuleSet {
	return s.current().Clone()
}
