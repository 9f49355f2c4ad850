/*
source.go - Backing sources for the rule store

PURPOSE:
  A RuleSource supplies the complete rule set on load/reload. The wire
  format is a mapping entityType -> (fromState -> [toState, ...]):

    {"task": {"pending": ["in_progress", "cancelled"],
              "in_progress": ["completed", "blocked"]}}

  Unknown or missing entries mean "no legal transitions", never
  wildcard-allow.

IMPLEMENTATIONS:
  - StaticSource:        fixed in-memory rules (tests, embedded defaults)
  - factory.FileSource:  JSON file on disk, parsed by the rule codec
  - store/sqlite:        persisted rules table (also a RuleWriter)

SEE ALSO:
  - rules.go: RuleStore consuming these sources
  - factory/rules.go: The JSON rule codec
*/
package transition

import (
	"context"
)

// RuleSource supplies a complete rule set. LoadRules is called once at
// startup and again on every Reload.
type RuleSource interface {
	LoadRules(ctx context.Context) (RuleSet, error)
}

// RuleWriter persists per-entity-type rule updates. Sources that also
// implement RuleWriter make UpdateRules durable.
type RuleWriter interface {
	SaveRules(ctx context.Context, entityType string, rules StateRules) error
}

// =============================================================================
// STATIC SOURCE
// =============================================================================

// StaticSource serves a fixed rule set. Reload against it is a no-op
// refresh, useful for embedded defaults and tests.
type StaticSource struct {
	Rules RuleSet
}

func (s StaticSource) LoadRules(_ context.Context) (RuleSet, error) {
	return s.Rules.Clone(), nil
}
