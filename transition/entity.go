/*
entity.go - Entity type registration and lookup

PURPOSE:
  Provides a registry for domain packages to register their entity types.
  Rules and attempts are keyed by string in storage; the registry maps
  those strings back to concrete typed constants so typos are caught at
  compile time in domain code while the engine stays rule-driven.

HOW IT WORKS:
  1. Domain packages define their EntityType implementations
  2. Domain packages register them on init() or explicit registration
  3. The API layer uses the registry to annotate audit entries with their
     owning domain and to list the registered types

USAGE:
  // In tasks/types.go
  func init() {
      transition.RegisterEntityType(EntityTask)
      transition.RegisterEntityType(EntityReminder)
  }

  entityType := transition.LookupEntityType("task") // returns tasks.EntityTask

WHY A REGISTRY:
  - The transition package stays domain-agnostic
  - Type safety maintained at compile time in domain packages
  - New entity types remain registrable at runtime for rule-driven systems

SEE ALSO:
  - types.go: EntityType interface definition
  - tasks/types.go: Task entity implementations
*/
package transition

import (
	"fmt"
	"sync"
)

// =============================================================================
// ENTITY TYPE REGISTRY
// =============================================================================

var (
	entityRegistry = make(map[string]EntityType)
	registryMu     sync.RWMutex
)

// RegisterEntityType adds an entity type to the global registry.
// Call this from domain package init() functions.
func RegisterEntityType(e EntityType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	entityRegistry[e.EntityTypeID()] = e
}

// LookupEntityType finds a registered entity type by ID.
// Returns nil if not found.
func LookupEntityType(id string) EntityType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return entityRegistry[id]
}

// MustLookupEntityType finds a registered entity type or panics.
// Use in tests or when you're certain the type exists.
func MustLookupEntityType(id string) EntityType {
	e := LookupEntityType(id)
	if e == nil {
		panic(fmt.Sprintf("entity type not registered: %s", id))
	}
	return e
}

// RegisteredEntityTypes returns all registered entity types.
func RegisteredEntityTypes() []EntityType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]EntityType, 0, len(entityRegistry))
	for _, e := range entityRegistry {
		result = append(result, e)
	}
	return result
}

// =============================================================================
// STRING ENTITY - For testing and fallback
// =============================================================================

// StringEntity is a simple string-based entity type.
// Use only for testing or as a fallback when domain types aren't loaded.
type StringEntity struct {
	ID     string
	Domain string
}

func (e StringEntity) EntityTypeID() string { return e.ID }
func (e StringEntity) EntityDomain() string { return e.Domain }

// GetOrCreateEntityType looks up an entity type, or creates a StringEntity
// fallback. Use in deserialization when the domain might not be loaded.
func GetOrCreateEntityType(id string) EntityType {
	if e := LookupEntityType(id); e != nil {
		return e
	}
	return StringEntity{ID: id, Domain: "unknown"}
}
