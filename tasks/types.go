// Package tasks implements a task-domain collaborator for the transition
// engine. It registers task entity types, supplies their canonical rule
// sets, and drives the coordinator for task lifecycle changes.
package tasks

import "github.com/warp/transition-engine/transition"

// =============================================================================
// TASK ENTITY TYPES
// =============================================================================

// Entity is the concrete entity type for the task domain.
// Implements transition.EntityType interface.
type Entity string

func (e Entity) EntityTypeID() string { return string(e) }
func (e Entity) EntityDomain() string { return "tasks" }

// Compile-time check that Entity implements transition.EntityType
var _ transition.EntityType = Entity("")

// Entity types for the task domain
const (
	EntityTask     Entity = "task"
	EntityReminder Entity = "reminder"
	EntityCategory Entity = "category"
)

// Register all task-domain entities with the transition registry
func init() {
	transition.RegisterEntityType(EntityTask)
	transition.RegisterEntityType(EntityReminder)
	transition.RegisterEntityType(EntityCategory)
}

// =============================================================================
// TASK STATES
// =============================================================================

const (
	StatePending    = "pending"
	StateInProgress = "in_progress"
	StateBlocked    = "blocked"
	StateCompleted  = "completed"
	StateCancelled  = "cancelled"

	StateScheduled = "scheduled"
	StateTriggered = "triggered"
	StateSnoozed   = "snoozed"
	StateDismissed = "dismissed"

	StateActive   = "active"
	StateArchived = "archived"
)

// DefaultRules returns the canonical transition graph for the task domain.
// "completed", "cancelled", "dismissed" and "archived" are terminal: they
// have no outgoing edges, so nothing transitions out of them.
func DefaultRules() transition.RuleSet {
	return transition.RuleSet{
		string(EntityTask): {
			StatePending:    {StateInProgress, StateCancelled},
			StateInProgress: {StateCompleted, StateBlocked, StateCancelled},
			StateBlocked:    {StateInProgress, StateCancelled},
		},
		string(EntityReminder): {
			StateScheduled: {StateTriggered, StateSnoozed, StateDismissed},
			StateTriggered: {StateSnoozed, StateDismissed},
			StateSnoozed:   {StateScheduled, StateDismissed},
		},
		string(EntityCategory): {
			StateActive:   {StateArchived},
			StateArchived: {StateActive},
		},
	}
}
