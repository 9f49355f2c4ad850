/*
validator.go - Transition validation facade

PURPOSE:
  Thin facade over the rule store plus request-shape normalization.
  Trims and checks that entity type, fromState and toState are non-empty,
  then answers the purely rule-based question. Actor id and metadata are
  accepted for audit context only; they never influence the decision.

SEE ALSO:
  - rules.go: The underlying rule store
  - compliance.go: Where callers log the check when they want a record
*/
package transition

import (
	"strings"
)

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationRequest carries one transition question. ActorID and Metadata
// are threaded through for callers who log the check via the compliance
// recorder; the decision is rule-based only.
type ValidationRequest struct {
	EntityType string
	FromState  string
	ToState    string
	ActorID    string
	Metadata   map[string]string
}

// Decision is the validator's answer, with the normalized inputs echoed
// back so audit entries use the canonical form.
type Decision struct {
	Valid      bool
	Reason     string // empty iff Valid
	EntityType string
	FromState  string
	ToState    string
}

// Validator answers "may this entity move from here to there?".
type Validator struct {
	Rules *RuleStore
}

func NewValidator(rules *RuleStore) *Validator {
	return &Validator{Rules: rules}
}

// Validate normalizes the request and consults the rule store.
func (v *Validator) Validate(req ValidationRequest) Decision {
	d := Decision{
		EntityType: strings.TrimSpace(req.EntityType),
		FromState:  strings.TrimSpace(req.FromState),
		ToState:    strings.TrimSpace(req.ToState),
	}

	switch {
	case d.EntityType == "":
		d.Reason = "entity type is required"
	case d.FromState == "":
		d.Reason = "from-state is required"
	case d.ToState == "":
		d.Reason = "to-state is required"
	case !v.Rules.IsValidTransition(d.EntityType, d.FromState, d.ToState):
		d.Reason = (&InvalidTransitionError{
			EntityType: d.EntityType,
			FromState:  d.FromState,
			ToState:    d.ToState,
		}).Error()
	default:
		d.Valid = true
	}
	return d
}

// AvailableTransitions enumerates legal next states for an entity type
// and state. Empty for anything unknown, never an error.
func (v *Validator) AvailableTransitions(entityType, fromState string) []string {
	return v.Rules.GetAvailableTransitions(strings.TrimSpace(entityType), strings.TrimSpace(fromState))
}
