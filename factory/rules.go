/*
Package factory provides JSON to Go rule-set conversion.

PURPOSE:
  Converts JSON rule definitions into transition.RuleSet values. This
  enables rule configuration without code changes - operators can define
  transition graphs in JSON, and the factory produces validated rule sets.

WHY JSON?
  - Non-developers can modify transition graphs
  - Easy integration with admin UI
  - Version control for rule definitions
  - Database storage of rule configs

JSON SCHEMA:
  {
    "task": {
      "pending": ["in_progress", "cancelled"],
      "in_progress": ["completed", "blocked"]
    },
    "reminder": {
      "scheduled": ["snoozed", "dismissed"]
    }
  }

  A state absent from the mapping has no legal transitions. Absence is
  never wildcard-allow.

USAGE:
  rules, err := factory.ParseRules(jsonString)
  store, err := transition.NewRuleStore(rules)

SEE ALSO:
  - transition/rules.go: RuleSet type and validation
  - source.go: FileSource feeding this codec from disk
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/transition-engine/transition"
)

// ParseRules converts a JSON document into a validated rule set.
func ParseRules(data string) (transition.RuleSet, error) {
	var rules transition.RuleSet
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return nil, fmt.Errorf("invalid rules JSON: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// ParseStateRules converts a JSON document holding one entity type's rules,
// the payload shape accepted by the rule-update API.
func ParseStateRules(data string) (transition.StateRules, error) {
	var rules transition.StateRules
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return nil, fmt.Errorf("invalid state rules JSON: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// SerializeRules renders a rule set back to its JSON form.
func SerializeRules(rules transition.RuleSet) (string, error) {
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize rules: %w", err)
	}
	return string(data), nil
}
