package transition_test

import (
	"testing"

	"github.com/warp/transition-engine/transition"
)

func newTestValidator(t *testing.T) *transition.Validator {
	t.Helper()
	store, err := transition.NewRuleStore(taskRules())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return transition.NewValidator(store)
}

func TestValidate_TrimsInputs(t *testing.T) {
	v := newTestValidator(t)

	d := v.Validate(transition.ValidationRequest{
		EntityType: " task ",
		FromState:  "pending ",
		ToState:    " in_progress",
	})

	if !d.Valid {
		t.Fatalf("expected valid, got reason %q", d.Reason)
	}
	if d.EntityType != "task" || d.FromState != "pending" || d.ToState != "in_progress" {
		t.Errorf("expected normalized echo, got %q %q %q", d.EntityType, d.FromState, d.ToState)
	}
}

func TestValidate_RejectsEmptyInputs(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name string
		req  transition.ValidationRequest
	}{
		{"missing entity type", transition.ValidationRequest{FromState: "a", ToState: "b"}},
		{"missing from-state", transition.ValidationRequest{EntityType: "task", ToState: "b"}},
		{"missing to-state", transition.ValidationRequest{EntityType: "task", FromState: "a"}},
		{"whitespace only", transition.ValidationRequest{EntityType: "  ", FromState: "a", ToState: "b"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := v.Validate(tc.req)
			if d.Valid {
				t.Error("expected invalid")
			}
			if d.Reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestValidate_ActorAndMetadataDoNotGate(t *testing.T) {
	// The decision is purely rule-based: actor and metadata are audit
	// context only.
	v := newTestValidator(t)

	with := v.Validate(transition.ValidationRequest{
		EntityType: "task", FromState: "pending", ToState: "in_progress",
		ActorID:  "user-9",
		Metadata: map[string]string{"expected_version": "3"},
	})
	without := v.Validate(transition.ValidationRequest{
		EntityType: "task", FromState: "pending", ToState: "in_progress",
	})

	if with.Valid != without.Valid {
		t.Error("actor/metadata must not influence the decision")
	}
}
