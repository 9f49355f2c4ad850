package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/transition-engine/store/sqlite"
	"github.com/warp/transition-engine/transition"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func attempt(entityID, from, to string, success bool) transition.TransitionAttempt {
	ms := int64(12)
	return transition.TransitionAttempt{
		EntityType: "task",
		EntityID:   entityID,
		FromState:  from,
		ToState:    to,
		ActorID:    "user-1",
		ActorName:  "Test User",
		Success:    success,
		Metadata:   map[string]string{"source": "test"},
		DurationMS: &ms,
	}
}

// =============================================================================
// ATTEMPT STORE
// =============================================================================

func TestAppendAttempt_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := attempt("42", "pending", "in_progress", true)
	a.Timestamp = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	id, err := store.AppendAttempt(ctx, a)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.AttemptsByEntity(ctx, "task", "42", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "task", got[0].EntityType)
	assert.Equal(t, "pending", got[0].FromState)
	assert.Equal(t, "in_progress", got[0].ToState)
	assert.Equal(t, "user-1", got[0].ActorID)
	assert.Equal(t, "Test User", got[0].ActorName)
	assert.True(t, got[0].Success)
	assert.Empty(t, got[0].FailureReason)
	assert.Equal(t, map[string]string{"source": "test"}, got[0].Metadata)
	require.NotNil(t, got[0].DurationMS)
	assert.Equal(t, int64(12), *got[0].DurationMS)
	assert.True(t, got[0].Timestamp.Equal(a.Timestamp))
}

func TestAttemptsByEntity_NewestFirstAndLimited(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AppendAttempt(ctx, attempt("42", "pending", "in_progress", true))
	require.NoError(t, err)
	_, err = store.AppendAttempt(ctx, attempt("42", "in_progress", "completed", true))
	require.NoError(t, err)
	_, err = store.AppendAttempt(ctx, attempt("other", "pending", "cancelled", true))
	require.NoError(t, err)

	failed := attempt("42", "completed", "pending", false)
	failed.FailureReason = "invalid transition for task: completed -> pending"
	_, err = store.AppendAttempt(ctx, failed)
	require.NoError(t, err)

	got, err := store.AttemptsByEntity(ctx, "task", "42", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "pending", got[0].ToState, "newest attempt first")
	assert.False(t, got[0].Success)
	assert.Equal(t, "invalid transition for task: completed -> pending", got[0].FailureReason)
	assert.Equal(t, "completed", got[1].ToState)
}

func TestAttemptsByTransaction_GroupsParticipants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := attempt("tx-group", "in_progress", "completed", true)
	a.TransactionID = "tx-99"
	_, err := store.AppendAttempt(ctx, a)
	require.NoError(t, err)

	b := attempt("tx-group", "pending", "in_progress", true)
	b.TransactionID = "tx-99"
	_, err = store.AppendAttempt(ctx, b)
	require.NoError(t, err)

	_, err = store.AppendAttempt(ctx, attempt("42", "pending", "in_progress", true))
	require.NoError(t, err)

	got, err := store.AttemptsByTransaction(ctx, "tx-99")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, each := range got {
		assert.Equal(t, "tx-99", each.TransactionID)
	}
}

func TestAttemptsByActor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := attempt("42", "pending", "in_progress", true)
	a.ActorID = "user-7"
	_, err := store.AppendAttempt(ctx, a)
	require.NoError(t, err)
	_, err = store.AppendAttempt(ctx, attempt("42", "in_progress", "completed", true))
	require.NoError(t, err)

	got, err := store.AttemptsByActor(ctx, "user-7", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "user-7", got[0].ActorID)
}

func TestAppendAttempt_NullableFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// No duration, no username, no transaction id, no metadata
	a := transition.TransitionAttempt{
		EntityType: "task",
		EntityID:   "42",
		FromState:  "pending",
		ToState:    "in_progress",
		ActorID:    "user-1",
		Success:    true,
	}
	_, err := store.AppendAttempt(ctx, a)
	require.NoError(t, err)

	got, err := store.AttemptsByEntity(ctx, "task", "42", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].DurationMS)
	assert.Empty(t, got[0].ActorName)
	assert.Empty(t, got[0].TransactionID)
}

// =============================================================================
// COMPLIANCE STORE
// =============================================================================

func TestCompliance_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.AppendCompliance(ctx, transition.ComplianceRecord{
		EntityType: "task",
		EntityID:   "42",
		ActorID:    "user-1",
		RuleID:     "policy-7",
		RuleName:   "working hours",
		Compliant:  false,
		Message:    "completed at 03:12",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = store.AppendCompliance(ctx, transition.ComplianceRecord{
		EntityType: "task",
		EntityID:   "42",
		ActorID:    "user-1",
		RuleID:     "policy-8",
		RuleName:   "assignee present",
		Compliant:  true,
	})
	require.NoError(t, err)

	got, err := store.ComplianceByEntity(ctx, "task", "42", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "policy-8", got[0].RuleID, "newest first")
	assert.True(t, got[0].Compliant)
	assert.Equal(t, "policy-7", got[1].RuleID)
	assert.False(t, got[1].Compliant)
	assert.Equal(t, "completed at 03:12", got[1].Message)
	assert.False(t, got[1].Timestamp.IsZero())
}

// =============================================================================
// RULE PERSISTENCE
// =============================================================================

func TestRules_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveRules(ctx, "task", transition.StateRules{
		"pending":     {"in_progress", "cancelled"},
		"in_progress": {"completed"},
	})
	require.NoError(t, err)

	rules, err := store.LoadRules(ctx)
	require.NoError(t, err)
	require.Contains(t, rules, "task")
	assert.Equal(t, []string{"in_progress", "cancelled"}, rules["task"]["pending"], "target order preserved")
	assert.Equal(t, []string{"completed"}, rules["task"]["in_progress"])
}

func TestRules_SaveReplacesEntityType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRules(ctx, "task", transition.StateRules{
		"pending": {"in_progress"},
	}))
	require.NoError(t, store.SaveRules(ctx, "task", transition.StateRules{
		"pending": {"cancelled"},
	}))

	rules, err := store.LoadRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cancelled"}, rules["task"]["pending"])
}

func TestRules_BackRuleStore(t *testing.T) {
	// The sqlite store is both RuleSource and RuleWriter: an UpdateRules
	// on the rule store survives a fresh load.
	store := newTestStore(t)
	ctx := context.Background()

	ruleStore, err := transition.NewRuleStoreFromSource(ctx, store)
	require.NoError(t, err)

	require.NoError(t, ruleStore.UpdateRules(ctx, "reminder", transition.StateRules{
		"scheduled": {"snoozed", "dismissed"},
	}))

	reloaded, err := transition.NewRuleStoreFromSource(ctx, store)
	require.NoError(t, err)
	assert.True(t, reloaded.IsValidTransition("reminder", "scheduled", "snoozed"))
	assert.Equal(t, []string{"snoozed", "dismissed"}, reloaded.GetAvailableTransitions("reminder", "scheduled"))
}

// =============================================================================
// CONCURRENT APPENDS
// =============================================================================

func TestAppendAttempt_ConcurrentWriters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := store.AppendAttempt(ctx, attempt("42", "pending", "in_progress", true))
			done <- err
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}

	got, err := store.AttemptsByEntity(ctx, "task", "42", 0)
	require.NoError(t, err)
	assert.Len(t, got, 20, "no attempt may be lost under concurrent writers")
}
