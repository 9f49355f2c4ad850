package tasks_test

import (
	"context"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/transition-engine/tasks"
	"github.com/warp/transition-engine/transition"
	"github.com/warp/transition-engine/transition/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*tasks.Service, *store.Memory) {
	t.Helper()

	ruleStore, err := transition.NewRuleStore(tasks.DefaultRules())
	require.NoError(t, err)

	mem := store.NewMemory()
	logger := slogt.New(t)
	coord := transition.NewCoordinator(
		transition.NewValidator(ruleStore),
		transition.NewTransactionLog(mem),
		transition.NewComplianceRecorder(mem, logger),
		logger,
		transition.NewMetrics(prometheus.NewRegistry()),
	)
	return tasks.NewService(coord), mem
}

// =============================================================================
// ENTITY REGISTRY
// =============================================================================

func TestEntityTypesRegistered(t *testing.T) {
	assert.Equal(t, tasks.EntityTask, transition.MustLookupEntityType("task"))
	assert.Equal(t, "tasks", transition.LookupEntityType("reminder").EntityDomain())
}

// =============================================================================
// TASK LIFECYCLE
// =============================================================================

func TestTransition_FullLifecycle(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	svc.CreateTask("t-1", "write report")

	result, err := svc.Transition(ctx, "t-1", tasks.StateInProgress, "user-1", "Dana")
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, tasks.StateInProgress, result.Value.State)

	result, err = svc.Transition(ctx, "t-1", tasks.StateCompleted, "user-1", "Dana")
	require.NoError(t, err)
	require.True(t, result.Success)

	task, ok := svc.GetTask("t-1")
	require.True(t, ok)
	assert.Equal(t, tasks.StateCompleted, task.State)

	attempts, err := mem.AttemptsByEntity(ctx, "task", "t-1", 0)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestTransition_IllegalEdgeRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.CreateTask("t-1", "write report")

	// pending -> completed skips in_progress
	result, err := svc.Transition(ctx, "t-1", tasks.StateCompleted, "user-1", "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, transition.CodeInvalidTransition, result.ErrorCode)

	task, _ := svc.GetTask("t-1")
	assert.Equal(t, tasks.StatePending, task.State, "state must be untouched")
}

func TestTransition_UnknownTask(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Transition(context.Background(), "missing", tasks.StateInProgress, "user-1", "")
	assert.Error(t, err)
}

// =============================================================================
// DISTRIBUTED FLOW
// =============================================================================

func TestCompleteWithFollowUp_Success(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	svc.CreateTask("t-1", "write report")
	_, err := svc.Transition(ctx, "t-1", tasks.StateInProgress, "user-1", "")
	require.NoError(t, err)

	result, err := svc.CompleteWithFollowUp(ctx, "t-1", "t-2", "review report", "user-1")
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "t-2", result.Value)

	followUp, ok := svc.GetTask("t-2")
	require.True(t, ok)
	assert.Equal(t, tasks.StatePending, followUp.State)

	done, _ := svc.GetTask("t-1")
	assert.Equal(t, tasks.StateCompleted, done.State)

	attempts, err := mem.AttemptsByTransaction(ctx, result.TransactionID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
}

func TestCompleteWithFollowUp_FailureCompensates(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	// Task still pending: completing it is illegal, so the distributed
	// operation fails and compensation removes the follow-up.
	svc.CreateTask("t-1", "write report")

	result, err := svc.CompleteWithFollowUp(ctx, "t-1", "t-2", "review report", "user-1")
	require.NoError(t, err)
	assert.False(t, result.Success)

	_, ok := svc.GetTask("t-2")
	assert.False(t, ok, "compensation must remove the partially created follow-up")

	attempts, err := mem.AttemptsByTransaction(ctx, result.TransactionID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Success)
}
