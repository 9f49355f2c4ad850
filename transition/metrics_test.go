package transition

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// =============================================================================
// METRICS TESTS
// =============================================================================

// recordingStore is a minimal append-only store for exercising the
// coordinator in-package. The in-memory implementation in transition/store
// cannot be imported here without a cycle.
type recordingStore struct {
	attempts []TransitionAttempt
}

func (s *recordingStore) AppendAttempt(_ context.Context, attempt TransitionAttempt) (AttemptID, error) {
	attempt.ID = AttemptID(fmt.Sprintf("a-%d", len(s.attempts)+1))
	s.attempts = append(s.attempts, attempt)
	return attempt.ID, nil
}

func (s *recordingStore) AttemptsByEntity(_ context.Context, entityType, entityID string, limit int) ([]TransitionAttempt, error) {
	return nil, nil
}

func (s *recordingStore) AttemptsByTransaction(_ context.Context, transactionID string) ([]TransitionAttempt, error) {
	return nil, nil
}

func (s *recordingStore) AttemptsByActor(_ context.Context, actorID string, limit int) ([]TransitionAttempt, error) {
	return nil, nil
}

func (s *recordingStore) AppendCompliance(_ context.Context, record ComplianceRecord) (string, error) {
	return "c-1", nil
}

func (s *recordingStore) ComplianceByEntity(_ context.Context, entityType, entityID string, limit int) ([]ComplianceRecord, error) {
	return nil, nil
}

func newMetricsCoordinator(t *testing.T) *Coordinator {
	t.Helper()

	ruleStore, err := NewRuleStore(RuleSet{
		"task": {
			"pending":     {"in_progress"},
			"in_progress": {"completed"},
		},
	})
	if err != nil {
		t.Fatalf("failed to build rule store: %v", err)
	}

	rec := &recordingStore{}
	logger := slogt.New(t)
	return NewCoordinator(
		NewValidator(ruleStore),
		NewTransactionLog(rec),
		NewComplianceRecorder(rec, logger),
		logger,
		NewMetrics(prometheus.NewRegistry()),
	)
}

func TestMetricsCountOutcomes(t *testing.T) {
	c := newMetricsCoordinator(t)
	ctx := context.Background()

	// One success, one rejection, one operation failure.
	if _, err := Execute(ctx, c, Request{
		EntityType: "task", EntityID: "t-1", FromState: "pending", ToState: "in_progress", ActorID: "u-1",
	}, func(ctx context.Context) (string, error) { return "ok", nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := Execute(ctx, c, Request{
		EntityType: "task", EntityID: "t-1", FromState: "pending", ToState: "completed", ActorID: "u-1",
	}, func(ctx context.Context) (string, error) { return "", nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := Execute(ctx, c, Request{
		EntityType: "task", EntityID: "t-1", FromState: "in_progress", ToState: "completed", ActorID: "u-1",
	}, func(ctx context.Context) (string, error) { return "", errors.New("boom") }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for outcome, want := range map[string]float64{
		outcomeSuccess:  1,
		outcomeRejected: 1,
		outcomeFailed:   1,
	} {
		got := testutil.ToFloat64(c.Metrics.attempts.WithLabelValues("task", outcome))
		if got != want {
			t.Errorf("attempts{outcome=%q} = %v, want %v", outcome, got, want)
		}
	}
}

func TestMetricsDistributedOutcomes(t *testing.T) {
	c := newMetricsCoordinator(t)
	ctx := context.Background()

	if _, err := ExecuteDistributed(ctx, c, DistributedRequest{
		TransactionType: "bulk_complete",
		FromState:       "in_progress",
		ToState:         "completed",
		ActorID:         "u-1",
	}, func(ctx context.Context, dtx *DistributedContext) (int, error) {
		return 1, nil
	}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	comp := &CompensatingActions{
		OnFailure: func(dtx *DistributedContext) error { return errors.New("rollback failed") },
	}
	if _, err := ExecuteDistributed(ctx, c, DistributedRequest{
		TransactionType: "bulk_complete",
		FromState:       "in_progress",
		ToState:         "completed",
		ActorID:         "u-1",
	}, func(ctx context.Context, dtx *DistributedContext) (int, error) {
		return 0, errors.New("participant down")
	}, comp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(c.Metrics.distributed.WithLabelValues("bulk_complete", outcomeSuccess)); got != 1 {
		t.Errorf("distributed success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Metrics.distributed.WithLabelValues("bulk_complete", outcomeFailed)); got != 1 {
		t.Errorf("distributed failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Metrics.compensation.WithLabelValues("bulk_complete")); got != 1 {
		t.Errorf("compensation failures = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	// A coordinator without metrics must not panic.
	var m *Metrics
	m.observeAttempt("task", outcomeSuccess, time.Millisecond)
	m.observeDistributed("task_completion", true)
	m.observeCompensationFailure("task_completion")
}
