/*
service.go - Task service driving the coordinator

PURPOSE:
  Shows how a business collaborator consumes the transition engine. The
  service owns task state in its own storage (here a small in-memory map;
  a real deployment would own a tasks table) and asks the coordinator to
  gate, execute and audit every lifecycle change.

CONCURRENCY NOTE:
  The coordinator does not serialize racing transitions on one task id.
  This service resolves conflicts at its own storage: the operation
  re-checks the stored state under the service lock before writing, so a
  lost race surfaces as an operation failure in the audit trail.

SEE ALSO:
  - transition/coordinator.go: The entry points used here
  - tasks/types.go: Entity types and the canonical rule set
*/
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/transition-engine/transition"
)

// =============================================================================
// TASK SERVICE
// =============================================================================

// Task is the service's own record of a task.
type Task struct {
	ID    string
	Title string
	State string
}

// Service owns task state and drives the coordinator for every change.
type Service struct {
	Coordinator *transition.Coordinator

	mu    sync.Mutex
	tasks map[string]*Task
}

func NewService(coord *transition.Coordinator) *Service {
	return &Service{
		Coordinator: coord,
		tasks:       make(map[string]*Task),
	}
}

// CreateTask registers a new task in the pending state.
func (s *Service) CreateTask(id, title string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &Task{ID: id, Title: title, State: StatePending}
	s.tasks[id] = task
	return task
}

// GetTask returns a copy of the stored task.
func (s *Service) GetTask(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Transition moves a task to the requested state through the coordinator.
// The claimed from-state is the state this service currently holds; if a
// racing caller changed it between validation and execution, the
// operation fails and the attempt is logged as failed.
func (s *Service) Transition(ctx context.Context, taskID, toState, actorID, actorName string) (transition.Result[Task], error) {
	current, ok := s.GetTask(taskID)
	if !ok {
		return transition.Result[Task]{}, fmt.Errorf("task not found: %s", taskID)
	}
	fromState := current.State

	return transition.Execute(ctx, s.Coordinator, transition.Request{
		EntityType: string(EntityTask),
		EntityID:   taskID,
		FromState:  fromState,
		ToState:    toState,
		ActorID:    actorID,
		ActorName:  actorName,
		Metadata:   map[string]string{"expected_state": fromState},
	}, func(ctx context.Context) (Task, error) {
		return s.applyState(taskID, fromState, toState)
	})
}

// applyState writes the new state with an optimistic check against the
// state the caller validated.
func (s *Service) applyState(taskID, expected, next string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return Task{}, fmt.Errorf("task not found: %s", taskID)
	}
	if task.State != expected {
		return Task{}, fmt.Errorf("concurrent modification: task %s is %q, expected %q", taskID, task.State, expected)
	}
	task.State = next
	return *task, nil
}

// CompleteWithFollowUp completes a task and schedules a follow-up task in
// one distributed transaction. If any step fails, the compensating
// callback removes the partially created follow-up.
func (s *Service) CompleteWithFollowUp(ctx context.Context, taskID, followUpID, followUpTitle, actorID string) (transition.Result[string], error) {
	comp := &transition.CompensatingActions{
		OnFailure: func(dtx *transition.DistributedContext) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.tasks, followUpID)
			dtx.AppendResult("follow-up removed")
			return nil
		},
	}

	return transition.ExecuteDistributed(ctx, s.Coordinator, transition.DistributedRequest{
		TransactionType: "task_complete_with_followup",
		FromState:       StateInProgress,
		ToState:         StateCompleted,
		ActorID:         actorID,
	}, func(ctx context.Context, dtx *transition.DistributedContext) (string, error) {
		s.CreateTask(followUpID, followUpTitle)
		dtx.AppendResult("follow-up created: " + followUpID)

		result, err := s.Transition(ctx, taskID, StateCompleted, actorID, "")
		if err != nil {
			return "", err
		}
		if !result.Success {
			return "", fmt.Errorf("complete %s: %s", taskID, result.ErrorMessage)
		}
		dtx.AppendResult("task completed: " + taskID)
		return followUpID, nil
	}, comp)
}
