/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/transition-engine/transition"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ValidateRequest asks whether a transition is legal.
type ValidateRequest struct {
	EntityType string            `json:"entity_type"`
	FromState  string            `json:"from_state"`
	ToState    string            `json:"to_state"`
	ActorID    string            `json:"actor_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ValidateResponse echoes the decision with normalized inputs.
type ValidateResponse struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	EntityType string `json:"entity_type"`
	FromState  string `json:"from_state"`
	ToState    string `json:"to_state"`
}

// AvailableTransitionsDTO lists legal next states.
type AvailableTransitionsDTO struct {
	EntityType  string   `json:"entity_type"`
	FromState   string   `json:"from_state"`
	Transitions []string `json:"transitions"`
}

// EntityTypeDTO describes one registered entity type.
type EntityTypeDTO struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

// AttemptDTO represents one audit entry in API responses.
type AttemptDTO struct {
	ID            string            `json:"id"`
	EntityType    string            `json:"entity_type"`
	EntityDomain  string            `json:"entity_domain"`
	EntityID      string            `json:"entity_id"`
	FromState     string            `json:"from_state"`
	ToState       string            `json:"to_state"`
	ActorID       string            `json:"actor_id"`
	ActorName     string            `json:"actor_name,omitempty"`
	Timestamp     string            `json:"timestamp"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	DurationMS    *int64            `json:"duration_ms,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
}

func toAttemptDTO(a transition.TransitionAttempt) AttemptDTO {
	// Attempts are stored with string entity types; the registry maps them
	// back to the owning domain, falling back to "unknown" for types whose
	// domain package is not loaded (e.g. distributed transaction types).
	return AttemptDTO{
		ID:            string(a.ID),
		EntityType:    a.EntityType,
		EntityDomain:  transition.GetOrCreateEntityType(a.EntityType).EntityDomain(),
		EntityID:      a.EntityID,
		FromState:     a.FromState,
		ToState:       a.ToState,
		ActorID:       a.ActorID,
		ActorName:     a.ActorName,
		Timestamp:     a.Timestamp.Format(time.RFC3339Nano),
		Success:       a.Success,
		FailureReason: a.FailureReason,
		Metadata:      a.Metadata,
		DurationMS:    a.DurationMS,
		TransactionID: a.TransactionID,
	}
}

func toAttemptDTOs(attempts []transition.TransitionAttempt) []AttemptDTO {
	dtos := make([]AttemptDTO, len(attempts))
	for i, a := range attempts {
		dtos[i] = toAttemptDTO(a)
	}
	return dtos
}

// ComplianceRequest records a business-rule evaluation.
type ComplianceRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	RuleID     string `json:"rule_id"`
	RuleName   string `json:"rule_name"`
	Compliant  bool   `json:"is_compliant"`
	Message    string `json:"message,omitempty"`
}

// ComplianceDTO represents a stored compliance record.
type ComplianceDTO struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	RuleID     string `json:"rule_id"`
	RuleName   string `json:"rule_name"`
	Compliant  bool   `json:"is_compliant"`
	Message    string `json:"message,omitempty"`
	Timestamp  string `json:"timestamp"`
}

func toComplianceDTO(r transition.ComplianceRecord) ComplianceDTO {
	return ComplianceDTO{
		ID:         r.ID,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		ActorID:    r.ActorID,
		RuleID:     r.RuleID,
		RuleName:   r.RuleName,
		Compliant:  r.Compliant,
		Message:    r.Message,
		Timestamp:  r.Timestamp.Format(time.RFC3339Nano),
	}
}

// CreateTaskRequest registers a task with the demo task service.
type CreateTaskRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TransitionTaskRequest moves a task to a new state.
type TransitionTaskRequest struct {
	ToState   string `json:"to_state"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name,omitempty"`
}

// CompleteWithFollowUpRequest completes a task and creates a follow-up in
// one distributed transaction.
type CompleteWithFollowUpRequest struct {
	FollowUpID    string `json:"follow_up_id"`
	FollowUpTitle string `json:"follow_up_title"`
	ActorID       string `json:"actor_id"`
}

// TaskDTO represents a task owned by the demo service.
type TaskDTO struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	State string `json:"state"`
}

// ResultDTO is the API form of the coordinator's result envelope.
type ResultDTO struct {
	Success       bool    `json:"success"`
	Result        any     `json:"result,omitempty"`
	ErrorCode     string  `json:"error_code,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	AttemptID     string  `json:"attempt_id"`
	TransactionID string  `json:"transaction_id,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
