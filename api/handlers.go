/*
handlers.go - HTTP API handlers for the transition engine

PURPOSE:
  Exposes the coordinator's entry points via REST. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Transitions:
    POST   /api/transitions/validate            Validate without executing
    GET    /api/entity-types                    Registered entity types
    GET    /api/rules                           Full rule set
    GET    /api/rules/{entityType}              Rules for one entity type
    PUT    /api/rules/{entityType}              Replace rules for one entity type
    POST   /api/rules/reload                    Reload from the backing source
    GET    /api/rules/{entityType}/transitions  Legal next states (?from=)

  Audit:
    GET    /api/entities/{type}/{id}/transactions   Entity history
    GET    /api/transactions/{id}                   Distributed transaction group
    GET    /api/actors/{id}/transactions            Actor history

  Compliance:
    POST   /api/compliance                          Record an evaluation
    GET    /api/entities/{type}/{id}/compliance     Entity compliance history

  Tasks (demo collaborator):
    POST   /api/tasks                           Create task
    GET    /api/tasks/{id}                      Get task
    POST   /api/tasks/{id}/transition           Execute an audited transition
    POST   /api/tasks/{id}/complete             Distributed complete-with-follow-up

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown entity type or task
  - 500: Internal errors (including a broken audit write path)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/transition-engine/factory"
	"github.com/warp/transition-engine/tasks"
	"github.com/warp/transition-engine/transition"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Coordinator *transition.Coordinator
	Rules       *transition.RuleStore
	Tasks       *tasks.Service
}

// NewHandler creates a new handler.
func NewHandler(coord *transition.Coordinator, rules *transition.RuleStore, taskService *tasks.Service) *Handler {
	return &Handler{
		Coordinator: coord,
		Rules:       rules,
		Tasks:       taskService,
	}
}

// =============================================================================
// TRANSITION HANDLERS
// =============================================================================

// ValidateTransition answers legality without executing anything.
// POST /api/transitions/validate
func (h *Handler) ValidateTransition(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	decision := h.Coordinator.ValidateTransition(transition.ValidationRequest{
		EntityType: req.EntityType,
		FromState:  req.FromState,
		ToState:    req.ToState,
		ActorID:    req.ActorID,
		Metadata:   req.Metadata,
	})

	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:      decision.Valid,
		Reason:     decision.Reason,
		EntityType: decision.EntityType,
		FromState:  decision.FromState,
		ToState:    decision.ToState,
	})
}

// GetAvailableTransitions lists legal next states.
// GET /api/rules/{entityType}/transitions?from=state
func (h *Handler) GetAvailableTransitions(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	fromState := r.URL.Query().Get("from")

	writeJSON(w, http.StatusOK, AvailableTransitionsDTO{
		EntityType:  entityType,
		FromState:   fromState,
		Transitions: h.Coordinator.GetAvailableTransitions(entityType, fromState),
	})
}

// ListEntityTypes returns the registered entity types with their domains.
// GET /api/entity-types
func (h *Handler) ListEntityTypes(w http.ResponseWriter, r *http.Request) {
	types := transition.RegisteredEntityTypes()
	dtos := make([]EntityTypeDTO, len(types))
	for i, e := range types {
		dtos[i] = EntityTypeDTO{ID: e.EntityTypeID(), Domain: e.EntityDomain()}
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].ID < dtos[j].ID })
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RULE ADMIN HANDLERS
// =============================================================================

// ListRules returns the complete rule set.
// GET /api/rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Rules.Snapshot())
}

// GetRules returns one entity type's rules.
// GET /api/rules/{entityType}
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")

	rules, err := h.Rules.GetRules(entityType)
	if err != nil {
		if transition.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Entity type not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get rules", err)
		return
	}

	writeJSON(w, http.StatusOK, rules)
}

// UpdateRules atomically replaces one entity type's rules.
// PUT /api/rules/{entityType}
func (h *Handler) UpdateRules(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rules, err := factory.ParseStateRules(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rules", err)
		return
	}

	if err := h.Rules.UpdateRules(r.Context(), entityType, rules); err != nil {
		if transition.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid rules", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update rules", err)
		return
	}

	writeJSON(w, http.StatusOK, rules)
}

// ReloadRules replaces the full rule set from the backing source.
// POST /api/rules/reload
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	if err := h.Rules.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload rules", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":     true,
		"entity_types": h.Rules.ListEntityTypes(),
	})
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// GetEntityTransactions returns an entity's attempt history, newest first.
// GET /api/entities/{type}/{id}/transactions?limit=50
func (h *Handler) GetEntityTransactions(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "type")
	entityID := chi.URLParam(r, "id")

	attempts, err := h.Coordinator.GetEntityTransactions(r.Context(), entityType, entityID, queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	writeJSON(w, http.StatusOK, toAttemptDTOs(attempts))
}

// GetTransaction returns all attempts grouped under one transaction id.
// GET /api/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.Coordinator.GetDistributedTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, toAttemptDTOs(attempts))
}

// GetActorTransactions returns one actor's attempts, newest first.
// GET /api/actors/{id}/transactions?limit=50
func (h *Handler) GetActorTransactions(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.Coordinator.Log.GetActorHistory(r.Context(), chi.URLParam(r, "id"), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	writeJSON(w, http.StatusOK, toAttemptDTOs(attempts))
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// LogComplianceCheck records a business-rule evaluation.
// POST /api/compliance
func (h *Handler) LogComplianceCheck(w http.ResponseWriter, r *http.Request) {
	var req ComplianceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EntityType == "" || req.EntityID == "" || req.RuleID == "" {
		writeError(w, http.StatusBadRequest, "entity_type, entity_id and rule_id are required", nil)
		return
	}

	record, err := h.Coordinator.LogComplianceCheck(r.Context(), transition.ComplianceRecord{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		ActorID:    req.ActorID,
		RuleID:     req.RuleID,
		RuleName:   req.RuleName,
		Compliant:  req.Compliant,
		Message:    req.Message,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record compliance check", err)
		return
	}

	writeJSON(w, http.StatusCreated, toComplianceDTO(record))
}

// GetComplianceRecords returns an entity's compliance history.
// GET /api/entities/{type}/{id}/compliance?limit=50
func (h *Handler) GetComplianceRecords(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "type")
	entityID := chi.URLParam(r, "id")

	records, err := h.Coordinator.GetComplianceRecords(r.Context(), entityType, entityID, queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load compliance records", err)
		return
	}

	dtos := make([]ComplianceDTO, len(records))
	for i, rec := range records {
		dtos[i] = toComplianceDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TASK HANDLERS (demo collaborator)
// =============================================================================

// CreateTask registers a task in the pending state.
// POST /api/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}

	task := h.Tasks.CreateTask(req.ID, req.Title)
	writeJSON(w, http.StatusCreated, TaskDTO{ID: task.ID, Title: task.Title, State: task.State})
}

// GetTask returns one task.
// GET /api/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.Tasks.GetTask(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, TaskDTO{ID: task.ID, Title: task.Title, State: task.State})
}

// TransitionTask executes an audited transition on a task.
// POST /api/tasks/{id}/transition
func (h *Handler) TransitionTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	var req TransitionTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Tasks.Transition(r.Context(), taskID, req.ToState, req.ActorID, req.ActorName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Transition failed", err)
		return
	}

	dto := ResultDTO{
		Success:       result.Success,
		ErrorCode:     string(result.ErrorCode),
		ErrorMessage:  result.ErrorMessage,
		AttemptID:     string(result.AttemptID),
		TransactionID: result.TransactionID,
	}
	if result.Success {
		dto.Result = TaskDTO{ID: result.Value.ID, Title: result.Value.Title, State: result.Value.State}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, dto)
}

// CompleteTaskWithFollowUp completes a task and creates a follow-up task in
// one distributed transaction with compensation.
// POST /api/tasks/{id}/complete
func (h *Handler) CompleteTaskWithFollowUp(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	var req CompleteWithFollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FollowUpID == "" {
		writeError(w, http.StatusBadRequest, "follow_up_id is required", nil)
		return
	}

	result, err := h.Tasks.CompleteWithFollowUp(r.Context(), taskID, req.FollowUpID, req.FollowUpTitle, req.ActorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Transaction failed", err)
		return
	}

	dto := ResultDTO{
		Success:       result.Success,
		ErrorCode:     string(result.ErrorCode),
		ErrorMessage:  result.ErrorMessage,
		AttemptID:     string(result.AttemptID),
		TransactionID: result.TransactionID,
	}
	if result.Success {
		dto.Result = map[string]string{"follow_up_id": result.Value}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 50
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
