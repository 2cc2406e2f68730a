package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/lifecycle"
	"github.com/taskboard-app/taskboard/internal/models"
	"github.com/taskboard-app/taskboard/internal/request"
	"github.com/taskboard-app/taskboard/internal/validation"
)

// TaskHandler handles task-related requests. All mutations of status,
// ordering, quadrant and the due window go through the lifecycle engine.
type TaskHandler struct {
	taskRepo database.TaskRepositoryInterface
	engine   *lifecycle.Engine
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskRepo database.TaskRepositoryInterface, engine *lifecycle.Engine) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo, engine: engine}
}

// RegisterRoutes registers task routes on the given router.
// The router should already have the /tasks prefix.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/transition", h.TransitionTask).Methods("POST")
	r.HandleFunc("/{id}/quadrant", h.ReclassifyTask).Methods("POST")
	r.HandleFunc("/{id}/move", h.MoveTask).Methods("POST")
	r.HandleFunc("/{id}/due", h.SetDueWindow).Methods("PATCH")
	r.HandleFunc("/{id}/block", h.BlockTask).Methods("POST")
	r.HandleFunc("/{id}/unblock", h.UnblockTask).Methods("POST")
}

const (
	// MaxTitleLength is the maximum length for task titles
	MaxTitleLength = 500
	// MaxDescriptionLength is the maximum length for task descriptions
	MaxDescriptionLength = 10000
)

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title        string              `json:"title" validate:"required,min=1,max=500"`
	Description  string              `json:"description,omitempty" validate:"max=10000"`
	Status       *models.TaskStatus  `json:"status,omitempty"`
	Priority     *models.Priority    `json:"priority,omitempty"`
	ProjectID    *uuid.UUID          `json:"project_id,omitempty"`
	ContextID    *uuid.UUID          `json:"context_id,omitempty"`
	KanbanColumn string              `json:"kanban_column,omitempty"`
	Tags         []string            `json:"tags,omitempty"`
	DueAt        *time.Time          `json:"due_at,omitempty"`
	RemindAt     *time.Time          `json:"remind_at,omitempty"`
}

// UpdateTaskRequest represents a partial task update. Status, ordering,
// quadrant and due window have dedicated endpoints and are not accepted here.
type UpdateTaskRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Priority    *models.Priority `json:"priority,omitempty"`
	ProjectID   *uuid.UUID       `json:"project_id,omitempty"`
	ContextID   *uuid.UUID       `json:"context_id,omitempty"`
	AssigneeID  *uuid.UUID       `json:"assignee_id,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
}

// TransitionRequest carries the target workflow status
type TransitionRequest struct {
	Status models.TaskStatus `json:"status" validate:"required,task_status"`
}

// ReclassifyRequest carries the target Eisenhower quadrant
type ReclassifyRequest struct {
	Quadrant models.EisenhowerQuadrant `json:"quadrant" validate:"required,quadrant"`
}

// MoveRequest carries a kanban column and 0-based position
type MoveRequest struct {
	Column   string `json:"column" validate:"required"`
	Position int    `json:"position" validate:"min=0"`
}

// DueWindowRequest carries the new due/remind window. Null fields clear.
type DueWindowRequest struct {
	DueAt    *time.Time `json:"due_at"`
	RemindAt *time.Time `json:"remind_at"`
}

// BlockRequest carries an optional human-readable reason
type BlockRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// ListTasks lists tasks for the authenticated user with optional filters
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var filter database.TaskFilter

	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateTaskStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		status := models.TaskStatus(s)
		filter.Status = &status
	}
	if q := r.URL.Query().Get("quadrant"); q != "" {
		if err := validation.ValidateQuadrant(q); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		quad := models.EisenhowerQuadrant(q)
		filter.Quadrant = &quad
	}
	if p := r.URL.Query().Get("project_id"); p != "" {
		projectID, err := uuid.Parse(p)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid project ID")
			return
		}
		filter.ProjectID = &projectID
	}
	if c := r.URL.Query().Get("column"); c != "" {
		filter.Column = &c
	}

	tasks, err := h.taskRepo.List(r.Context(), user.ID, filter)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}
	if len(req.Title) > MaxTitleLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTitleLength))
		return
	}

	task := &models.Task{
		ID:           uuid.New(),
		UserID:       user.ID,
		Title:        req.Title,
		Description:  validation.SanitizeText(req.Description),
		Priority:     models.PriorityMedium,
		ProjectID:    req.ProjectID,
		ContextID:    req.ContextID,
		KanbanColumn: req.KanbanColumn,
		Tags:         req.Tags,
		DueAt:        req.DueAt,
		RemindAt:     req.RemindAt,
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}

	if err := h.engine.Create(r.Context(), task); err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		if errors.Is(err, lifecycle.ErrScheduleConflict) {
			respondJSONError(w, http.StatusConflict, "Conflict", "Concurrent board edits, please retry")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask updates mutable task fields
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Title != nil {
		sanitized := validation.SanitizeText(*req.Title)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		if len(sanitized) > MaxTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTitleLength))
			return
		}
		task.Title = sanitized
	}
	if req.Description != nil {
		sanitized := validation.SanitizeText(*req.Description)
		if len(sanitized) > MaxDescriptionLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Description exceeds maximum length of %d characters", MaxDescriptionLength))
			return
		}
		task.Description = sanitized
	}
	if req.Priority != nil {
		switch *req.Priority {
		case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical:
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("invalid priority: %s", *req.Priority))
			return
		}
		task.Priority = *req.Priority
	}
	if req.ProjectID != nil {
		task.ProjectID = req.ProjectID
	}
	if req.ContextID != nil {
		task.ContextID = req.ContextID
	}
	if req.AssigneeID != nil {
		task.AssigneeID = req.AssigneeID
	}
	if req.Tags != nil {
		task.Tags = req.Tags
	}

	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task and cancels its pending reminders
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	if err := h.engine.Delete(r.Context(), task.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TransitionTask changes a task's workflow status
func (h *TaskHandler) TransitionTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var req TransitionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	updated, err := h.engine.Transition(r.Context(), task.ID, req.Status)
	if err != nil {
		respondEngineError(w, err, "Failed to transition task")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// ReclassifyTask reassigns a task's Eisenhower quadrant
func (h *TaskHandler) ReclassifyTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var req ReclassifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	updated, err := h.engine.Reclassify(r.Context(), task.ID, req.Quadrant)
	if err != nil {
		respondEngineError(w, err, "Failed to reclassify task")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// MoveTask repositions a task on the kanban board
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	updated, err := h.engine.MoveInColumn(r.Context(), task.ID, req.Column, req.Position)
	if err != nil {
		if errors.Is(err, lifecycle.ErrScheduleConflict) {
			respondJSONError(w, http.StatusConflict, "Conflict", "Concurrent board edits, please retry")
			return
		}
		respondEngineError(w, err, "Failed to move task")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// SetDueWindow updates a task's due/remind window
func (h *TaskHandler) SetDueWindow(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var req DueWindowRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.engine.SetDueWindow(r.Context(), task.ID, req.DueAt, req.RemindAt)
	if err != nil {
		respondEngineError(w, err, "Failed to update due window")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// BlockTask marks a task blocked
func (h *TaskHandler) BlockTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var req BlockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.engine.Block(r.Context(), task.ID, validation.SanitizeText(req.Reason))
	if err != nil {
		respondEngineError(w, err, "Failed to block task")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// UnblockTask clears a task's blocked flag
func (h *TaskHandler) UnblockTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	updated, err := h.engine.Unblock(r.Context(), task.ID)
	if err != nil {
		respondEngineError(w, err, "Failed to unblock task")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// ownedTask loads the task from the {id} path var and verifies ownership.
// On failure it writes the error response and returns ok=false.
func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request) (*models.Task, bool) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return nil, false
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return nil, false
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return nil, false
	}

	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return nil, false
	}

	return task, true
}

// decodeBody decodes a JSON request body, writing the error response on failure
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

// validateStruct runs struct validation, writing the error response on failure
func validateStruct(w http.ResponseWriter, req any) bool {
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

// respondEngineError maps lifecycle engine errors to HTTP status codes
func respondEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
	default:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", fallback)
	}
}
