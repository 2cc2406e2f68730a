package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/events"
	"github.com/taskboard-app/taskboard/internal/request"
)

// NotificationHandler exposes notification state for inspection and lets
// operators force a scheduling scan.
type NotificationHandler struct {
	taskRepo  database.TaskRepositoryInterface
	notifRepo database.NotificationRepositoryInterface
	bus       events.Bus
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(taskRepo database.TaskRepositoryInterface, notifRepo database.NotificationRepositoryInterface, bus events.Bus) *NotificationHandler {
	return &NotificationHandler{taskRepo: taskRepo, notifRepo: notifRepo, bus: bus}
}

// RegisterRoutes registers notification routes on the given router.
// The router should be the authenticated API root.
func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tasks/{id}/notifications", h.ListTaskNotifications).Methods("GET")
	r.HandleFunc("/admin/scan", h.RequestScan).Methods("POST")
	r.HandleFunc("/admin/notifications/failed", h.ListFailed).Methods("GET")
}

// ListTaskNotifications lists all notifications for one task, newest first
func (h *NotificationHandler) ListTaskNotifications(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return
	}
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return
	}

	notifications, err := h.notifRepo.ListByTask(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve notifications")
		return
	}

	respondJSON(w, http.StatusOK, notifications)
}

// RequestScan asks the worker to run a scheduling scan now instead of
// waiting for the next tick
func (h *NotificationHandler) RequestScan(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ev := events.NewEvent(events.EventScanRequested, user.ID, nil)
	if err := h.bus.Publish(r.Context(), ev); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to request scan")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "scan requested"})
}

// ListFailed lists notifications that exhausted their retries
func (h *NotificationHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	failed, err := h.notifRepo.ListFailed(r.Context(), limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve failed notifications")
		return
	}

	respondJSON(w, http.StatusOK, failed)
}
