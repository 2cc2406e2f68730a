package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/request"
)

// InboxHandler serves the in-app notification inbox
type InboxHandler struct {
	inboxRepo database.InboxRepositoryInterface
}

// NewInboxHandler creates a new inbox handler
func NewInboxHandler(inboxRepo database.InboxRepositoryInterface) *InboxHandler {
	return &InboxHandler{inboxRepo: inboxRepo}
}

// RegisterRoutes registers inbox routes on the given router.
// The router should already have the /inbox prefix.
func (h *InboxHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListInbox).Methods("GET")
	r.HandleFunc("/{id}/read", h.MarkRead).Methods("POST")
}

// ListInbox lists the caller's inbox items, newest first.
// Pass unread=true to hide already-read items.
func (h *InboxHandler) ListInbox(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	items, err := h.inboxRepo.ListByUserID(r.Context(), user.ID, unreadOnly, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve inbox")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// MarkRead marks an inbox item as read. Idempotent.
func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid inbox item ID")
		return
	}

	if err := h.inboxRepo.MarkRead(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Inbox item not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to mark item read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
