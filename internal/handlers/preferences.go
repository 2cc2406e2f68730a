package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/models"
	"github.com/taskboard-app/taskboard/internal/request"
)

// PreferencesHandler handles notification channel preference requests
type PreferencesHandler struct {
	prefsRepo database.PreferencesRepositoryInterface
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(prefsRepo database.PreferencesRepositoryInterface) *PreferencesHandler {
	return &PreferencesHandler{prefsRepo: prefsRepo}
}

// RegisterRoutes registers preference routes on the given router.
// The router should already have the /preferences prefix.
func (h *PreferencesHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetPreferences).Methods("GET")
	r.HandleFunc("", h.SetPreferences).Methods("PUT")
}

// SetPreferencesRequest carries the full set of channel preferences.
// Omitted flags default to false, so PUT semantics are replace, not merge.
type SetPreferencesRequest struct {
	EmailEnabled    bool   `json:"email_enabled"`
	EmailAddress    string `json:"email_address,omitempty" validate:"omitempty,email"`
	TelegramEnabled bool   `json:"telegram_enabled"`
	TelegramChatID  string `json:"telegram_chat_id,omitempty" validate:"omitempty,numeric"`
	InAppEnabled    bool   `json:"in_app_enabled"`
}

// GetPreferences returns the caller's channel preferences, falling back to
// the in-app-only default when none are stored
func (h *PreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	prefs, err := h.prefsRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve preferences")
		return
	}

	respondJSON(w, http.StatusOK, prefs)
}

// SetPreferences replaces the caller's channel preferences
func (h *PreferencesHandler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req SetPreferencesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	if req.EmailEnabled && req.EmailAddress == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "email_address is required when email is enabled")
		return
	}
	if req.TelegramEnabled && req.TelegramChatID == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "telegram_chat_id is required when telegram is enabled")
		return
	}

	prefs := &models.ChannelPreferences{
		UserID:          user.ID,
		EmailEnabled:    req.EmailEnabled,
		EmailAddress:    req.EmailAddress,
		TelegramEnabled: req.TelegramEnabled,
		TelegramChatID:  req.TelegramChatID,
		InAppEnabled:    req.InAppEnabled,
	}

	if err := h.prefsRepo.Set(r.Context(), prefs); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save preferences")
		return
	}

	respondJSON(w, http.StatusOK, prefs)
}
