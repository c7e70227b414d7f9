package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"lookout/internal/core/domain"
	"lookout/internal/core/services"
	"lookout/pkg/logging"
	"lookout/pkg/middleware"
)

// APIHandler serves the thin HTTP surface around the registry: the event
// ingress for notification-producing collaborators, the presence
// diagnostics snapshot and the caller's notification inbox.
type APIHandler struct {
	manager       *services.ManagerService
	notifications *services.NotificationService
}

func NewAPIHandler(manager *services.ManagerService, notifications *services.NotificationService) *APIHandler {
	return &APIHandler{manager: manager, notifications: notifications}
}

// Events receives a chat event and routes it through the presence registry.
func (h *APIHandler) Events(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	var ev domain.ChatEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		log.ErrorContext(r.Context(), "api handler - events - bad request", logging.Err(err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	queued, suppressed, err := h.notifications.Dispatch(r.Context(), ev)
	if err != nil {
		switch err {
		case domain.ErrMissingSender, domain.ErrNoRecipients:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.ErrorContext(r.Context(), "api handler - events - dispatch failed", logging.Err(err))
			http.Error(w, "dispatch failed", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]int{
		"queued":     queued,
		"suppressed": suppressed,
	})
}

// PresenceStatus returns the diagnostics snapshot for a user.
func (h *APIHandler) PresenceStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	st, _ := h.manager.Status(userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

// Inbox lists the caller's undelivered notifications.
func (h *APIHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.notifications.Inbox(r.Context(), userID, limit)
	if err != nil {
		log.ErrorContext(r.Context(), "api handler - inbox - list failed", logging.User(userID), logging.Err(err))
		http.Error(w, "inbox fetch failed", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"notifications": items})
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
