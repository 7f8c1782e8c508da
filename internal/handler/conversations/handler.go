package conversations

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
)

// Handler exposes stored conversations over HTTP.
type Handler struct {
	manager *brain.Manager
}

// New creates the conversations handler.
func New(manager *brain.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes registers conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations", h.handleList)
	r.Get("/conversations/{conversationID}", h.handleGet)
	r.Delete("/conversations/{conversationID}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	convCtx, err := h.manager.Conversation()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "conversation context unavailable")
		return
	}

	opts := conversation.RecentOptions{
		InterfaceType: conversation.InterfaceType(r.URL.Query().Get("interfaceType")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = limit
	}

	list, err := convCtx.Memory().GetRecentConversations(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	convCtx, err := h.manager.Conversation()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "conversation context unavailable")
		return
	}

	conv, err := convCtx.Memory().GetConversation(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if conv == nil {
		respondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	convCtx, err := h.manager.Conversation()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "conversation context unavailable")
		return
	}

	deleted, err := convCtx.Memory().DeleteConversation(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
