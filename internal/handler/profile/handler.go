package profile

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	profileModel "github.com/yeehaa123/personal-brain-sub006/internal/model/profile"
)

// Handler exposes the owner profile over HTTP.
type Handler struct {
	manager *brain.Manager
}

// New creates the profile handler.
func New(manager *brain.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes registers profile routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.handleGet)
	r.Put("/profile", h.handleUpdate)
	r.Get("/profile/related-notes", h.handleRelatedNotes)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	profileCtx, err := h.manager.Profile()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "profile context unavailable")
		return
	}

	p := profileCtx.GetProfile()
	if p == nil {
		respondError(w, http.StatusNotFound, "no profile configured")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	profileCtx, err := h.manager.Profile()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "profile context unavailable")
		return
	}

	var payload profileModel.Profile
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	updated := profileCtx.UpdateProfile(r.Context(), payload)
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleRelatedNotes(w http.ResponseWriter, r *http.Request) {
	profileCtx, err := h.manager.Profile()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "profile context unavailable")
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	notes := profileCtx.RelatedNotes(r.Context(), limit)
	respondJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
