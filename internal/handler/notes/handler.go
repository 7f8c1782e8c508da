package notes

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	noteModel "github.com/yeehaa123/personal-brain-sub006/internal/model/note"
)

const defaultLimit = 10

// Handler exposes note retrieval over HTTP.
type Handler struct {
	manager *brain.Manager
}

// New creates the notes handler.
func New(manager *brain.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes registers note routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/notes", h.handleRecent)
	r.Get("/notes/search", h.handleSearch)
	r.Get("/notes/{noteID}/related", h.handleRelated)
	r.Post("/notes", h.handleCreate)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	notesCtx, err := h.manager.Notes()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "note context unavailable")
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notes": notesCtx.GetRecentNotes(limit)})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	notesCtx, err := h.manager.Notes()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "note context unavailable")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	var tags []string
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	if query == "" && len(tags) == 0 {
		respondError(w, http.StatusBadRequest, "q or tags is required")
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	semantic := r.URL.Query().Get("semantic") != "false"

	found := notesCtx.SearchNotes(r.Context(), query, tags, limit, semantic)
	respondJSON(w, http.StatusOK, map[string]any{"notes": found})
}

func (h *Handler) handleRelated(w http.ResponseWriter, r *http.Request) {
	notesCtx, err := h.manager.Notes()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "note context unavailable")
		return
	}

	noteID := chi.URLParam(r, "noteID")
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	related := notesCtx.GetRelatedNotes(r.Context(), noteID, limit)
	respondJSON(w, http.StatusOK, map[string]any{"notes": related})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	notesCtx, err := h.manager.Notes()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "note context unavailable")
		return
	}

	var payload noteModel.Note
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Title) == "" && strings.TrimSpace(payload.Content) == "" {
		respondError(w, http.StatusBadRequest, "title or content is required")
		return
	}

	created := notesCtx.PutNote(r.Context(), payload)
	respondJSON(w, http.StatusCreated, created)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
