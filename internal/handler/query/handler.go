package query

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
	queryService "github.com/yeehaa123/personal-brain-sub006/internal/service/query"
	"github.com/yeehaa123/personal-brain-sub006/pkg/utils"
)

// Handler exposes the query pipeline over HTTP.
type Handler struct {
	processor *queryService.Processor
}

// New creates the query handler.
func New(processor *queryService.Processor) *Handler {
	return &Handler{processor: processor}
}

// RegisterRoutes registers query routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/query", h.handleQuery)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query         string `json:"query"`
		RoomID        string `json:"roomId"`
		InterfaceType string `json:"interfaceType"`
		UserID        string `json:"userId"`
		UserName      string `json:"userName"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Query) == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	interfaceType := conversation.InterfaceType(payload.InterfaceType)
	if interfaceType == "" {
		interfaceType = conversation.InterfaceCLI
	}

	opts := queryService.Options{
		RoomID:        payload.RoomID,
		InterfaceType: interfaceType,
		UserID:        payload.UserID,
		UserName:      payload.UserName,
	}

	if wantsSSE(r) {
		h.streamQuery(w, r, payload.Query, opts)
		return
	}

	result, err := h.processor.Process(r.Context(), payload.Query, opts)
	if err != nil {
		log.Printf("[query] processing failed: %v", err)
		var notReady *brain.NotReadyError
		if errors.As(err, &notReady) {
			respondError(w, http.StatusServiceUnavailable, "brain is not ready")
			return
		}
		respondError(w, http.StatusInternalServerError, "query processing failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func wantsSSE(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// streamQuery answers over Server-Sent Events: a status event while the
// pipeline runs, then either a result event followed by done, or an error
// event.
func (h *Handler) streamQuery(w http.ResponseWriter, r *http.Request, query string, opts queryService.Options) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "status", map[string]string{"state": "processing"})

	result, err := h.processor.Process(r.Context(), query, opts)
	if err != nil {
		log.Printf("[query] processing failed: %v", err)
		msg := "query processing failed"
		var notReady *brain.NotReadyError
		if errors.As(err, &notReady) {
			msg = "brain is not ready"
		}
		utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": msg})
		return
	}

	utils.SendSSEEvent(w, flusher, "result", result)
	utils.SendSSEEvent(w, flusher, "done", map[string]string{"state": "complete"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
