package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	"github.com/yeehaa123/personal-brain-sub006/internal/handler/chatroom"
	"github.com/yeehaa123/personal-brain-sub006/internal/handler/conversations"
	"github.com/yeehaa123/personal-brain-sub006/internal/handler/notes"
	"github.com/yeehaa123/personal-brain-sub006/internal/handler/profile"
	queryHandler "github.com/yeehaa123/personal-brain-sub006/internal/handler/query"
	middlewarePkg "github.com/yeehaa123/personal-brain-sub006/internal/middleware"
	queryService "github.com/yeehaa123/personal-brain-sub006/internal/service/query"
	"github.com/yeehaa123/personal-brain-sub006/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(manager *brain.Manager, processor *queryService.Processor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	profileHandler := profile.New(manager)
	notesHandler := notes.New(manager)
	conversationsHandler := conversations.New(manager)
	wsHandler := chatroom.NewWebSocketHandler(processor, manager)

	var qHandler *queryHandler.Handler
	if processor != nil {
		qHandler = queryHandler.New(processor)
	}

	r.Route("/api", func(api chi.Router) {
		profileHandler.RegisterRoutes(api)
		notesHandler.RegisterRoutes(api)
		conversationsHandler.RegisterRoutes(api)

		if qHandler != nil {
			qHandler.RegisterRoutes(api)
			wsHandler.RegisterRoutes(api)
		}

		api.Get("/settings/external-sources", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]bool{"enabled": manager.GetExternalSourcesEnabled()})
		})
		api.Put("/settings/external-sources", func(w http.ResponseWriter, r *http.Request) {
			var payload struct {
				Enabled bool `json:"enabled"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				utils.RespondError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			manager.SetExternalSourcesEnabled(payload.Enabled)
			utils.RespondJSON(w, http.StatusOK, map[string]bool{"enabled": payload.Enabled})
		})

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			status := map[string]any{
				"status": "ok",
				"ready":  manager.Ready(),
			}
			utils.RespondJSON(w, http.StatusOK, status)
		})
	})

	return r
}
