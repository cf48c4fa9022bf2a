package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	chathandler "github.com/zodiai/backend/internal/handler/chat"
	middlewarePkg "github.com/zodiai/backend/internal/middleware"
	chatservice "github.com/zodiai/backend/internal/service/chat"
	"github.com/zodiai/backend/internal/service/search"
	"github.com/zodiai/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(turns *chatservice.Service, sessions chathandler.SessionReader, kb *search.KnowledgeBase, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chathandler.New(turns, sessions, kb, logger)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)

		api.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
