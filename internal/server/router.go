package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sourcebook-ai/sourcebook/internal/api"
	"github.com/sourcebook-ai/sourcebook/internal/api/handlers"
	"github.com/sourcebook-ai/sourcebook/internal/api/middleware"
)

type RouterConfig struct {
	IngestHandler   *handlers.IngestHandler
	QueryHandler    *handlers.QueryHandler
	SourcesHandler  *handlers.SourcesHandler
	MessagesHandler *handlers.MessagesHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/items", cfg.SourcesHandler.List)
	r.Get("/messages", cfg.MessagesHandler.List)

	r.Post("/ingest", cfg.IngestHandler.Ingest)
	r.Post("/query", cfg.QueryHandler.Query)

	return r
}
