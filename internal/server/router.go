package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vita-labs/recallai/internal/api"
	"github.com/vita-labs/recallai/internal/api/handlers"
	"github.com/vita-labs/recallai/internal/api/middleware"
)

type RouterConfig struct {
	APIToken      string
	IngestHandler *handlers.IngestHandler
	QueryHandler  *handlers.QueryHandler
	AdminHandler  *handlers.AdminHandler
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

	r.Group(func(r chi.Router) {
		r.Use(middleware.StaticTokenAuth(cfg.APIToken))

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/", cfg.IngestHandler.Ingest)
			r.Post("/batch", cfg.IngestHandler.IngestBatch)
			r.Post("/thread", cfg.IngestHandler.IngestThread)
		})

		r.Post("/query", cfg.QueryHandler.Query)
		r.Post("/feedback", cfg.AdminHandler.Feedback)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/delete", cfg.AdminHandler.Delete)
			r.Post("/redact", cfg.AdminHandler.Redact)
		})
	})

	return r
}
