package server

import (
	"log/slog"
	"net/http"

	"github.com/codmer/pulsedoc/internal/api"
	"github.com/codmer/pulsedoc/internal/api/handlers"
	"github.com/codmer/pulsedoc/internal/api/middleware"
	"github.com/codmer/pulsedoc/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Multipart framing around an upload needs a little room past the file limit.
const multipartOverhead int64 = 1 << 20

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	DocumentHandler *handlers.DocumentHandler
	AuthHandler     *handlers.AuthHandler
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	MaxUploadBytes  int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxUploadBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 20 << 20
	}
	maxBodyBytes += multipartOverhead

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Post("/search", cfg.DocumentHandler.Search)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
			r.Get("/{id}/download", cfg.DocumentHandler.Download)
		})
	})

	r.Post("/tenants", cfg.AuthHandler.CreateTenant)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}
