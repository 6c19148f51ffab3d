// Package api serves the bookmark store over a small JSON HTTP API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/logging"
	"github.com/nikbrunner/linkvault/internal/reconcile"
	"github.com/nikbrunner/linkvault/internal/repository"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Repo            *repository.Repository
	Reconciler      *reconcile.Reconciler
	Extractor       extract.Extractor
	DefaultCategory string
	Logger          *slog.Logger
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware(logger))

	h := &Handler{
		repo:            deps.Repo,
		reconciler:      deps.Reconciler,
		extractor:       deps.Extractor,
		defaultCategory: deps.DefaultCategory,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.listCategories)
		r.Get("/categories/{name}", h.listByCategory)
		r.Patch("/categories/{name}", h.renameCategory)
		r.Delete("/categories/{name}", h.deleteCategory)

		r.Get("/tags", h.listTags)
		r.Get("/tags/{tag}", h.listByTag)

		r.Get("/search", h.search)

		r.Get("/bookmarks", h.findBookmark)
		r.Post("/bookmarks", h.storeBookmark)
		r.Delete("/bookmarks", h.deleteBookmark)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// LoggerMiddleware adds a request-scoped structured logger to the context
// and logs each completed request.
func LoggerMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), logger)))
			logger.Info("request handled", "status", ww.Status(), "bytes", ww.BytesWritten())
		})
	}
}
