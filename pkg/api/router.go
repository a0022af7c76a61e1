package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/glyphcache/internal/logger"
	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/marmos91/glyphcache/pkg/metrics"
	"github.com/marmos91/glyphcache/pkg/payload"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /metrics - Prometheus scrape endpoint (404 when disabled)
//   - POST /v1/documents/resolve - Batched document record lookup
//   - GET /v1/documents/{id} - Single record lookup
//   - PUT /v1/documents/{id} - Record ingestion
//   - DELETE /v1/documents/{id} - Record removal
//   - GET /v1/documents/{id}/content - Raw asset payload by document id
//   - GET /v1/content/{key} - Raw asset payload by content key
func NewRouter(docs document.Store, content payload.ContentStore) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := &healthHandler{}
	r.Get("/health", health.Liveness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	docHandler := &documentHandler{store: docs}
	contentH := &contentHandler{store: docs, data: content}

	r.Get("/v1/content/*", contentH.GetByKey)

	r.Route("/v1/documents", func(r chi.Router) {
		r.Post("/resolve", docHandler.Resolve)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", docHandler.Get)
			r.Put("/", docHandler.Put)
			r.Delete("/", docHandler.Delete)
			r.Get("/content", contentH.Get)
		})
	})

	return r
}

// isProbePath returns true for endpoints scraped or probed periodically.
func isProbePath(path string) bool {
	return path == "/metrics" || path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger logs requests using the internal logger. Probe endpoints
// log at DEBUG to reduce noise.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}
		if isProbePath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
