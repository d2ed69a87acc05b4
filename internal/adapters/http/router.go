package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kirillkom/agrisense-rag/internal/config"
	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
	"github.com/kirillkom/agrisense-rag/internal/observability/metrics"
)

const serviceName = "api"

// ReadinessChecker reports whether a dependency is reachable.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Retriever ports.Retriever
	Chat      ports.ChatService
	Chunks    ports.DocumentChunkReader
	Extractor ports.TextExtractor
	Readiness ReadinessChecker
	Metrics   *metrics.HTTPServerMetrics
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() (http.Handler, error) {
	openAPIRouter, err := loadOpenAPIRouter()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", rt.health)
	r.Get("/readyz", rt.ready)
	if rt.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
		})
		r.Use(requestValidationMiddleware(openAPIRouter))

		r.Post("/chat", rt.chat)
		r.Post("/v1/search", rt.search)
		r.Get("/v1/documents/{name}/chunks", rt.listChunks)
		r.Post("/v1/extract", rt.extract)
	})

	if rt.deps.Metrics != nil {
		return rt.deps.Metrics.Middleware(serviceName, r), nil
	}
	return r, nil
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (rt *Router) ready(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Readiness == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := rt.deps.Readiness.Ping(ctx); err != nil {
		slog.ErrorContext(r.Context(), "readiness_check_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: publicMessage(http.StatusServiceUnavailable)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
