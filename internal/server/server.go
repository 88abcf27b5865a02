// Package server exposes the bot over HTTP: health probes, metrics, the
// widget socket and a stateless JSON API.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p-n-ai/pai-ask/internal/agent"
)

const checkTimeout = 2 * time.Second

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pai_ask",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route pattern and status code.",
}, []string{"route", "code"})

// Config holds server settings.
type Config struct {
	AllowedOrigins []string
}

// Checker is a dependency probed by /readyz.
type Checker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// Server routes HTTP requests to the engine and the widget channel.
type Server struct {
	cfg      Config
	engine   *agent.Engine
	widget   http.Handler
	checkers []Checker
	router   chi.Router
}

// New creates a server. widget may be nil, in which case /ws is not served.
func New(cfg Config, engine *agent.Engine, widget http.Handler, checkers ...Checker) *Server {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		cfg:      cfg,
		engine:   engine,
		widget:   widget,
		checkers: checkers,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())
	if s.widget != nil {
		r.Handle("/ws", s.widget)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/subjects", s.handleSubjects)
		r.Get("/knowledge.xlsx", s.handleKnowledgeExport)
		r.Post("/subject", s.handleSubject)
		r.Post("/ask", s.handleAsk)
		r.Post("/random", s.handleRandom)
		r.Post("/cancel", s.handleCancel)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.checkers))
	ready := true
	for _, c := range s.checkers {
		if err := c.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "check", c.Name(), "error", err)
			checks[c.Name()] = err.Error()
			ready = false
			continue
		}
		checks[c.Name()] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()

		slog.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
