// SPDX-License-Identifier: MIT
// Package httpapi exposes a running scheduler for inspection and light
// control over HTTP: task listing and detail, per-task event history,
// force-running a task ahead of its start_cond, a health check, and a
// Prometheus metrics endpoint.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Grigoriy457/rocketry/src/metrics"
	"github.com/Grigoriy457/rocketry/src/scheduler"
)

// pinger is implemented by history.Store backends that can report
// their own connectivity (SQLStore, RedisStore); history.MemoryStore
// does not, and is treated as always healthy.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server wraps a chi.Router bound to one Scheduler.
type Server struct {
	sc     *scheduler.Scheduler
	router *chi.Mux
}

// New builds a Server with every route mounted, ready to pass to
// http.ListenAndServe (or to an httptest server in tests).
func New(sc *scheduler.Scheduler) *Server {
	s := &Server{sc: sc, router: chi.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(s.metricsMiddleware)
}

// metricsMiddleware records request counts and latency the same way
// the teacher's own metrics middleware instruments its handler chain.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, http.StatusText(ww.Status())).Inc()
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/metrics", promhttp.Handler().ServeHTTP)

	s.router.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Get("/{name}", s.handleGetTask)
		r.Get("/{name}/history", s.handleTaskHistory)
		r.Post("/{name}/force-run", s.handleForceRun)
	})
}

func (s *Server) logger() *slog.Logger {
	if s.sc.Session.Logger != nil {
		return s.sc.Session.Logger
	}
	return slog.Default()
}
