package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/deploystack/internal/api/handler"
	mw "github.com/edvin/deploystack/internal/api/middleware"
	"github.com/edvin/deploystack/internal/catalog"
	"github.com/edvin/deploystack/internal/core"
)

type Server struct {
	router       chi.Router
	logger       zerolog.Logger
	services     *core.Services
	orchestrator *core.Orchestrator
	catalog      *catalog.Catalog
	corePool     *pgxpool.Pool
}

func NewServer(logger zerolog.Logger, corePool *pgxpool.Pool, services *core.Services, orchestrator *core.Orchestrator, cat *catalog.Catalog) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		logger:       logger,
		services:     services,
		orchestrator: orchestrator,
		catalog:      cat,
		corePool:     corePool,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.corePool))

		cat := handler.NewCatalog(s.catalog)
		r.Get("/catalog", cat.List)

		deployment := handler.NewDeployment(s.orchestrator, s.services.Deployment)
		r.Post("/deploy/{type}", deployment.Deploy)
		r.Get("/deployments", deployment.List)
		r.Get("/deployments/{id}/status", deployment.Status)
		r.Delete("/deployments/{id}", deployment.Delete)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
