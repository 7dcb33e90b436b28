// Package api provides the HTTP membership-change API: a thin transport
// shell around internal/nakamoto, internal/rules, and internal/changeengine
// (spec §9 — the core itself never reaches the network; this package is one
// of the external collaborators that does).
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icnetwork/decentralization/internal/nodestore"
)

// version is the API's own wire version, independent of the module's.
const version = "0.1.0"

// Server is the subnetctl HTTP API.
type Server struct {
	store          *nodestore.Store // optional: backs /api/nodes and /api/pools
	metricsEnabled bool
}

// NewServer creates a Server. store may be nil if no node-inventory cache
// is configured; the pool/node-lookup endpoints then return 503.
func NewServer(store *nodestore.Store) *Server {
	return &Server{store: store}
}

// EnableMetrics turns on the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version})
	})

	r.Route("/api/subnets", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Post("/check", s.handleCheck)
		r.Post("/extend", s.handleExtend)
		r.Post("/optimize", s.handleOptimize)
		r.Post("/replace", s.handleReplace)
	})

	r.Route("/api/nodes", func(r chi.Router) {
		r.Get("/", s.handleListNodes)
		r.Get("/{id}", s.handleGetNode)
	})
	r.Get("/api/pools/{name}", s.handleGetPool)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
