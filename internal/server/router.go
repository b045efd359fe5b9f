package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes and middleware.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// System endpoints (no rate limiting)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/{$}", s.withMiddleware(s.handleHome))
	mux.HandleFunc("/diagnose", s.withMiddleware(s.handleDiagnose))
	mux.HandleFunc("/info/cpu", s.withMiddleware(s.handleCPU))
	mux.HandleFunc("/info/memory", s.withMiddleware(s.handleMemory))
	mux.HandleFunc("/search", s.withMiddleware(s.handleSearch))
	mux.HandleFunc("/file/largest", s.withMiddleware(s.handleLargest))

	return mux
}
