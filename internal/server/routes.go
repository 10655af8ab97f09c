package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application routes:
// the health line, the per-room WebSocket endpoint, Prometheus metrics, and
// the test page.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.HealthHandler)
	mux.HandleFunc("GET /chat/{room}", s.WebSocketHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /test", TestPageHandler)
	return mux
}
