package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/backlink-service/internal/delivery/http/handler"
	"github.com/user/backlink-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.HandleHealthCheck)
	mux.HandleFunc("POST /api/scans", h.HandleCreateScan)
	mux.HandleFunc("GET /api/scans/{id}", h.HandleGetScan)
	mux.HandleFunc("POST /api/scans/{id}/cancel", h.HandleCancelScan)
	mux.HandleFunc("GET /api/scans/{id}/results", h.HandleGetScanResults)
	mux.HandleFunc("GET /api/scans/{id}/trend", h.HandleGetScanTrend)
	mux.HandleFunc("GET /api/projects/{id}/scans", h.HandleListProjectScans)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middlewares
	var chainedHandler http.Handler = mux
	chainedHandler = middleware.Metrics(chainedHandler)
	chainedHandler = middleware.Logging(chainedHandler)

	return chainedHandler
}
