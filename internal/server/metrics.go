package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the Prometheus scrape endpoint and a liveness probe.
type MetricsHandler struct {
	prom http.Handler
}

// NewMetricsHandler creates a handler exposing /metrics and /health.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{prom: promhttp.Handler()}
}

// Routes returns the HTTP routes this handler serves.
func (h *MetricsHandler) Routes() []string {
	return []string{"/metrics", "/health"}
}

// ServeHTTP dispatches between the scrape endpoint and the liveness probe.
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
		return
	}
	h.prom.ServeHTTP(w, r)
}
