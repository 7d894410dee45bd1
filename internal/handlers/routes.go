package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies aggregates collaborators required by the HTTP handlers.
type Dependencies struct {
	Updates UpdateSink
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	webhook := WebhookHandler{Sink: deps.Updates}

	mux.HandleFunc("/", health.Handle)
	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/webhook", webhook.Handle)
	mux.Handle("/metrics", promhttp.Handler())
}
