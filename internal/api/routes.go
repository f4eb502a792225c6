package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(MetricsMiddleware()))

	// Health and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Upload pages
	r.HandleFunc("/", handler.Index).Methods(http.MethodGet)
	r.HandleFunc("/result", handler.Result).Methods(http.MethodPost)
	r.HandleFunc("/result", handler.RedirectToIndex).Methods(http.MethodGet)
	r.HandleFunc("/download", handler.Download).Methods(http.MethodGet)

	// JSON API
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/adx", handler.ComputeADX).Methods(http.MethodPost)

	if handler.repo != nil {
		api.HandleFunc("/analyses", handler.ListAnalyses).Methods(http.MethodGet)
		api.HandleFunc("/analyses/{id}", handler.GetAnalysis).Methods(http.MethodGet)
		api.HandleFunc("/analyses/{id}/export", handler.ExportAnalysis).Methods(http.MethodGet)
		api.HandleFunc("/analyses/{id}", handler.DeleteAnalysis).Methods(http.MethodDelete)
	}

	return r
}

// NewServerHandler wraps the router with recovery and request logging
func NewServerHandler(handler *Handler) http.Handler {
	middlewares := ChainMiddleware(
		LoggingMiddleware(),
		RecoveryMiddleware(),
	)
	return middlewares(SetupRoutes(handler))
}
