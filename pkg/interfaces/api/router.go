// Package api exposes the order calculation over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/internal/logger"
)

// NewRouter sets up HTTP routes. A nil gatherer disables /metrics.
func NewRouter(h *Handlers, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/calculations", h.Calculate).Methods(http.MethodPost)
	api.HandleFunc("/calculations/orders.csv", h.CalculateOrdersCSV).Methods(http.MethodPost)
	api.HandleFunc("/calculations/builds.csv", h.CalculateBuildsCSV).Methods(http.MethodPost)
	api.HandleFunc("/calculations/{runId}/events", h.RunEvents).Methods(http.MethodGet)

	api.HandleFunc("/categories/{categoryId:[0-9]+}/parts", h.CategoryParts).Methods(http.MethodGet)

	router.Use(loggingMiddleware(h.logger))

	return router
}

// loggingMiddleware logs HTTP requests with a request id
func loggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.WithRequest(log, r.Method, r.URL.Path, requestID).Info("http request",
				zap.Int("status", rec.status),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
