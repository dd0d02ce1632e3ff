// Package api is the HTTP facade over the orchestrator: chi routes,
// correlation propagation, and error-to-status mapping, grounded on the
// ticketing platform's order_api/ticket_api handlers.
package api

import (
	"fmt"
	"net/http"
	"time"

	"order-orchestrator/internal/correlation"
	"order-orchestrator/internal/logger"
)

// correlationMiddleware reads X-Correlation-ID off the request (or
// generates one) and echoes it back on the response, per spec §6.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlation.HeaderName)
		if id == "" {
			var ctx = r.Context()
			id, ctx = correlation.FromContext(ctx)
			r = r.WithContext(ctx)
		} else {
			r = r.WithContext(correlation.WithID(r.Context(), id))
		}
		w.Header().Set(correlation.HeaderName, id)
		next.ServeHTTP(w, r)
	})
}

// requestLogMiddleware logs every request's method, path, status, and
// duration the way the ticketing platform's handlers log inline, but
// centralized instead of repeated per handler.
func requestLogMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("HTTP", fmt.Sprintf("%s %s -> %d (%s)", r.Method, r.URL.Path, sw.status, time.Since(start)))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
