package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WithRequestID wraps next with a per-request correlation ID, generated
// the way the teacher generated its OAuth state value, logged on both
// the inbound request and the response it produced.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		slog.Info("request received", "request_id", requestID, "method", r.Method, "path", r.URL.Path)

		next.ServeHTTP(w, r)

		slog.Info("request completed", "request_id", requestID, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}
