package middleware

import (
	"net/http"
	"time"

	"riddlen/riddle-service/pkg/logger"
	"riddlen/riddle-service/pkg/metrics"
)

// LoggingMiddleware logs every request with its method, path, status and
// duration, and feeds the request metrics.
func LoggingMiddleware(log *logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			duration := time.Since(start)
			log.WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("status", recorder.status).
				WithField("duration_ms", duration.Milliseconds()).
				Info("http request")
			if m != nil {
				m.RecordHTTPRequest(r.Method, r.URL.Path, recorder.status, duration)
			}
		})
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// CORSMiddleware adds CORS headers to all responses.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Account-Address, X-Roles, X-Device-Fingerprint")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
