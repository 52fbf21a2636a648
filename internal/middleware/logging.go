package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/orgstage/internal/auth"
)

// responseWriter captures HTTP status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each HTTP request with its status and duration.
func LoggingMiddleware(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.statusCode,
				"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
				"remote":      r.RemoteAddr,
			}).Info("http request")
		})
	}
}

// ActorMiddleware lifts the caller's identity from the X-Actor-Id header into
// the request context. Session handling lives outside this service; the
// header is whatever the fronting auth layer resolved.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get("X-Actor-Id"); actor != "" {
			r = r.WithContext(auth.ContextWithActorID(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
