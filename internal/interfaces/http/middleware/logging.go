// Package middleware holds the HTTP middleware of the featurization API.
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
)

// LoggingConfig holds configuration for the request logging middleware.
type LoggingConfig struct {
	// SkipPaths are not logged.
	SkipPaths []string

	// SlowThreshold marks slow requests; zero disables the check.
	SlowThreshold time.Duration
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// wrap returns a chi response writer and a func reporting the status sent,
// defaulting to 200 when the handler wrote nothing.
func wrap(w http.ResponseWriter, r *http.Request) (chimw.WrapResponseWriter, func() int) {
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	return ww, func() int {
		if s := ww.Status(); s != 0 {
			return s
		}
		return http.StatusOK
	}
}

// RequestLogging logs every request once it completes: 5xx at ERROR, 4xx and
// slow requests at WARN, the rest at INFO.
func RequestLogging(logger logging.Logger, config LoggingConfig) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww, status := wrap(w, r)
			next.ServeHTTP(ww, r)
			duration := time.Since(start)
			code := status()

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", code),
				logging.Duration("duration", duration),
				logging.Int("bytes", ww.BytesWritten()),
				logging.String("remote_addr", r.RemoteAddr),
			}
			if r.ContentLength > 0 {
				fields = append(fields, logging.Int64("request_bytes", r.ContentLength))
			}
			if id := chimw.GetReqID(r.Context()); id != "" {
				fields = append(fields, logging.String("request_id", id))
			}

			switch {
			case code >= 500:
				logger.Error("HTTP request completed with server error", fields...)
			case code >= 400:
				logger.Warn("HTTP request completed with client error", fields...)
			case config.SlowThreshold > 0 && duration >= config.SlowThreshold:
				logger.Warn("HTTP request completed (slow)", fields...)
			default:
				logger.Info("HTTP request completed", fields...)
			}
		})
	}
}
