package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// newResponseWriter creates a new response writer wrapper.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // Default to 200
	}
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// actorInfo is filled in after the API key resolves. The logging
// middleware runs outside authentication, so it seeds a mutable holder
// on the way in and reads it back once the handler returns.
type actorInfo struct {
	userID int64
	role   string
}

// SetActor records the authenticated principal for the completion log
// line. A no-op when the request did not pass through LoggingMiddleware.
func SetActor(ctx context.Context, userID int64, role string) {
	if info, ok := ctx.Value(actorKey).(*actorInfo); ok {
		info.userID = userID
		info.role = role
	}
}

// LoggingMiddleware logs each request on completion with method, path,
// status, latency, request ID, and the resolved actor when the request
// authenticated. Command text and API keys never appear in these logs.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		actor := &actorInfo{}

		ctx := context.WithValue(r.Context(), StartTimeKey, startTime)
		ctx = context.WithValue(ctx, actorKey, actor)

		rw := newResponseWriter(w)

		slog.DebugContext(ctx, "request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		next.ServeHTTP(rw, r.WithContext(ctx))

		logLevel := slog.LevelInfo
		if rw.statusCode >= 500 {
			logLevel = slog.LevelError
		} else if rw.statusCode >= 400 {
			logLevel = slog.LevelWarn
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"latency_ms", time.Since(startTime).Milliseconds(),
			"request_id", GetRequestID(ctx),
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		}
		if actor.userID != 0 {
			attrs = append(attrs, "user_id", actor.userID, "role", actor.role)
		}

		slog.Log(ctx, logLevel, "request completed", attrs...)
	})
}

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}
