package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder records metrics for completed HTTP requests.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// MetricsMiddleware records request count and duration for each request.
// Paths not in knownPaths are aggregated under "other" so that probing
// unknown URLs cannot inflate metric cardinality.
func MetricsMiddleware(recorder HTTPRecorder, knownPaths []string) func(http.Handler) http.Handler {
	known := make(map[string]struct{}, len(knownPaths))
	for _, p := range knownPaths {
		known[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recorder == nil {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if _, ok := known[path]; !ok {
				path = "other"
			}

			recorder.RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(startTime))
		})
	}
}
