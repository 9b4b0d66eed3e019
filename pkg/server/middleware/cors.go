package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig contains configuration for CORS middleware.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	Enabled bool

	// AllowedOrigins is a list of allowed origins for CORS.
	// Use ["*"] to allow all origins.
	AllowedOrigins []string

	// AllowedMethods is a list of allowed HTTP methods.
	AllowedMethods []string

	// AllowedHeaders is a list of allowed HTTP headers.
	AllowedHeaders []string

	// ExposedHeaders is a list of headers exposed to clients.
	ExposedHeaders []string

	// MaxAge is the maximum age (in seconds) for preflight cache.
	MaxAge int

	// AllowCredentials controls whether credentials are allowed.
	AllowCredentials bool
}

// DefaultCORSConfig allows any origin, matching the gateway's default
// open posture. The header lists cover everything the API uses: the
// X-API-Key credential, the Bearer fallback, and the request ID echoed
// back on every response.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         3600, // 1 hour
	}
}

// CORSMiddleware adds Cross-Origin Resource Sharing headers and answers
// preflight OPTIONS requests. The joined header values are computed once
// at wrap time; per-request work is limited to the origin check.
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	allowAll := slices.Contains(config.AllowedOrigins, "*")
	allowMethods := strings.Join(config.AllowedMethods, ", ")
	allowHeaders := strings.Join(config.AllowedHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			headers := w.Header()

			switch {
			case origin != "" && (allowAll || slices.Contains(config.AllowedOrigins, origin)):
				headers.Set("Access-Control-Allow-Origin", origin)
				if !allowAll {
					// Cache entries are origin-specific.
					headers.Add("Vary", "Origin")
				}
				if config.AllowCredentials {
					headers.Set("Access-Control-Allow-Credentials", "true")
				}
				if exposeHeaders != "" {
					headers.Set("Access-Control-Expose-Headers", exposeHeaders)
				}
			case allowAll:
				headers.Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == http.MethodOptions {
				if allowMethods != "" {
					headers.Set("Access-Control-Allow-Methods", allowMethods)
				}
				if allowHeaders != "" {
					headers.Set("Access-Control-Allow-Headers", allowHeaders)
				}
				if config.MaxAge > 0 {
					headers.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
