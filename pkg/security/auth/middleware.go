package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/server/middleware"
)

// KeySource defines where to extract API keys from.
type KeySource struct {
	Type   string // header, query
	Name   string // Header name or query param
	Scheme string // "Bearer", etc. (optional)
}

// DefaultKeySources returns the gateway's key sources: the X-API-Key
// header, then an Authorization Bearer fallback.
func DefaultKeySources() []KeySource {
	return []KeySource{
		{Type: "header", Name: "X-API-Key"},
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
	}
}

// Middleware is HTTP middleware for API key authentication.
type Middleware struct {
	resolver *Resolver
	sources  []KeySource
}

// NewMiddleware creates a new API key authentication middleware.
func NewMiddleware(resolver *Resolver, sources []KeySource) *Middleware {
	if len(sources) == 0 {
		sources = DefaultKeySources()
	}
	return &Middleware{
		resolver: resolver,
		sources:  sources,
	}
}

// Handle wraps an HTTP handler with API key authentication. The resolved
// user is stored in the request context.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := m.extractKey(r)
		if err != nil {
			slog.Warn("missing API key",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			http.Error(w, "Missing or invalid API key", http.StatusUnauthorized)
			return
		}

		user, err := m.resolver.Resolve(r.Context(), key)
		if err != nil {
			slog.Warn("invalid API key",
				"key", RedactKey(key),
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		slog.Debug("API key authenticated",
			"user_id", user.ID,
			"role", user.Role,
			"path", r.URL.Path,
		)

		// Attribute the request in the access log.
		middleware.SetActor(r.Context(), user.ID, string(user.Role))

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractKey extracts the API key from the request using configured sources.
func (m *Middleware) extractKey(r *http.Request) (string, error) {
	for _, source := range m.sources {
		switch source.Type {
		case "header":
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme != "" {
				prefix := source.Scheme + " "
				if strings.HasPrefix(value, prefix) {
					return strings.TrimPrefix(value, prefix), nil
				}
				continue
			}
			return value, nil

		case "query":
			value := r.URL.Query().Get(source.Name)
			if value != "" {
				return value, nil
			}
		}
	}

	return "", fmt.Errorf("no API key found")
}

// Context key for the authenticated user
type contextKey string

const userKey contextKey = "gate_user"

// GetUser retrieves the authenticated user from the request context.
func GetUser(ctx context.Context) (*gate.User, bool) {
	user, ok := ctx.Value(userKey).(*gate.User)
	return user, ok
}

// WithUser returns a context carrying the given user. Exposed for handler
// tests.
func WithUser(ctx context.Context, user *gate.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
