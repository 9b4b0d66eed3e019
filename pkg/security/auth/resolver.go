package auth

import (
	"context"
	"errors"
	"log/slog"

	"mercator-hq/saturn/pkg/gate"
)

// UserSource looks up a user by API key. The storage backends in pkg/store
// satisfy this.
type UserSource interface {
	UserByKey(ctx context.Context, key string) (*gate.User, error)
}

// Resolver maps presented API keys to user identities.
type Resolver struct {
	source UserSource
	logger *slog.Logger
}

// NewResolver creates a new key resolver backed by the given source.
func NewResolver(source UserSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source: source,
		logger: logger.With("component", "auth.resolver"),
	}
}

// Resolve returns the user holding the given key. An empty or unknown key
// fails with gate.ErrUnauthorized; storage failures pass through.
func (r *Resolver) Resolve(ctx context.Context, key string) (*gate.User, error) {
	if key == "" {
		return nil, gate.ErrUnauthorized
	}

	user, err := r.source.UserByKey(ctx, key)
	if errors.Is(err, gate.ErrNotFound) {
		return nil, gate.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RedactKey returns a loggable form of an API key: the first four
// characters followed by an ellipsis. Full keys never appear in logs.
func RedactKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "..."
}
