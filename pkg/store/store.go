package store

import (
	"fmt"

	"mercator-hq/saturn/pkg/gate"
)

// Config selects and configures a storage backend.
type Config struct {
	// Backend is the storage backend type ("sqlite" or "memory").
	Backend string

	// SQLite configures the SQLite backend. Ignored for other backends.
	SQLite *SQLiteConfig
}

// Open creates the storage backend named by the configuration.
func Open(cfg *Config) (gate.Store, error) {
	if cfg == nil {
		cfg = &Config{Backend: "sqlite"}
	}

	switch cfg.Backend {
	case "sqlite", "":
		return NewSQLiteStore(cfg.SQLite)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
