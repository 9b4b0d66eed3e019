package store

import (
	"context"
	"errors"
	"log/slog"

	"mercator-hq/saturn/pkg/gate"
)

// SeedConfig controls the idempotent startup bootstrap.
type SeedConfig struct {
	// Enabled controls whether seeding runs at all.
	Enabled bool

	// AdminUsername is the bootstrap admin account name.
	AdminUsername string

	// AdminKey is the bootstrap admin's pre-shared API key.
	AdminKey string

	// AdminCredits is the bootstrap admin's starting balance.
	AdminCredits int

	// DefaultRules seeds a starter rule set when the rule store is empty.
	DefaultRules bool
}

// DefaultSeedConfig returns the default bootstrap configuration.
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		Enabled:       true,
		AdminUsername: "admin",
		AdminKey:      "admin-secret-key",
		AdminCredits:  999,
		DefaultRules:  true,
	}
}

// defaultRules is the starter rule set: well-known destructive commands
// are blocked, common read-only commands are admitted.
var defaultRules = []gate.Rule{
	{Pattern: `:\(\)\{ :\|:& \};:`, Action: gate.ActionAutoReject},
	{Pattern: `rm\s+-rf\s+/`, Action: gate.ActionAutoReject},
	{Pattern: `mkfs\.`, Action: gate.ActionAutoReject},
	{Pattern: `git\s+(status|log|diff)`, Action: gate.ActionAutoAccept},
	{Pattern: `^(ls|cat|pwd|echo)`, Action: gate.ActionAutoAccept},
}

// Seed performs the idempotent startup bootstrap: it creates the admin
// account if no user holds the configured username, and seeds the default
// rule set if the rule store is empty. Invoked explicitly once at process
// initialization; safe to run on every start.
func Seed(ctx context.Context, st gate.Store, cfg *SeedConfig, logger *slog.Logger) error {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store.seed")

	if !cfg.Enabled {
		logger.Debug("seeding disabled")
		return nil
	}

	_, err := st.UserByUsername(ctx, cfg.AdminUsername)
	switch {
	case errors.Is(err, gate.ErrNotFound):
		admin, err := st.CreateUser(ctx, cfg.AdminUsername, gate.RoleAdmin, cfg.AdminCredits, cfg.AdminKey)
		if err != nil {
			return err
		}
		logger.Info("seeded admin user",
			"user_id", admin.ID,
			"username", admin.Username,
		)
	case err != nil:
		return err
	}

	if cfg.DefaultRules {
		rules, err := st.Rules(ctx)
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			for _, r := range defaultRules {
				if _, err := st.CreateRule(ctx, r.Pattern, r.Action); err != nil {
					return err
				}
			}
			logger.Info("seeded default rules", "count", len(defaultRules))
		}
	}

	return nil
}
