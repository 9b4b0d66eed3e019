package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/security/auth"
	"mercator-hq/saturn/pkg/server"
	"mercator-hq/saturn/pkg/store"
	"mercator-hq/saturn/pkg/telemetry/logging"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watchConfig   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Saturn gateway server",
	Long: `Start the Saturn gateway server with the specified configuration.

The server listens on the configured address, authenticates clients by API
key, and moderates submitted commands through the rule engine, credit
meter, and audit log.

Examples:
  # Start with default config
  saturn run

  # Start with custom config
  saturn run --config /etc/saturn/config.yaml

  # Override listen address
  saturn run --listen 0.0.0.0:8080

  # Validate config without starting server
  saturn run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", true, "reload log level on config file changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	// Initialize logging
	logger, err := logging.Initialize(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Mercator Saturn v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Cancelled on SIGINT/SIGTERM so the watcher and scheduler unwind with
	// the server.
	ctx := cli.SetupSignalHandler()

	// Open storage backend
	st, err := store.Open(&store.Config{
		Backend: cfg.Storage.Backend,
		SQLite:  convertSQLiteConfig(&cfg.Storage.SQLite),
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to open storage: %w", err))
	}
	defer st.Close()

	fmt.Printf("✓ Storage initialized (%s)\n", cfg.Storage.Backend)

	// Bootstrap admin account and default rules
	if err := store.Seed(ctx, st, &store.SeedConfig{
		Enabled:       cfg.Seed.Enabled,
		AdminUsername: cfg.Seed.AdminUsername,
		AdminKey:      cfg.Seed.AdminKey,
		AdminCredits:  cfg.Seed.AdminCredits,
		DefaultRules:  cfg.Seed.DefaultRules,
	}, logger.Slog()); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("seeding failed: %w", err))
	}

	// Start SQLite maintenance scheduler if configured
	if sqliteStore, ok := st.(*store.SQLiteStore); ok && cfg.Storage.MaintenanceSchedule != "" {
		scheduler := store.NewMaintenanceScheduler(sqliteStore, cfg.Storage.MaintenanceSchedule)
		if err := scheduler.Start(ctx); err != nil {
			logger.Slog().Warn("failed to start maintenance scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	// Metrics
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		fmt.Println("✓ Metrics collector initialized")
	}

	// Moderation core
	engine := gate.NewEngine(logger.Slog())
	var recorder gate.MetricsRecorder
	if collector != nil {
		recorder = collector
	}
	service := gate.NewService(st, engine, recorder, logger.Slog())
	resolver := auth.NewResolver(st, logger.Slog())

	// Watch the config file so log level changes apply without a restart
	if runFlags.watchConfig {
		watcher, err := config.NewWatcher(cfgFile, logger.Slog())
		if err != nil {
			logger.Slog().Warn("failed to create config watcher", "error", err)
		} else {
			go func() {
				err := watcher.Watch(ctx, func(newCfg *config.Config) {
					if err := logger.SetLevel(newCfg.Telemetry.Logging.Level); err != nil {
						logger.Slog().Warn("invalid log level in reloaded config", "error", err)
					}
				})
				if err != nil {
					logger.Slog().Warn("config watcher exited", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	// Create and start HTTP server
	srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, service, resolver, collector)

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// convertSQLiteConfig converts config.SQLiteConfig to store.SQLiteConfig.
func convertSQLiteConfig(cfg *config.SQLiteConfig) *store.SQLiteConfig {
	return &store.SQLiteConfig{
		Path:         cfg.Path,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		WALMode:      cfg.WALMode,
		BusyTimeout:  cfg.BusyTimeout,
	}
}
