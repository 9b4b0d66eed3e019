package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/store"
)

var logsFlags struct {
	status string
	sort   string
	user   string
	format string
	output string
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query the audit log",
	Long: `Query the audit log directly against the storage backend.

This command bypasses the HTTP API and reads the command log from the
configured storage backend, which makes it usable for offline audit and
incident review while the gateway is stopped.

Examples:
  # All records, newest first
  saturn logs

  # Only rejected commands, oldest first
  saturn logs --status rejected --sort asc

  # Records for one user, exported as JSON
  saturn logs --user alice --format json --output audit.json`,
	RunE: queryLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsFlags.status, "status", "all", "filter by outcome: all, executed, rejected")
	logsCmd.Flags().StringVar(&logsFlags.sort, "sort", "desc", "sort by timestamp: asc, desc")
	logsCmd.Flags().StringVar(&logsFlags.user, "user", "", "filter by username")
	logsCmd.Flags().StringVar(&logsFlags.format, "format", "text", "output format: text, json")
	logsCmd.Flags().StringVarP(&logsFlags.output, "output", "o", "", "output file (default: stdout)")
}

func queryLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	st, err := store.Open(&store.Config{
		Backend: cfg.Storage.Backend,
		SQLite:  convertSQLiteConfig(&cfg.Storage.SQLite),
	})
	if err != nil {
		return cli.NewCommandError("logs", fmt.Errorf("failed to open storage: %w", err))
	}
	defer st.Close()

	ctx := context.Background()

	q := &gate.LogQuery{
		Scope:  gate.ScopeAll,
		Status: gate.StatusFilter(logsFlags.status),
		Sort:   gate.SortOrder(logsFlags.sort),
	}

	if logsFlags.user != "" {
		target, err := st.UserByUsername(ctx, logsFlags.user)
		if err != nil {
			return cli.NewCommandError("logs", fmt.Errorf("unknown user %q: %w", logsFlags.user, err))
		}
		q.TargetUserID = target.ID
	}

	records, err := st.Logs(ctx, q)
	if err != nil {
		return cli.NewCommandError("logs", err)
	}

	out := os.Stdout
	if logsFlags.output != "" {
		f, err := os.Create(logsFlags.output)
		if err != nil {
			return cli.NewCommandError("logs", fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	switch cli.OutputFormat(logsFlags.format) {
	case cli.FormatJSON:
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(out, records); err != nil {
			return cli.NewCommandError("logs", err)
		}

	default:
		if err := cli.WriteAuditTable(out, records); err != nil {
			return cli.NewCommandError("logs", err)
		}
	}

	return nil
}
