package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/store"
)

var usersFlags struct {
	username string
	role     string
	credits  int
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts offline",
	Long: `Manage user accounts directly against the storage backend.

This command bypasses the HTTP API, which makes it usable for initial
provisioning before the gateway is started.`,
}

var usersGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Provision a user with a fresh API key",
	Long: `Provision a user account with a freshly generated API key.

The key is printed exactly once; it is not recoverable later except by an
admin querying the user store.

Examples:
  # Provision a member with 50 credits
  saturn users generate --username alice --role member --credits 50

  # Provision an additional admin
  saturn users generate --username ops --role admin --credits 100`,
	RunE: generateUser,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersGenerateCmd)

	usersGenerateCmd.Flags().StringVar(&usersFlags.username, "username", "", "account username (required)")
	usersGenerateCmd.Flags().StringVar(&usersFlags.role, "role", "member", "account role: admin, member")
	usersGenerateCmd.Flags().IntVar(&usersFlags.credits, "credits", 100, "starting credit balance")
	_ = usersGenerateCmd.MarkFlagRequired("username")
}

func generateUser(cmd *cobra.Command, args []string) error {
	role := gate.Role(usersFlags.role)
	if !role.Valid() {
		return cli.NewConfigError("role", fmt.Sprintf("unknown role %q, must be admin or member", usersFlags.role))
	}
	if usersFlags.credits < 0 {
		return cli.NewConfigError("credits", "must not be negative")
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	st, err := store.Open(&store.Config{
		Backend: cfg.Storage.Backend,
		SQLite:  convertSQLiteConfig(&cfg.Storage.SQLite),
	})
	if err != nil {
		return cli.NewCommandError("users generate", fmt.Errorf("failed to open storage: %w", err))
	}
	defer st.Close()

	user, err := st.CreateUser(context.Background(), usersFlags.username, role, usersFlags.credits, uuid.NewString())
	if err != nil {
		return cli.NewCommandError("users generate", err)
	}

	fmt.Printf("✓ User created\n")
	fmt.Printf("  ID:       %d\n", user.ID)
	fmt.Printf("  Username: %s\n", user.Username)
	fmt.Printf("  Role:     %s\n", user.Role)
	fmt.Printf("  Credits:  %d\n", user.Credits)
	fmt.Printf("  API key:  %s\n", user.Key)
	return nil
}
