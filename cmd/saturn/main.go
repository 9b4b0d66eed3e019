// Mercator Saturn is a command moderation gateway.
//
// It sits between automation clients and a shell execution environment,
// providing:
//   - Ordered regex rule evaluation for command admission
//   - Credit-metered execution tied to per-user accounts
//   - An append-only audit log of every decision
//   - Admin APIs for users, rules, and audit queries
//
// Usage:
//
//	# Start the gateway with default configuration
//	saturn run
//
//	# Start with custom configuration file
//	saturn run --config /path/to/config.yaml
//
//	# Show version information
//	saturn version
//
//	# Query the audit log offline
//	saturn logs --status rejected --sort asc
//
//	# Provision a user offline
//	saturn users generate --username alice --role member --credits 50
//
// For complete documentation, see: https://github.com/mercator-hq/saturn
package main

func main() {
	Execute()
}
