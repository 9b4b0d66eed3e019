// Package gate implements the command moderation core of Mercator Saturn.
//
// The gate receives shell-like command strings submitted by credit-bearing
// accounts, matches them against an ordered set of regex rules, and produces
// a deterministic decision:
//
//   - EXECUTED: a rule auto-accepted the command and a credit was available
//     (exactly one credit is consumed)
//   - REJECTED: a rule auto-rejected the command, no rule matched, or the
//     account had no credits left for an auto-accepted command
//
// Every decision is recorded in the audit log as one atomic unit with the
// credit side effect, regardless of outcome. The Service type orchestrates
// identity resolution, rule evaluation, the atomic commit against the
// storage backend, and admin operations on users and rules.
package gate
