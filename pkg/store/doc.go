// Package store provides storage backends for the gate core.
//
// # Storage Backends
//
// Two implementations of gate.Store are provided:
//
//   - SQLite: durable embedded storage for single-node deployments
//   - Memory: in-memory storage for testing and ephemeral runs
//
// # SQLite Backend
//
// The SQLite backend keeps users, rules, and audit records in one database
// file with:
//
//   - WAL mode for concurrent reads/writes
//   - Foreign keys with ON DELETE CASCADE from audit records to users
//   - Busy timeout for handling locks
//   - A schema_version table for future migrations
//
// # Decision Atomicity
//
// CommitDecision is the transactional heart of the gateway: the guarded
// credit decrement (credits = credits - 1 WHERE credits > 0) and the audit
// append run in a single transaction. When two submissions race for the
// last credit, exactly one observes the decrement; the loser's decision is
// downgraded to REJECTED / insufficient credits inside the same
// transaction, so the ledger never goes negative and the audit log always
// reflects what actually happened.
//
// # Basic Usage
//
//	st, err := store.Open(&store.Config{
//	    Backend: "sqlite",
//	    SQLite:  store.DefaultSQLiteConfig(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
package store
