package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"mercator-hq/saturn/pkg/gate"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/saturn.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// dsn builds the driver DSN. Connection-scoped pragmas must ride on the
// DSN rather than a one-off Exec: an Exec'd PRAGMA binds to whichever
// pooled connection ran it, while DSN parameters apply to every
// connection the pool opens. Foreign keys back the audit cascade on user
// deletion, and _txlock=immediate makes every transaction take the write
// lock at BEGIN so the audit insert in CommitDecision never has to
// upgrade a read snapshot (an upgrade fails with SQLITE_BUSY under
// concurrent writers, regardless of busy_timeout).
func (c *SQLiteConfig) dsn() string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	params.Set("_txlock", "immediate")
	if c.WALMode {
		params.Set("_journal_mode", "WAL")
	}
	return c.Path + "?" + params.Encode()
}

// SQLiteStore implements gate.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite storage backend. It initializes the
// database schema and enables WAL mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "store.sqlite")

	db, err := sql.Open("sqlite3", config.dsn())
	if err != nil {
		return nil, gate.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize creates the database schema and verifies its version. The
// journal mode, busy timeout, and foreign key pragmas are carried by the
// DSN, so nothing connection-scoped happens here.
func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return gate.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return gate.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return gate.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return gate.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// UserByKey returns the user holding the given API key.
func (s *SQLiteStore) UserByKey(ctx context.Context, key string) (*gate.User, error) {
	return s.userBy(ctx, "api_key = ?", key)
}

// UserByID returns the user with the given ID.
func (s *SQLiteStore) UserByID(ctx context.Context, id int64) (*gate.User, error) {
	return s.userBy(ctx, "id = ?", id)
}

// UserByUsername returns the user with the given username.
func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (*gate.User, error) {
	return s.userBy(ctx, "username = ?", username)
}

func (s *SQLiteStore) userBy(ctx context.Context, where string, arg interface{}) (*gate.User, error) {
	var u gate.User
	query := "SELECT id, username, api_key, role, credits FROM users WHERE " + where
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Key, &u.Role, &u.Credits)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gate.ErrNotFound
	}
	if err != nil {
		return nil, gate.NewStorageError("sqlite", "query_user", err)
	}
	return &u, nil
}

// CreateUser persists a new user with the supplied pre-generated key.
func (s *SQLiteStore) CreateUser(ctx context.Context, username string, role gate.Role, credits int, key string) (*gate.User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, api_key, role, credits) VALUES (?, ?, ?, ?)",
		username, key, role, credits,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, gate.NewValidationError("username", "username already exists", err)
		}
		return nil, gate.NewStorageError("sqlite", "create_user", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, gate.NewStorageError("sqlite", "create_user", err)
	}

	return &gate.User{ID: id, Username: username, Key: key, Role: role, Credits: credits}, nil
}

// UpdateUser replaces the username and credit balance of an existing user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id int64, username string, credits int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET username = ?, credits = ? WHERE id = ?",
		username, credits, id,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return gate.NewValidationError("username", "username already exists", err)
		}
		return gate.NewStorageError("sqlite", "update_user", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return gate.NewStorageError("sqlite", "update_user", err)
	}
	if affected == 0 {
		return gate.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user; the foreign key cascade removes the user's
// audit records in the same statement.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return gate.NewStorageError("sqlite", "delete_user", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return gate.NewStorageError("sqlite", "delete_user", err)
	}
	if affected == 0 {
		return gate.ErrNotFound
	}
	return nil
}

// Rules returns all rules in creation order.
func (s *SQLiteStore) Rules(ctx context.Context) ([]gate.Rule, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, pattern, action FROM rules ORDER BY id ASC")
	if err != nil {
		return nil, gate.NewStorageError("sqlite", "query_rules", err)
	}
	defer rows.Close()

	rules := []gate.Rule{}
	for rows.Next() {
		var r gate.Rule
		if err := rows.Scan(&r.ID, &r.Pattern, &r.Action); err != nil {
			return nil, gate.NewStorageError("sqlite", "scan_rule", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, gate.NewStorageError("sqlite", "query_rules", err)
	}
	return rules, nil
}

// CreateRule appends a rule.
func (s *SQLiteStore) CreateRule(ctx context.Context, pattern string, action gate.RuleAction) (*gate.Rule, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO rules (pattern, action) VALUES (?, ?)",
		pattern, action,
	)
	if err != nil {
		return nil, gate.NewStorageError("sqlite", "create_rule", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, gate.NewStorageError("sqlite", "create_rule", err)
	}

	return &gate.Rule{ID: id, Pattern: pattern, Action: action}, nil
}

// CommitDecision applies a decision's side effects in one transaction.
// The credit decrement is guarded by credits > 0; if a concurrent
// submission already spent the last credit, the decision is downgraded to
// REJECTED / insufficient credits before the audit row is written. The
// transaction is rolled back in full on any failure, so no partial
// decrement or log write survives a storage error.
func (s *SQLiteStore) CommitDecision(ctx context.Context, userID int64, commandText string, d gate.Decision) (gate.Decision, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return gate.Decision{}, 0, gate.NewStorageError("sqlite", "commit_decision", err)
	}
	defer tx.Rollback()

	final := d
	if d.ConsumeCredit {
		res, err := tx.ExecContext(ctx,
			"UPDATE users SET credits = credits - 1 WHERE id = ? AND credits > 0",
			userID,
		)
		if err != nil {
			return gate.Decision{}, 0, gate.NewStorageError("sqlite", "decrement_credits", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return gate.Decision{}, 0, gate.NewStorageError("sqlite", "decrement_credits", err)
		}
		if affected == 0 {
			final = gate.Decision{Status: gate.StatusRejected, Reason: gate.ReasonNoCredits}
		}
	}

	var balance int
	err = tx.QueryRowContext(ctx, "SELECT credits FROM users WHERE id = ?", userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return gate.Decision{}, 0, gate.ErrNotFound
	}
	if err != nil {
		return gate.Decision{}, 0, gate.NewStorageError("sqlite", "commit_decision", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO command_logs (user_id, command_text, status, reason, timestamp) VALUES (?, ?, ?, ?, ?)",
		userID, commandText, final.Status, final.Reason, time.Now().UTC(),
	)
	if err != nil {
		return gate.Decision{}, 0, gate.NewStorageError("sqlite", "append_log", err)
	}

	if err := tx.Commit(); err != nil {
		return gate.Decision{}, 0, gate.NewStorageError("sqlite", "commit_decision", err)
	}

	return final, balance, nil
}

// Logs returns audit records matching the query, with the owner's username
// denormalized via a join.
func (s *SQLiteStore) Logs(ctx context.Context, q *gate.LogQuery) ([]*gate.LogRecord, error) {
	whereClause, args := buildLogWhere(q)

	sqlQuery := `SELECT l.id, l.user_id, u.username, l.command_text, l.status, l.reason, l.timestamp
		FROM command_logs l JOIN users u ON u.id = l.user_id`
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	direction := "DESC"
	if q.Sort == gate.SortAscending {
		direction = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY l.timestamp %s, l.id %s", direction, direction)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, gate.NewStorageError("sqlite", "query_logs", err)
	}
	defer rows.Close()

	records := []*gate.LogRecord{}
	for rows.Next() {
		var rec gate.LogRecord
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.Username, &rec.CommandText, &rec.Status, &rec.Reason, &rec.Timestamp)
		if err != nil {
			return nil, gate.NewStorageError("sqlite", "scan_log", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, gate.NewStorageError("sqlite", "query_logs", err)
	}
	return records, nil
}

// buildLogWhere builds a SQL WHERE clause from the resolved query.
// Returns the clause (without the WHERE keyword) and its arguments.
func buildLogWhere(q *gate.LogQuery) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	switch {
	case q.TargetUserID > 0:
		conditions = append(conditions, "l.user_id = ?")
		args = append(args, q.TargetUserID)
	case q.Scope == gate.ScopeMine:
		conditions = append(conditions, "l.user_id = ?")
		args = append(args, q.ActorID)
	case q.Scope == gate.ScopeMembers:
		conditions = append(conditions, "u.role = ?")
		args = append(args, gate.RoleMember)
	case q.Scope == gate.ScopeOtherAdmins:
		conditions = append(conditions, "u.role = ? AND l.user_id != ?")
		args = append(args, gate.RoleAdmin, q.ActorID)
	}

	switch q.Status {
	case gate.StatusFilterExecuted:
		conditions = append(conditions, "l.status = ?")
		args = append(args, gate.StatusExecuted)
	case gate.StatusFilterRejected:
		conditions = append(conditions, "l.status != ?")
		args = append(args, gate.StatusExecuted)
	}

	return strings.Join(conditions, " AND "), args
}

// Maintain runs periodic SQLite housekeeping: a WAL checkpoint and the
// query planner's PRAGMA optimize. Audit rows are never pruned; the log is
// append-only.
func (s *SQLiteStore) Maintain(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		return gate.NewStorageError("sqlite", "wal_checkpoint", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return gate.NewStorageError("sqlite", "optimize", err)
	}
	s.logger.Debug("maintenance cycle completed")
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return gate.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite store closed")
	return nil
}

// isConstraintViolation reports whether err is a SQLite unique or check
// constraint failure.
func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
