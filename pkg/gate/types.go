package gate

import (
	"context"
	"time"
)

// Role is the authorization role attached to a user account.
type Role string

const (
	// RoleAdmin grants user, rule, and audit administration.
	RoleAdmin Role = "admin"

	// RoleMember may submit commands and inspect its own audit records.
	RoleMember Role = "member"
)

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// RuleAction is the action a rule applies when its pattern matches.
type RuleAction string

const (
	// ActionAutoAccept admits the command, subject to the credit check.
	ActionAutoAccept RuleAction = "AUTO_ACCEPT"

	// ActionAutoReject blocks the command unconditionally.
	ActionAutoReject RuleAction = "AUTO_REJECT"
)

// Valid reports whether the action is one of the recognized values.
func (a RuleAction) Valid() bool {
	return a == ActionAutoAccept || a == ActionAutoReject
}

// Status is the final outcome of a command submission.
type Status string

const (
	// StatusExecuted means the command was admitted and a credit consumed.
	StatusExecuted Status = "EXECUTED"

	// StatusRejected means the command was not admitted.
	StatusRejected Status = "REJECTED"
)

// Reason strings form a fixed enumerated set; the audit log and API
// responses never carry any other value.
const (
	ReasonAllowed   = "allowed by rule & credits available"
	ReasonBlocked   = "blocked by security rule"
	ReasonNoMatch   = "no matching rule found"
	ReasonNoCredits = "insufficient credits"
)

// User is a credit-bearing account identified by an opaque API key.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Key      string `json:"api_key"`
	Role     Role   `json:"role"`
	Credits  int    `json:"credits"`
}

// Rule is an ordered pattern/action pair governing command admission.
// Rules are immutable after creation and evaluated in ascending ID order;
// the first matching rule wins.
type Rule struct {
	ID      int64      `json:"id"`
	Pattern string     `json:"pattern"`
	Action  RuleAction `json:"action"`
}

// LogRecord is one append-only audit entry for a command submission.
// Username is denormalized by the storage backend's join so callers never
// traverse back to the users table.
type LogRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	CommandText string    `json:"command_text"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// Decision is the outcome of evaluating one command against the rule set
// and the caller's balance. ConsumeCredit is set only when Status is
// StatusExecuted.
type Decision struct {
	Status        Status
	Reason        string
	ConsumeCredit bool
}

// LogScope selects whose records an audit query returns.
type LogScope string

const (
	// ScopeAll returns every record (admin only).
	ScopeAll LogScope = "all"

	// ScopeMine returns only the caller's records.
	ScopeMine LogScope = "mine"

	// ScopeMembers returns records owned by member-role users (admin only).
	ScopeMembers LogScope = "users"

	// ScopeOtherAdmins returns records owned by admin-role users other
	// than the caller (admin only).
	ScopeOtherAdmins LogScope = "other_admins"
)

// StatusFilter narrows an audit query by outcome.
type StatusFilter string

const (
	// StatusFilterAll applies no outcome filter.
	StatusFilterAll StatusFilter = "all"

	// StatusFilterExecuted keeps only EXECUTED records.
	StatusFilterExecuted StatusFilter = "executed"

	// StatusFilterRejected keeps every record whose status is not
	// EXECUTED, covering rule blocks, no-match, and no-credit outcomes.
	StatusFilterRejected StatusFilter = "rejected"
)

// SortOrder orders audit query results by timestamp.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// LogQuery is the resolved, storage-facing filter for audit records.
// Authorization overrides (members forced to their own records) and target
// key resolution happen in the Service before a query reaches storage.
type LogQuery struct {
	// ActorID is the calling user's ID, used by ScopeMine and
	// ScopeOtherAdmins.
	ActorID int64

	// Scope selects whose records to return. Ignored when TargetUserID
	// is set.
	Scope LogScope

	// TargetUserID restricts results to a single user when > 0.
	TargetUserID int64

	// Status narrows by outcome.
	Status StatusFilter

	// Sort orders by timestamp; ties break on record ID in the same
	// direction so ordering is total and reproducible.
	Sort SortOrder
}

// Store is the storage collaborator the gate core depends on. Backends
// live in pkg/store; the core only sees this interface.
type Store interface {
	// UserByKey returns the user holding the given API key, or
	// ErrNotFound.
	UserByKey(ctx context.Context, key string) (*User, error)

	// UserByID returns the user with the given ID, or ErrNotFound.
	UserByID(ctx context.Context, id int64) (*User, error)

	// UserByUsername returns the user with the given username, or
	// ErrNotFound.
	UserByUsername(ctx context.Context, username string) (*User, error)

	// CreateUser persists a new user with the supplied pre-generated
	// key. A duplicate username or key fails with a ValidationError.
	CreateUser(ctx context.Context, username string, role Role, credits int, key string) (*User, error)

	// UpdateUser replaces the username and credit balance of an
	// existing user.
	UpdateUser(ctx context.Context, id int64, username string, credits int) error

	// DeleteUser removes a user and cascades deletion of its audit
	// records.
	DeleteUser(ctx context.Context, id int64) error

	// Rules returns all rules in creation (ascending ID) order.
	Rules(ctx context.Context) ([]Rule, error)

	// CreateRule appends a rule. Pattern validation happens in the
	// Service; storage only persists.
	CreateRule(ctx context.Context, pattern string, action RuleAction) (*Rule, error)

	// CommitDecision applies a decision's side effects as one atomic
	// unit: when the decision consumes a credit the decrement is guarded
	// by credits > 0, and a concurrent spend downgrades the decision to
	// REJECTED / insufficient credits inside the same transaction. The
	// audit record is appended with the final status either way. Returns
	// the final decision and the user's new balance.
	CommitDecision(ctx context.Context, userID int64, commandText string, d Decision) (Decision, int, error)

	// Logs returns audit records matching the query, ordered per
	// LogQuery.Sort.
	Logs(ctx context.Context, q *LogQuery) ([]*LogRecord, error)

	// Close releases backend resources.
	Close() error
}
