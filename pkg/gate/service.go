package gate

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MetricsRecorder receives decision outcomes for telemetry. A nil recorder
// disables metrics.
type MetricsRecorder interface {
	RecordDecision(status, reason string, creditConsumed bool)
}

// SubmitResult is the transport-facing outcome of a command submission.
type SubmitResult struct {
	Status     Status `json:"status"`
	NewBalance int    `json:"new_balance"`
	Message    string `json:"message"`
}

// LogOptions carries the caller-requested audit filters before
// authorization overrides and target resolution are applied.
type LogOptions struct {
	Scope     LogScope
	TargetKey string
	Status    StatusFilter
	Sort      SortOrder
}

// Service orchestrates the moderation core: it resolves identities,
// evaluates rules, commits decision side effects atomically, and performs
// the admin operations on users, rules, and audit records. All
// authorization beyond key resolution happens here.
type Service struct {
	store   Store
	engine  *Engine
	metrics MetricsRecorder
	logger  *slog.Logger
}

// NewService creates a new gate service. metrics may be nil.
func NewService(store Store, engine *Engine, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = NewEngine(logger)
	}
	return &Service{
		store:   store,
		engine:  engine,
		metrics: metrics,
		logger:  logger.With("component", "gate.service"),
	}
}

// Submit evaluates one command for the given actor and applies the
// credit/audit side effects as one atomic unit. Rejected commands are
// logged exactly like executed ones.
func (s *Service) Submit(ctx context.Context, actor *User, commandText string) (*SubmitResult, error) {
	if strings.TrimSpace(commandText) == "" {
		return nil, NewValidationError("command_text", "must not be empty", nil)
	}

	rules, err := s.store.Rules(ctx)
	if err != nil {
		return nil, err
	}

	decision := s.engine.Evaluate(commandText, rules, actor.Credits)

	// The guarded decrement inside CommitDecision may downgrade the
	// decision when a concurrent submission spent the last credit.
	final, balance, err := s.store.CommitDecision(ctx, actor.ID, commandText, decision)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordDecision(string(final.Status), final.Reason, final.ConsumeCredit)
	}

	s.logger.Info("command decided",
		"user_id", actor.ID,
		"status", final.Status,
		"reason", final.Reason,
		"new_balance", balance,
	)

	return &SubmitResult{
		Status:     final.Status,
		NewBalance: balance,
		Message:    final.Reason,
	}, nil
}

// Rules returns all rules in evaluation order. Any authenticated caller
// may list rules.
func (s *Service) Rules(ctx context.Context) ([]Rule, error) {
	return s.store.Rules(ctx)
}

// CreateRule validates and appends a rule. Admin only. The pattern must
// compile as a regular expression and the action must be a recognized
// value; otherwise nothing is persisted.
func (s *Service) CreateRule(ctx context.Context, actor *User, pattern string, action RuleAction) (*Rule, error) {
	if actor.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	if pattern == "" {
		return nil, NewValidationError("pattern", "must not be empty", nil)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, NewValidationError("pattern", "must be a valid regular expression", err)
	}
	if !action.Valid() {
		return nil, NewValidationError("action", "must be AUTO_ACCEPT or AUTO_REJECT", nil)
	}

	rule, err := s.store.CreateRule(ctx, pattern, action)
	if err != nil {
		return nil, err
	}

	s.logger.Info("rule created",
		"rule_id", rule.ID,
		"action", rule.Action,
	)
	return rule, nil
}

// CreateUser provisions a new account with a freshly generated opaque API
// key. Admin only.
func (s *Service) CreateUser(ctx context.Context, actor *User, username string, role Role, credits int) (*User, error) {
	if actor.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(username) == "" {
		return nil, NewValidationError("username", "must not be empty", nil)
	}
	if !role.Valid() {
		return nil, NewValidationError("role", "must be admin or member", nil)
	}
	if credits < 0 {
		return nil, NewValidationError("credits", "must not be negative", nil)
	}

	if _, err := s.store.UserByUsername(ctx, username); err == nil {
		return nil, NewValidationError("username", "username already exists", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Keys are opaque and globally unique, never derived from the
	// username or role.
	key := uuid.NewString()

	user, err := s.store.CreateUser(ctx, username, role, credits, key)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"username", user.Username,
		"role", user.Role,
	)
	return user, nil
}

// LookupUser resolves a target user by API key for admin inspection.
// Unknown target keys surface as ErrNotFound.
func (s *Service) LookupUser(ctx context.Context, actor *User, targetKey string) (*User, error) {
	if actor.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return s.store.UserByKey(ctx, targetKey)
}

// UpdateUser replaces a target user's username and credit balance.
// Admin only; credits may be corrected to any non-negative value.
func (s *Service) UpdateUser(ctx context.Context, actor *User, targetKey, username string, credits int) (*User, error) {
	if actor.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(username) == "" {
		return nil, NewValidationError("username", "must not be empty", nil)
	}
	if credits < 0 {
		return nil, NewValidationError("credits", "must not be negative", nil)
	}

	target, err := s.store.UserByKey(ctx, targetKey)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateUser(ctx, target.ID, username, credits); err != nil {
		return nil, err
	}

	s.logger.Info("user updated",
		"user_id", target.ID,
		"username", username,
		"credits", credits,
	)
	return s.store.UserByID(ctx, target.ID)
}

// DeleteUser removes a target user and, as a cascade, every audit record
// the user owns. Admin only.
func (s *Service) DeleteUser(ctx context.Context, actor *User, targetKey string) error {
	if actor.Role != RoleAdmin {
		return ErrForbidden
	}

	target, err := s.store.UserByKey(ctx, targetKey)
	if err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, target.ID); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", target.ID)
	return nil
}

// Logs returns audit records for the caller. Non-admin callers are always
// forced to their own records regardless of the requested scope; this is
// an authorization override, not an error. An admin filtering by an
// unknown target key receives an empty result, per the audit API contract.
func (s *Service) Logs(ctx context.Context, actor *User, opts LogOptions) ([]*LogRecord, error) {
	q := &LogQuery{
		ActorID: actor.ID,
		Scope:   normalizeScope(opts.Scope),
		Status:  normalizeStatus(opts.Status),
		Sort:    normalizeSort(opts.Sort),
	}

	if actor.Role != RoleAdmin {
		q.Scope = ScopeMine
	} else if opts.TargetKey != "" {
		target, err := s.store.UserByKey(ctx, opts.TargetKey)
		if errors.Is(err, ErrNotFound) {
			return []*LogRecord{}, nil
		}
		if err != nil {
			return nil, err
		}
		q.TargetUserID = target.ID
	}

	return s.store.Logs(ctx, q)
}

// normalizeScope maps empty or unrecognized scopes to ScopeAll, matching
// the lenient filter handling of the audit API.
func normalizeScope(scope LogScope) LogScope {
	switch scope {
	case ScopeMine, ScopeMembers, ScopeOtherAdmins, ScopeAll:
		return scope
	default:
		return ScopeAll
	}
}

func normalizeStatus(status StatusFilter) StatusFilter {
	switch status {
	case StatusFilterExecuted, StatusFilterRejected, StatusFilterAll:
		return status
	default:
		return StatusFilterAll
	}
}

func normalizeSort(sort SortOrder) SortOrder {
	if sort == SortAscending {
		return sort
	}
	return SortDescending
}
