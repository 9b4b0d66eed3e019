package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/saturn/pkg/gate"
)

// MemoryStore implements gate.Store using in-memory maps. It is intended
// for testing and ephemeral runs; nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	users map[int64]*gate.User
	rules []gate.Rule
	logs  []*gate.LogRecord

	nextUserID int64
	nextRuleID int64
	nextLogID  int64

	// lastTimestamp keeps audit timestamps non-decreasing even when the
	// clock reads the same instant twice.
	lastTimestamp time.Time
}

// NewMemoryStore creates a new in-memory storage backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]*gate.User),
	}
}

// UserByKey returns the user holding the given API key.
func (s *MemoryStore) UserByKey(ctx context.Context, key string) (*gate.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Key == key {
			userCopy := *u
			return &userCopy, nil
		}
	}
	return nil, gate.ErrNotFound
}

// UserByID returns the user with the given ID.
func (s *MemoryStore) UserByID(ctx context.Context, id int64) (*gate.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, gate.ErrNotFound
	}
	userCopy := *u
	return &userCopy, nil
}

// UserByUsername returns the user with the given username.
func (s *MemoryStore) UserByUsername(ctx context.Context, username string) (*gate.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			userCopy := *u
			return &userCopy, nil
		}
	}
	return nil, gate.ErrNotFound
}

// CreateUser persists a new user with the supplied pre-generated key.
func (s *MemoryStore) CreateUser(ctx context.Context, username string, role gate.Role, credits int, key string) (*gate.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, gate.NewValidationError("username", "username already exists", nil)
		}
		if u.Key == key {
			return nil, gate.NewValidationError("api_key", "key already exists", nil)
		}
	}

	s.nextUserID++
	u := &gate.User{
		ID:       s.nextUserID,
		Username: username,
		Key:      key,
		Role:     role,
		Credits:  credits,
	}
	s.users[u.ID] = u

	userCopy := *u
	return &userCopy, nil
}

// UpdateUser replaces the username and credit balance of an existing user.
func (s *MemoryStore) UpdateUser(ctx context.Context, id int64, username string, credits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return gate.ErrNotFound
	}

	for _, other := range s.users {
		if other.ID != id && other.Username == username {
			return gate.NewValidationError("username", "username already exists", nil)
		}
	}

	u.Username = username
	u.Credits = credits
	return nil
}

// DeleteUser removes a user and cascades deletion of its audit records.
func (s *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return gate.ErrNotFound
	}
	delete(s.users, id)

	kept := s.logs[:0]
	for _, rec := range s.logs {
		if rec.UserID != id {
			kept = append(kept, rec)
		}
	}
	s.logs = kept
	return nil
}

// Rules returns all rules in creation order.
func (s *MemoryStore) Rules(ctx context.Context) ([]gate.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]gate.Rule, len(s.rules))
	copy(rules, s.rules)
	return rules, nil
}

// CreateRule appends a rule.
func (s *MemoryStore) CreateRule(ctx context.Context, pattern string, action gate.RuleAction) (*gate.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRuleID++
	rule := gate.Rule{ID: s.nextRuleID, Pattern: pattern, Action: action}
	s.rules = append(s.rules, rule)

	ruleCopy := rule
	return &ruleCopy, nil
}

// CommitDecision applies a decision's side effects under the store lock,
// which serializes submissions the way the SQLite transaction does. A
// consuming decision finding the balance already at zero is downgraded to
// REJECTED / insufficient credits before the audit record is appended.
func (s *MemoryStore) CommitDecision(ctx context.Context, userID int64, commandText string, d gate.Decision) (gate.Decision, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return gate.Decision{}, 0, gate.ErrNotFound
	}

	final := d
	if d.ConsumeCredit {
		if u.Credits > 0 {
			u.Credits--
		} else {
			final = gate.Decision{Status: gate.StatusRejected, Reason: gate.ReasonNoCredits}
		}
	}

	s.nextLogID++
	s.logs = append(s.logs, &gate.LogRecord{
		ID:          s.nextLogID,
		UserID:      u.ID,
		Username:    u.Username,
		CommandText: commandText,
		Status:      final.Status,
		Reason:      final.Reason,
		Timestamp:   s.nextTimestamp(),
	})

	return final, u.Credits, nil
}

// nextTimestamp returns a server-assigned UTC timestamp that never moves
// backwards. Callers must hold the write lock.
func (s *MemoryStore) nextTimestamp() time.Time {
	now := time.Now().UTC()
	if now.Before(s.lastTimestamp) {
		now = s.lastTimestamp
	}
	s.lastTimestamp = now
	return now
}

// Logs returns audit records matching the query.
func (s *MemoryStore) Logs(ctx context.Context, q *gate.LogQuery) ([]*gate.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*gate.LogRecord{}
	for _, rec := range s.logs {
		if !s.matchesQuery(rec, q) {
			continue
		}
		recCopy := *rec
		// Username reflects the owner's current name, matching the join
		// semantics of the SQLite backend.
		if u, ok := s.users[rec.UserID]; ok {
			recCopy.Username = u.Username
		}
		results = append(results, &recCopy)
	}

	asc := q.Sort == gate.SortAscending
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if asc {
				return a.Timestamp.Before(b.Timestamp)
			}
			return a.Timestamp.After(b.Timestamp)
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	return results, nil
}

// matchesQuery applies scope and status filters. Callers must hold at
// least the read lock.
func (s *MemoryStore) matchesQuery(rec *gate.LogRecord, q *gate.LogQuery) bool {
	owner, ok := s.users[rec.UserID]

	switch {
	case q.TargetUserID > 0:
		if rec.UserID != q.TargetUserID {
			return false
		}
	case q.Scope == gate.ScopeMine:
		if rec.UserID != q.ActorID {
			return false
		}
	case q.Scope == gate.ScopeMembers:
		if !ok || owner.Role != gate.RoleMember {
			return false
		}
	case q.Scope == gate.ScopeOtherAdmins:
		if !ok || owner.Role != gate.RoleAdmin || rec.UserID == q.ActorID {
			return false
		}
	}

	switch q.Status {
	case gate.StatusFilterExecuted:
		return rec.Status == gate.StatusExecuted
	case gate.StatusFilterRejected:
		return rec.Status != gate.StatusExecuted
	}
	return true
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error {
	return nil
}
