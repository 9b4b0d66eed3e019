package gate_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/store"
)

// newTestService creates a service over a fresh in-memory store with one
// admin and one member account.
func newTestService(t *testing.T) (*gate.Service, *store.MemoryStore, *gate.User, *gate.User) {
	t.Helper()

	st := store.NewMemoryStore()
	ctx := context.Background()

	admin, err := st.CreateUser(ctx, "admin", gate.RoleAdmin, 999, "admin-key")
	if err != nil {
		t.Fatalf("CreateUser(admin) failed: %v", err)
	}
	member, err := st.CreateUser(ctx, "alice", gate.RoleMember, 3, "alice-key")
	if err != nil {
		t.Fatalf("CreateUser(member) failed: %v", err)
	}

	svc := gate.NewService(st, gate.NewEngine(nil), nil, nil)
	return svc, st, admin, member
}

func seedTestRules(t *testing.T, st *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	rules := []struct {
		pattern string
		action  gate.RuleAction
	}{
		{`rm\s+-rf\s+/`, gate.ActionAutoReject},
		{`^(ls|cat|pwd|echo)`, gate.ActionAutoAccept},
	}
	for _, r := range rules {
		if _, err := st.CreateRule(ctx, r.pattern, r.action); err != nil {
			t.Fatalf("CreateRule(%q) failed: %v", r.pattern, err)
		}
	}
}

func TestService_Submit_Executed(t *testing.T) {
	svc, st, _, member := newTestService(t)
	seedTestRules(t, st)
	ctx := context.Background()

	result, err := svc.Submit(ctx, member, "ls -la")
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	if result.Status != gate.StatusExecuted {
		t.Errorf("Status = %v, want %v", result.Status, gate.StatusExecuted)
	}
	if result.Message != gate.ReasonAllowed {
		t.Errorf("Message = %q, want %q", result.Message, gate.ReasonAllowed)
	}
	if result.NewBalance != 2 {
		t.Errorf("NewBalance = %d, want 2", result.NewBalance)
	}

	// The balance change must be persisted.
	refreshed, err := st.UserByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("UserByID() failed: %v", err)
	}
	if refreshed.Credits != 2 {
		t.Errorf("persisted credits = %d, want 2", refreshed.Credits)
	}
}

func TestService_Submit_RejectedKeepsBalance(t *testing.T) {
	svc, st, _, member := newTestService(t)
	seedTestRules(t, st)
	ctx := context.Background()

	tests := []struct {
		name        string
		commandText string
		wantMessage string
	}{
		{"blocked", "rm -rf /etc", gate.ReasonBlocked},
		{"no match", "wget http://example.com", gate.ReasonNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Submit(ctx, member, tt.commandText)
			if err != nil {
				t.Fatalf("Submit() failed: %v", err)
			}
			if result.Status != gate.StatusRejected {
				t.Errorf("Status = %v, want %v", result.Status, gate.StatusRejected)
			}
			if result.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", result.Message, tt.wantMessage)
			}
			if result.NewBalance != 3 {
				t.Errorf("NewBalance = %d, want 3 (unchanged)", result.NewBalance)
			}
		})
	}

	// Both rejections must be audited.
	records, err := st.Logs(ctx, &gate.LogQuery{ActorID: member.ID, Scope: gate.ScopeMine, Status: gate.StatusFilterAll, Sort: gate.SortDescending})
	if err != nil {
		t.Fatalf("Logs() failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("audit records = %d, want 2", len(records))
	}
}

func TestService_Submit_EmptyCommand(t *testing.T) {
	svc, _, _, member := newTestService(t)
	ctx := context.Background()

	for _, cmd := range []string{"", "   ", "\t\n"} {
		if _, err := svc.Submit(ctx, member, cmd); !gate.IsValidation(err) {
			t.Errorf("Submit(%q) error = %v, want validation error", cmd, err)
		}
	}
}

// TestService_Submit_ConcurrentLastCredit exercises the race where many
// submissions compete for one remaining credit. Exactly one may execute.
func TestService_Submit_ConcurrentLastCredit(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	seedTestRules(t, st)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "racer", gate.RoleMember, 1, "racer-key")
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	const attempts = 16

	var wg sync.WaitGroup
	results := make([]*gate.SubmitResult, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each goroutine sees the stale balance of 1.
			actor := *user
			results[i], errs[i] = svc.Submit(ctx, &actor, "echo hello")
		}(i)
	}
	wg.Wait()

	executed := 0
	insufficient := 0
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("Submit() failed: %v", errs[i])
		}
		switch results[i].Message {
		case gate.ReasonAllowed:
			executed++
		case gate.ReasonNoCredits:
			insufficient++
		default:
			t.Errorf("unexpected message %q", results[i].Message)
		}
	}

	if executed != 1 {
		t.Errorf("executed = %d, want exactly 1", executed)
	}
	if insufficient != attempts-1 {
		t.Errorf("insufficient = %d, want %d", insufficient, attempts-1)
	}

	refreshed, err := st.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserByID() failed: %v", err)
	}
	if refreshed.Credits != 0 {
		t.Errorf("credits = %d, want 0 (never negative)", refreshed.Credits)
	}

	records, err := st.Logs(ctx, &gate.LogQuery{ActorID: user.ID, Scope: gate.ScopeMine, Status: gate.StatusFilterAll, Sort: gate.SortDescending})
	if err != nil {
		t.Fatalf("Logs() failed: %v", err)
	}
	if len(records) != attempts {
		t.Errorf("audit records = %d, want %d", len(records), attempts)
	}
}

func TestService_CreateRule(t *testing.T) {
	svc, _, admin, member := newTestService(t)
	ctx := context.Background()

	t.Run("member forbidden", func(t *testing.T) {
		_, err := svc.CreateRule(ctx, member, `^ls`, gate.ActionAutoAccept)
		if !errors.Is(err, gate.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("invalid pattern rejected", func(t *testing.T) {
		_, err := svc.CreateRule(ctx, admin, `([unclosed`, gate.ActionAutoAccept)
		if !gate.IsValidation(err) {
			t.Errorf("error = %v, want validation error", err)
		}
	})

	t.Run("invalid action rejected", func(t *testing.T) {
		_, err := svc.CreateRule(ctx, admin, `^ls`, gate.RuleAction("ALLOW"))
		if !gate.IsValidation(err) {
			t.Errorf("error = %v, want validation error", err)
		}
	})

	t.Run("valid rule persisted", func(t *testing.T) {
		rule, err := svc.CreateRule(ctx, admin, `^ls`, gate.ActionAutoAccept)
		if err != nil {
			t.Fatalf("CreateRule() failed: %v", err)
		}
		if rule.ID == 0 {
			t.Error("rule ID should be assigned")
		}

		rules, err := svc.Rules(ctx)
		if err != nil {
			t.Fatalf("Rules() failed: %v", err)
		}
		if len(rules) != 1 {
			t.Errorf("rules = %d, want 1", len(rules))
		}
	})
}

func TestService_CreateUser(t *testing.T) {
	svc, _, admin, member := newTestService(t)
	ctx := context.Background()

	t.Run("member forbidden", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, member, "bob", gate.RoleMember, 10)
		if !errors.Is(err, gate.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, admin, "alice", gate.RoleMember, 10)
		if !gate.IsValidation(err) {
			t.Errorf("error = %v, want validation error", err)
		}
	})

	t.Run("negative credits rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, admin, "bob", gate.RoleMember, -1)
		if !gate.IsValidation(err) {
			t.Errorf("error = %v, want validation error", err)
		}
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, admin, "bob", gate.Role("root"), 10)
		if !gate.IsValidation(err) {
			t.Errorf("error = %v, want validation error", err)
		}
	})

	t.Run("generated keys are unique and opaque", func(t *testing.T) {
		u1, err := svc.CreateUser(ctx, admin, "bob", gate.RoleMember, 10)
		if err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
		u2, err := svc.CreateUser(ctx, admin, "carol", gate.RoleMember, 10)
		if err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}

		if u1.Key == "" || u2.Key == "" {
			t.Error("generated keys should not be empty")
		}
		if u1.Key == u2.Key {
			t.Error("generated keys should be unique")
		}
	})
}

func TestService_UpdateAndDeleteUser(t *testing.T) {
	svc, st, admin, member := newTestService(t)
	seedTestRules(t, st)
	ctx := context.Background()

	// Leave an audit record behind for the cascade check.
	if _, err := svc.Submit(ctx, member, "ls"); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	t.Run("update replaces username and credits", func(t *testing.T) {
		updated, err := svc.UpdateUser(ctx, admin, member.Key, "alice2", 42)
		if err != nil {
			t.Fatalf("UpdateUser() failed: %v", err)
		}
		if updated.Username != "alice2" {
			t.Errorf("Username = %q, want %q", updated.Username, "alice2")
		}
		if updated.Credits != 42 {
			t.Errorf("Credits = %d, want 42", updated.Credits)
		}
	})

	t.Run("update unknown key", func(t *testing.T) {
		_, err := svc.UpdateUser(ctx, admin, "no-such-key", "x", 1)
		if !errors.Is(err, gate.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("member forbidden", func(t *testing.T) {
		if _, err := svc.UpdateUser(ctx, member, member.Key, "x", 1); !errors.Is(err, gate.ErrForbidden) {
			t.Errorf("UpdateUser error = %v, want ErrForbidden", err)
		}
		if err := svc.DeleteUser(ctx, member, member.Key); !errors.Is(err, gate.ErrForbidden) {
			t.Errorf("DeleteUser error = %v, want ErrForbidden", err)
		}
	})

	t.Run("delete cascades audit records", func(t *testing.T) {
		if err := svc.DeleteUser(ctx, admin, member.Key); err != nil {
			t.Fatalf("DeleteUser() failed: %v", err)
		}

		if _, err := st.UserByID(ctx, member.ID); !errors.Is(err, gate.ErrNotFound) {
			t.Errorf("UserByID after delete = %v, want ErrNotFound", err)
		}

		records, err := st.Logs(ctx, &gate.LogQuery{ActorID: admin.ID, Scope: gate.ScopeAll, Status: gate.StatusFilterAll, Sort: gate.SortDescending})
		if err != nil {
			t.Fatalf("Logs() failed: %v", err)
		}
		for _, rec := range records {
			if rec.UserID == member.ID {
				t.Errorf("audit record %d survived owner deletion", rec.ID)
			}
		}
	})
}

func TestService_Logs_ScopeOverride(t *testing.T) {
	svc, st, admin, member := newTestService(t)
	seedTestRules(t, st)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, admin, "ls /root"); err != nil {
		t.Fatalf("Submit(admin) failed: %v", err)
	}
	if _, err := svc.Submit(ctx, member, "ls /home"); err != nil {
		t.Fatalf("Submit(member) failed: %v", err)
	}

	t.Run("member requesting all sees only own records", func(t *testing.T) {
		records, err := svc.Logs(ctx, member, gate.LogOptions{Scope: gate.ScopeAll})
		if err != nil {
			t.Fatalf("Logs() failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("records = %d, want 1", len(records))
		}
		if records[0].UserID != member.ID {
			t.Errorf("record owner = %d, want %d", records[0].UserID, member.ID)
		}
	})

	t.Run("admin sees all", func(t *testing.T) {
		records, err := svc.Logs(ctx, admin, gate.LogOptions{Scope: gate.ScopeAll})
		if err != nil {
			t.Fatalf("Logs() failed: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("records = %d, want 2", len(records))
		}
	})

	t.Run("admin filtering unknown target key gets empty list", func(t *testing.T) {
		records, err := svc.Logs(ctx, admin, gate.LogOptions{TargetKey: "no-such-key"})
		if err != nil {
			t.Fatalf("Logs() failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("records = %d, want 0", len(records))
		}
	})

	t.Run("admin filtering by member key", func(t *testing.T) {
		records, err := svc.Logs(ctx, admin, gate.LogOptions{TargetKey: member.Key})
		if err != nil {
			t.Fatalf("Logs() failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("records = %d, want 1", len(records))
		}
		if records[0].UserID != member.ID {
			t.Errorf("record owner = %d, want %d", records[0].UserID, member.ID)
		}
	})

	t.Run("unrecognized filters fall back to defaults", func(t *testing.T) {
		records, err := svc.Logs(ctx, admin, gate.LogOptions{
			Scope:  gate.LogScope("bogus"),
			Status: gate.StatusFilter("bogus"),
			Sort:   gate.SortOrder("bogus"),
		})
		if err != nil {
			t.Fatalf("Logs() failed: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("records = %d, want 2", len(records))
		}
	})
}

func TestService_LookupUser(t *testing.T) {
	svc, _, admin, member := newTestService(t)
	ctx := context.Background()

	if _, err := svc.LookupUser(ctx, member, admin.Key); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}

	found, err := svc.LookupUser(ctx, admin, member.Key)
	if err != nil {
		t.Fatalf("LookupUser() failed: %v", err)
	}
	if found.ID != member.ID {
		t.Errorf("ID = %d, want %d", found.ID, member.ID)
	}

	if _, err := svc.LookupUser(ctx, admin, "no-such-key"); !errors.Is(err, gate.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
