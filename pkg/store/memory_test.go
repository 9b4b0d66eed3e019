package store

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/saturn/pkg/gate"
)

func TestMemoryStore_UserLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.CreateUser(ctx, "alice", gate.RoleMember, 10, "alice-key")
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	if _, err := store.CreateUser(ctx, "alice", gate.RoleMember, 1, "other"); !gate.IsValidation(err) {
		t.Errorf("duplicate username error = %v, want validation error", err)
	}
	if _, err := store.CreateUser(ctx, "bob", gate.RoleMember, 1, "alice-key"); !gate.IsValidation(err) {
		t.Errorf("duplicate key error = %v, want validation error", err)
	}

	u, err := store.UserByKey(ctx, "alice-key")
	if err != nil {
		t.Fatalf("UserByKey() failed: %v", err)
	}
	if u.ID != created.ID {
		t.Errorf("ID = %d, want %d", u.ID, created.ID)
	}

	// Returned values are copies; mutating them must not leak into the store.
	u.Credits = 999
	again, _ := store.UserByKey(ctx, "alice-key")
	if again.Credits != 10 {
		t.Errorf("Credits = %d, want 10 (copy semantics)", again.Credits)
	}

	if err := store.UpdateUser(ctx, created.ID, "alice2", 7); err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}
	if err := store.UpdateUser(ctx, 9999, "x", 1); !errors.Is(err, gate.ErrNotFound) {
		t.Errorf("UpdateUser error = %v, want ErrNotFound", err)
	}

	if err := store.DeleteUser(ctx, created.ID); err != nil {
		t.Fatalf("DeleteUser() failed: %v", err)
	}
	if _, err := store.UserByID(ctx, created.ID); !errors.Is(err, gate.ErrNotFound) {
		t.Errorf("UserByID after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_CommitDecisionDowngrade(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice", gate.RoleMember, 1, "alice-key")
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	consume := gate.Decision{Status: gate.StatusExecuted, Reason: gate.ReasonAllowed, ConsumeCredit: true}

	final, balance, err := store.CommitDecision(ctx, user.ID, "ls", consume)
	if err != nil {
		t.Fatalf("CommitDecision() failed: %v", err)
	}
	if final.Status != gate.StatusExecuted || balance != 0 {
		t.Errorf("first commit: status=%v balance=%d, want EXECUTED 0", final.Status, balance)
	}

	final, balance, err = store.CommitDecision(ctx, user.ID, "ls", consume)
	if err != nil {
		t.Fatalf("CommitDecision() failed: %v", err)
	}
	if final.Status != gate.StatusRejected || final.Reason != gate.ReasonNoCredits {
		t.Errorf("second commit downgraded to %v/%q, want REJECTED/%q", final.Status, final.Reason, gate.ReasonNoCredits)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

func TestMemoryStore_DeleteUserCascadesLogs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user, _ := store.CreateUser(ctx, "alice", gate.RoleMember, 5, "alice-key")
	other, _ := store.CreateUser(ctx, "bob", gate.RoleMember, 5, "bob-key")

	reject := gate.Decision{Status: gate.StatusRejected, Reason: gate.ReasonNoMatch}
	if _, _, err := store.CommitDecision(ctx, user.ID, "cmd", reject); err != nil {
		t.Fatalf("CommitDecision() failed: %v", err)
	}
	if _, _, err := store.CommitDecision(ctx, other.ID, "cmd", reject); err != nil {
		t.Fatalf("CommitDecision() failed: %v", err)
	}

	if err := store.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser() failed: %v", err)
	}

	records, err := store.Logs(ctx, &gate.LogQuery{Scope: gate.ScopeAll, Status: gate.StatusFilterAll})
	if err != nil {
		t.Fatalf("Logs() failed: %v", err)
	}
	if len(records) != 1 || records[0].UserID != other.ID {
		t.Errorf("unexpected surviving records: %+v", records)
	}
}

func TestMemoryStore_LogScopes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	admin, _ := store.CreateUser(ctx, "admin", gate.RoleAdmin, 99, "admin-key")
	admin2, _ := store.CreateUser(ctx, "admin2", gate.RoleAdmin, 99, "admin2-key")
	member, _ := store.CreateUser(ctx, "alice", gate.RoleMember, 99, "alice-key")

	for _, id := range []int64{admin.ID, admin2.ID, member.ID} {
		if _, _, err := store.CommitDecision(ctx, id, "cmd", gate.Decision{
			Status: gate.StatusRejected, Reason: gate.ReasonNoMatch,
		}); err != nil {
			t.Fatalf("CommitDecision() failed: %v", err)
		}
	}

	tests := []struct {
		name string
		q    gate.LogQuery
		want int
	}{
		{"all", gate.LogQuery{Scope: gate.ScopeAll, Status: gate.StatusFilterAll}, 3},
		{"mine", gate.LogQuery{ActorID: member.ID, Scope: gate.ScopeMine, Status: gate.StatusFilterAll}, 1},
		{"members", gate.LogQuery{ActorID: admin.ID, Scope: gate.ScopeMembers, Status: gate.StatusFilterAll}, 1},
		{"other admins", gate.LogQuery{ActorID: admin.ID, Scope: gate.ScopeOtherAdmins, Status: gate.StatusFilterAll}, 1},
		{"target user", gate.LogQuery{TargetUserID: member.ID, Status: gate.StatusFilterAll}, 1},
		{"executed only", gate.LogQuery{Scope: gate.ScopeAll, Status: gate.StatusFilterExecuted}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.Logs(ctx, &tt.q)
			if err != nil {
				t.Fatalf("Logs() failed: %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("records = %d, want %d", len(records), tt.want)
			}
		})
	}
}

func TestMemoryStore_LogUsernameFollowsRename(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user, _ := store.CreateUser(ctx, "alice", gate.RoleMember, 5, "alice-key")
	if _, _, err := store.CommitDecision(ctx, user.ID, "cmd", gate.Decision{
		Status: gate.StatusRejected, Reason: gate.ReasonNoMatch,
	}); err != nil {
		t.Fatalf("CommitDecision() failed: %v", err)
	}

	if err := store.UpdateUser(ctx, user.ID, "renamed", 5); err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}

	records, err := store.Logs(ctx, &gate.LogQuery{Scope: gate.ScopeAll, Status: gate.StatusFilterAll})
	if err != nil {
		t.Fatalf("Logs() failed: %v", err)
	}
	if records[0].Username != "renamed" {
		t.Errorf("Username = %q, want %q (join semantics)", records[0].Username, "renamed")
	}
}
