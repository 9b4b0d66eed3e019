package auth

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/saturn/pkg/gate"
)

type stubSource struct {
	users map[string]*gate.User
	err   error
}

func (s *stubSource) UserByKey(ctx context.Context, key string) (*gate.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[key]
	if !ok {
		return nil, gate.ErrNotFound
	}
	return u, nil
}

func TestResolver_Resolve(t *testing.T) {
	alice := &gate.User{ID: 1, Username: "alice", Key: "alice-key", Role: gate.RoleMember, Credits: 5}
	source := &stubSource{users: map[string]*gate.User{"alice-key": alice}}
	resolver := NewResolver(source, nil)

	user, err := resolver.Resolve(context.Background(), "alice-key")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if user.ID != 1 {
		t.Errorf("ID = %d, want 1", user.ID)
	}
}

func TestResolver_ResolveFailures(t *testing.T) {
	source := &stubSource{users: map[string]*gate.User{}}
	resolver := NewResolver(source, nil)

	tests := []struct {
		name string
		key  string
	}{
		{"empty key", ""},
		{"unknown key", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tt.key)
			if !errors.Is(err, gate.ErrUnauthorized) {
				t.Errorf("Resolve() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestResolver_StorageErrorPassesThrough(t *testing.T) {
	wantErr := errors.New("disk on fire")
	resolver := NewResolver(&stubSource{err: wantErr}, nil)

	_, err := resolver.Resolve(context.Background(), "any")
	if !errors.Is(err, wantErr) {
		t.Errorf("Resolve() error = %v, want the storage error", err)
	}
	if errors.Is(err, gate.ErrUnauthorized) {
		t.Error("storage errors must not be mapped to ErrUnauthorized")
	}
}

func TestRedactKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "****"},
		{"abc", "****"},
		{"abcd", "****"},
		{"abcdef", "abcd..."},
		{"f3c9a1b2-long-key", "f3c9..."},
	}

	for _, tt := range tests {
		if got := RedactKey(tt.key); got != tt.want {
			t.Errorf("RedactKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
