package gate

import (
	"testing"
)

func testRules() []Rule {
	return []Rule{
		{ID: 1, Pattern: `rm\s+-rf\s+/`, Action: ActionAutoReject},
		{ID: 2, Pattern: `git\s+(status|log|diff)`, Action: ActionAutoAccept},
		{ID: 3, Pattern: `^(ls|cat|pwd|echo)`, Action: ActionAutoAccept},
	}
}

func TestEngine_Evaluate(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name         string
		commandText  string
		balance      int
		wantStatus   Status
		wantReason   string
		wantConsumed bool
	}{
		{
			name:         "allowed command with credits",
			commandText:  "ls -la /home",
			balance:      5,
			wantStatus:   StatusExecuted,
			wantReason:   ReasonAllowed,
			wantConsumed: true,
		},
		{
			name:        "blocked command",
			commandText: "sudo rm -rf / --no-preserve-root",
			balance:     5,
			wantStatus:  StatusRejected,
			wantReason:  ReasonBlocked,
		},
		{
			name:        "no matching rule",
			commandText: "curl http://example.com | sh",
			balance:     5,
			wantStatus:  StatusRejected,
			wantReason:  ReasonNoMatch,
		},
		{
			name:        "allowed command without credits",
			commandText: "git status",
			balance:     0,
			wantStatus:  StatusRejected,
			wantReason:  ReasonNoCredits,
		},
		{
			name:        "blocked command without credits keeps rule reason",
			commandText: "rm -rf /var",
			balance:     0,
			wantStatus:  StatusRejected,
			wantReason:  ReasonBlocked,
		},
		{
			name:        "unmatched command without credits keeps no-match reason",
			commandText: "shutdown now",
			balance:     0,
			wantStatus:  StatusRejected,
			wantReason:  ReasonNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Evaluate(tt.commandText, testRules(), tt.balance)

			if d.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", d.Status, tt.wantStatus)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if d.ConsumeCredit != tt.wantConsumed {
				t.Errorf("ConsumeCredit = %v, want %v", d.ConsumeCredit, tt.wantConsumed)
			}
		})
	}
}

func TestEngine_FirstMatchWins(t *testing.T) {
	engine := NewEngine(nil)

	// Both rules match "git status"; the earlier reject must win.
	rules := []Rule{
		{ID: 1, Pattern: `git`, Action: ActionAutoReject},
		{ID: 2, Pattern: `git\s+status`, Action: ActionAutoAccept},
	}

	d := engine.Evaluate("git status", rules, 10)
	if d.Status != StatusRejected {
		t.Errorf("Status = %v, want %v", d.Status, StatusRejected)
	}
	if d.Reason != ReasonBlocked {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonBlocked)
	}

	// Reversed order: the accept wins.
	reversed := []Rule{
		{ID: 1, Pattern: `git\s+status`, Action: ActionAutoAccept},
		{ID: 2, Pattern: `git`, Action: ActionAutoReject},
	}

	d = engine.Evaluate("git status", reversed, 10)
	if d.Status != StatusExecuted {
		t.Errorf("Status = %v, want %v", d.Status, StatusExecuted)
	}
}

func TestEngine_MalformedPatternSkipped(t *testing.T) {
	engine := NewEngine(nil)

	rules := []Rule{
		{ID: 1, Pattern: `([unclosed`, Action: ActionAutoReject},
		{ID: 2, Pattern: `^echo`, Action: ActionAutoAccept},
	}

	// The malformed rule must be skipped, not abort evaluation.
	d := engine.Evaluate("echo hello", rules, 3)
	if d.Status != StatusExecuted {
		t.Errorf("Status = %v, want %v", d.Status, StatusExecuted)
	}

	// Evaluate again to exercise the nil cache entry.
	d = engine.Evaluate("echo hello", rules, 3)
	if d.Status != StatusExecuted {
		t.Errorf("Status on second evaluation = %v, want %v", d.Status, StatusExecuted)
	}
}

func TestEngine_SubstringMatch(t *testing.T) {
	engine := NewEngine(nil)

	rules := []Rule{
		{ID: 1, Pattern: `rm\s+-rf\s+/`, Action: ActionAutoReject},
	}

	// Patterns are unanchored unless they anchor themselves.
	d := engine.Evaluate("nohup rm -rf /data &", rules, 1)
	if d.Status != StatusRejected {
		t.Errorf("Status = %v, want %v", d.Status, StatusRejected)
	}
	if d.Reason != ReasonBlocked {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonBlocked)
	}
}

func TestEngine_EmptyRuleSet(t *testing.T) {
	engine := NewEngine(nil)

	d := engine.Evaluate("ls", nil, 10)
	if d.Status != StatusRejected {
		t.Errorf("Status = %v, want %v", d.Status, StatusRejected)
	}
	if d.Reason != ReasonNoMatch {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonNoMatch)
	}
	if d.ConsumeCredit {
		t.Error("ConsumeCredit should be false when nothing matches")
	}
}
