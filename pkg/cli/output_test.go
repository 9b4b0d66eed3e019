package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/gate"
)

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("FormatJSON should produce a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatText).(*TextFormatter); !ok {
		t.Error("FormatText should produce a TextFormatter")
	}
	if _, ok := NewFormatter("bogus").(*TextFormatter); !ok {
		t.Error("unknown formats should fall back to text")
	}
}

func TestJSONFormatter(t *testing.T) {
	f := &JSONFormatter{Indent: true}
	data := map[string]any{"status": "EXECUTED", "new_balance": 4}

	out, err := f.Format(data)
	if err != nil {
		t.Fatalf("Format() failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["status"] != "EXECUTED" {
		t.Errorf("status = %v, want EXECUTED", decoded["status"])
	}
	if !strings.Contains(string(out), "\n  ") {
		t.Error("indented output expected")
	}

	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("FormatTo output should end with a newline")
	}
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{}

	out, err := f.Format("hello")
	if err != nil {
		t.Fatalf("Format() failed: %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("Format = %q, want %q", out, "hello\n")
	}
}

func TestWriteAuditTable(t *testing.T) {
	records := []*gate.LogRecord{
		{
			ID:          1,
			UserID:      7,
			Username:    "alice",
			CommandText: "rm -rf /",
			Status:      gate.StatusRejected,
			Reason:      gate.ReasonBlocked,
			Timestamp:   time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			ID:          2,
			UserID:      7,
			Username:    "alice",
			CommandText: "ls",
			Status:      gate.StatusExecuted,
			Reason:      gate.ReasonAllowed,
			Timestamp:   time.Date(2026, 8, 1, 12, 31, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteAuditTable(&buf, records); err != nil {
		t.Fatalf("WriteAuditTable() failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"2026-08-01 12:30:00", "alice", "REJECTED", `"rm -rf /"`, "2 records"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteAuditTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAuditTable(&buf, nil); err != nil {
		t.Fatalf("WriteAuditTable() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "0 records") {
		t.Errorf("output = %q, want a zero-record count", buf.String())
	}
}
