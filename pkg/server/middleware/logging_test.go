package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestResponseWriter_CapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusInternalServerError) // second call ignored

	if rw.statusCode != http.StatusAccepted {
		t.Errorf("statusCode = %d, want the first WriteHeader to win", rw.statusCode)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("underlying code = %d, want 202", rec.Code)
	}
}

func TestResponseWriter_ImplicitOK(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	if _, err := rw.Write([]byte("body")); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want implicit 200", rw.statusCode)
	}
}

func TestLoggingMiddleware_StartTime(t *testing.T) {
	var start time.Time
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start = GetStartTime(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	if start.IsZero() {
		t.Error("start time missing from the request context")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestLoggingMiddleware_ActorAttribution(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetActor(r.Context(), 42, "member")
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/commands", nil))

	out := buf.String()
	if !strings.Contains(out, `"user_id":42`) {
		t.Errorf("completion log missing user_id, got: %s", out)
	}
	if !strings.Contains(out, `"role":"member"`) {
		t.Errorf("completion log missing role, got: %s", out)
	}

	// Unauthenticated requests carry no actor fields.
	buf.Reset()
	anon := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	anon.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/commands", nil))

	if strings.Contains(buf.String(), "user_id") {
		t.Errorf("anonymous request should not log user_id, got: %s", buf.String())
	}
}

func TestSetActor_WithoutHolder(t *testing.T) {
	// Must not panic when the request skipped LoggingMiddleware.
	SetActor(context.Background(), 1, "admin")
}

func TestGetStartTime_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetStartTime(req.Context()); !got.IsZero() {
		t.Errorf("GetStartTime = %v, want zero time", got)
	}
}
