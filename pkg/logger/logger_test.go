package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestNewFallsBackToInfo(t *testing.T) {
	l := New(LoggingConfig{Level: "chatty", Format: "json", Output: "discard"})
	if l.GetLevel().String() != "info" {
		t.Fatalf("level = %s, want info", l.GetLevel())
	}
}

func TestWithContextAddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefault("auth")
	l.SetOutput(&buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithUser(ctx, "user-1", "ADMIN")
	l.LogRequest(ctx, http.MethodGet, "/api/v1/auth/me", http.StatusOK, 3*time.Millisecond)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["trace_id"] != "trace-1" || entry["user_id"] != "user-1" {
		t.Fatalf("missing identifiers: %v", entry)
	}
	if entry["component"] != "auth" {
		t.Fatalf("component = %v, want auth", entry["component"])
	}
	if GetRole(ctx) != "ADMIN" {
		t.Fatalf("role = %q", GetRole(ctx))
	}
}

func TestNamedKeepsParentSettings(t *testing.T) {
	parent := New(LoggingConfig{Level: "debug", Format: "json", Output: "discard"})
	child := parent.Named("trials")
	if child.Component() != "trials" {
		t.Fatalf("component = %q, want trials", child.Component())
	}
	if child.GetLevel().String() != "debug" {
		t.Fatalf("level = %s, want debug", child.GetLevel())
	}
}
