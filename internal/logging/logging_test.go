package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "engine")).Info(context.Background(), "computed",
		Float64("tnt_tons", 596331.95),
		Bool("will_impact", true),
		Err(errors.New("boom")),
	)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if entry["msg"] != "computed" {
		t.Fatalf("msg = %v, want computed", entry["msg"])
	}
	if entry["component"] != "engine" {
		t.Fatalf("component = %v, want engine", entry["component"])
	}
	if entry["tnt_tons"] != 596331.95 {
		t.Fatalf("tnt_tons = %v, want 596331.95", entry["tnt_tons"])
	}
	if entry["will_impact"] != true {
		t.Fatalf("will_impact = %v, want true", entry["will_impact"])
	}
	if entry["error"] != "boom" {
		t.Fatalf("error = %v, want boom", entry["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := strings.TrimSpace(buf.String())
	if strings.Count(out, "\n") != 0 || !strings.Contains(out, "shown") {
		t.Fatalf("output = %q, want only the warn entry", out)
	}
}

func TestEnsureRequestIDIsStable(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", id, err)
	}
	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id || RequestIDFromContext(ctx2) != id {
		t.Fatalf("EnsureRequestID changed the id: %q -> %q", id, id2)
	}
}

func TestWithRequestLoggerAnnotates(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx, log := WithRequestLogger(ctx, base)
	log.Info(ctx, "hello")

	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Fatalf("output = %q, want request_id req-1", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if got := LoggerFromContext(context.Background()); got != nil {
		t.Fatalf("LoggerFromContext(empty) = %v, want nil", got)
	}
	ctx := ContextWithLogger(context.Background(), nil)
	if got := LoggerFromContext(ctx); got == nil {
		t.Fatalf("ContextWithLogger(nil) should store a noop logger")
	}
	if err := Sync(Noop()); err != nil {
		t.Fatalf("Sync(noop) = %v, want nil", err)
	}
}
