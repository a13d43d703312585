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

func TestNewJSONWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "bench")).Debug(context.Background(), "phase done",
		Int("loops", 3), Err(errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "phase done" || rec["component"] != "bench" || rec["error"] != "boom" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["loops"].(float64) != 3 {
		t.Fatalf("loops = %v, want 3", rec["loops"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("level filtering failed: %q", out)
	}
}

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("run id %q is not a UUID: %v", id, err)
	}
	again, same := EnsureRunID(ctx)
	if same != id || RunIDFromContext(again) != id {
		t.Fatalf("EnsureRunID replaced an existing id")
	}

	if RunIDFromContext(context.Background()) != "" {
		t.Fatalf("expected empty run id on a bare context")
	}
}

func TestWithRunLoggerAnnotates(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	ctx, log := WithRunLogger(context.Background(), base)
	log.Info(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["run_id"] != RunIDFromContext(ctx) {
		t.Fatalf("run_id = %v, want %q", rec["run_id"], RunIDFromContext(ctx))
	}

	if _, l := WithRunLogger(context.Background(), nil); l == nil {
		t.Fatalf("nil base should fall back to a noop logger")
	}
}

func TestContextLogger(t *testing.T) {
	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger on bare context")
	}
	ctx := ContextWithLogger(context.Background(), nil)
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("nil logger should be stored as noop")
	}
}
