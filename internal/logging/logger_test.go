package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"ladle/internal/logging"
)

func TestConsoleFormatRendersSingleLine(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("job submitted",
		logging.String(logging.FieldJobID, "job-1"),
		logging.Int("attempt", 2),
		logging.String("title", "Weeknight Ramen"))

	line := buf.String()
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("expected one line, got %q", line)
	}
	if !strings.Contains(line, "INFO") || !strings.Contains(line, "job submitted") {
		t.Fatalf("missing level or message: %q", line)
	}
	if !strings.Contains(line, "job_id=job-1") || !strings.Contains(line, "attempt=2") {
		t.Fatalf("missing attributes: %q", line)
	}
	// Values with spaces are quoted.
	if !strings.Contains(line, `title="Weeknight Ramen"`) {
		t.Fatalf("spaced value not quoted: %q", line)
	}
}

func TestConsoleFormatFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.WithGroup("poll").Info("tick", logging.Int("failures", 1))
	if line := buf.String(); !strings.Contains(line, "poll.failures=1") {
		t.Fatalf("group not flattened: %q", line)
	}
}

func TestJSONFormatEmitsStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Warn("like toggle failed", logging.String(logging.FieldRecipeID, "recipe-9"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if record["level"] != "warn" {
		t.Fatalf("unexpected level %v", record["level"])
	}
	if record["msg"] != "like toggle failed" {
		t.Fatalf("unexpected message %v", record["msg"])
	}
	if record["recipe_id"] != "recipe-9" {
		t.Fatalf("unexpected recipe id %v", record["recipe_id"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("missing ts key: %v", record)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hidden")
	logger.Debug("also hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info and debug suppressed, got %q", buf.String())
	}
	logger.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected error record, got %q", buf.String())
	}
}

func TestUnknownFormatRejected(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscardsEverything(t *testing.T) {
	logger := logging.NewNop()
	// Must not panic and must report disabled at every level.
	logger.Error("dropped", logging.Error(nil))
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger must report disabled")
	}
}
