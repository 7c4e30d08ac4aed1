package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormatWithFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Config{Level: "debug", Format: "json", Fields: map[string]any{"run": "abc"}})
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("tick", "n", 3)
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if rec["msg"] != "tick" || rec["run"] != "abc" || rec["n"] != float64(3) {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Config{Level: "WARN"})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("quiet")
	log.Warn("loud")
	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Fatalf("level not applied: %q", out)
	}
}

func TestRejectsUnknownSettings(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Config{Level: "chatty"}); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := New(&bytes.Buffer{}, Config{Format: "xml"}); err == nil {
		t.Fatal("expected format error")
	}
}
