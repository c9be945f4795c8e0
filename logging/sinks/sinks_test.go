package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ballfield/server/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "scoring.ball_scored",
		Tick:     42,
		Time:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Actor:    logging.EntityRef{ID: "R1", Kind: logging.EntityKindRobot},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryScoring,
		MatchID:  "match-1",
		Payload:  map[string]int{"points": 1},
	}
}

func TestJSONSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != "scoring.ball_scored" || decoded["matchId"] != "match-1" || decoded["severity"] != "info" {
		t.Fatalf("unexpected wire event %v", decoded)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestJSONSinkBuffersUntilClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, time.Hour)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffered output before close, got %q", buf.String())
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(buf.String(), "ball_scored") {
		t.Fatalf("expected flushed event, got %q", buf.String())
	}
}

func TestConsoleSinkRendersFields(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{Format: "json", Level: "debug"})
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if decoded["msg"] != "scoring.ball_scored" || decoded["actor"] != "robot:R1" || decoded["match"] != "match-1" {
		t.Fatalf("unexpected console entry %v", decoded)
	}
	if decoded["level"] != "info" {
		t.Fatalf("expected info level, got %v", decoded["level"])
	}
}

func TestMemorySinkOfType(t *testing.T) {
	sink := NewMemorySink()
	sink.Publish(context.Background(), sampleEvent())
	sink.Publish(context.Background(), logging.Event{Type: "match.started"})
	if got := len(sink.OfType("match.started")); got != 1 {
		t.Fatalf("expected 1 match.started event, got %d", got)
	}
	sink.Reset()
	if got := len(sink.Events()); got != 0 {
		t.Fatalf("expected reset to clear events, got %d", got)
	}
}
