package logging_test

import (
	"context"
	"testing"
	"time"

	"ballfield/server/logging"
	"ballfield/server/logging/sinks"
)

func TestRouterFiltersAndStampsEvents(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"server": "test"}
	memory := sinks.NewMemorySink()

	router, err := logging.NewRouter(logging.ClockFunc(func() time.Time { return fixed }), cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	ctx := context.Background()
	router.Publish(ctx, logging.Event{Type: "test.debug", Severity: logging.SeverityDebug})
	router.Publish(ctx, logging.Event{Type: "test.info", Severity: logging.SeverityInfo, Extra: map[string]any{"server": "own"}})
	router.Publish(ctx, logging.Event{Severity: logging.SeverityError})

	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event past the severity filter, got %d", len(events))
	}
	if !events[0].Time.Equal(fixed) {
		t.Fatalf("expected event to be stamped with %v, got %v", fixed, events[0].Time)
	}
	if events[0].Extra["server"] != "own" {
		t.Fatalf("expected event fields to win over router fields, got %v", events[0].Extra)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("expected 1 forwarded event, got %+v", stats)
	}
	if router.Sink("memory") != memory {
		t.Fatalf("expected named sink lookup to return the memory sink")
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	memory := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	ctx := context.Background()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	router.Publish(ctx, logging.Event{Type: "late", Severity: logging.SeverityError})
	if err := router.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if got := len(memory.Events()); got != 0 {
		t.Fatalf("expected no events after close, got %d", got)
	}
}

func TestWithFieldsAndMatch(t *testing.T) {
	memory := sinks.NewMemorySink()
	pub := logging.WithMatch(logging.WithFields(memory, map[string]any{"seed": "s1"}), "match-7")

	pub.Publish(context.Background(), logging.Event{Type: "test.event"})
	pub.Publish(context.Background(), logging.Event{Type: "test.other", MatchID: "explicit"})

	events := memory.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].MatchID != "match-7" || events[0].Extra["seed"] != "s1" {
		t.Fatalf("expected match id and seed to be stamped, got %+v", events[0])
	}
	if events[1].MatchID != "explicit" {
		t.Fatalf("expected explicit match id to be kept, got %q", events[1].MatchID)
	}
}

func TestParseHelpers(t *testing.T) {
	if got := logging.ParseSinks(" Console, ,json "); len(got) != 2 || got[0] != "console" || got[1] != "json" {
		t.Fatalf("expected [console json], got %v", got)
	}
	cases := map[string]logging.Severity{
		"debug":   logging.SeverityDebug,
		"":        logging.SeverityInfo,
		"WARNING": logging.SeverityWarn,
		"error":   logging.SeverityError,
	}
	for raw, want := range cases {
		got, err := logging.ParseSeverity(raw)
		if err != nil || got != want {
			t.Fatalf("ParseSeverity(%q): expected %v, got %v (%v)", raw, want, got, err)
		}
	}
	if _, err := logging.ParseSeverity("loud"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}
