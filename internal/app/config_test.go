package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"ballfield/server/internal/results"
	"ballfield/server/internal/telemetry"
)

func envMap(values map[string]string) Env {
	return func(key string) string { return values[key] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "match.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", envMap(nil), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
httpAddr: ":9090"
match:
  seed: file-seed
  durationSeconds: 30
  robot:
    maxBalls: 5
loop:
  playbackSpeed: 2
broadcastInterval: 250ms
results:
  store: sqlite
  sqlitePath: /tmp/results.db
logging:
  sinks: [console, json]
  format: json
`)

	cfg, err := LoadConfig(path, envMap(nil), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.Match.Seed != "file-seed" || cfg.Match.DurationSeconds != 30 {
		t.Fatalf("unexpected match settings %+v", cfg)
	}
	if cfg.Match.Robot.MaxBalls != 5 {
		t.Fatalf("expected robot maxBalls 5, got %d", cfg.Match.Robot.MaxBalls)
	}
	if cfg.Match.TickRate != DefaultConfig().Match.TickRate {
		t.Fatalf("expected unspecified fields to keep defaults, got tickRate %d", cfg.Match.TickRate)
	}
	if cfg.Loop.PlaybackSpeed != 2 || cfg.BroadcastInterval != 250*time.Millisecond {
		t.Fatalf("unexpected loop settings %+v / %v", cfg.Loop, cfg.BroadcastInterval)
	}
	if cfg.Results.Store != results.BackendSQLite || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected store/logging %+v %+v", cfg.Results, cfg.Logging)
	}
	if !reflect.DeepEqual(cfg.Logging.Sinks, []string{"console", "json"}) {
		t.Fatalf("expected console and json sinks, got %v", cfg.Logging.Sinks)
	}
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "match:\n  seed: via-env\n")
	cfg, err := LoadConfig("", envMap(map[string]string{"MATCH_CONFIG": path}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Match.Seed != "via-env" {
		t.Fatalf("expected seed via-env, got %q", cfg.Match.Seed)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "match:\n  seed: file-seed\n")
	env := envMap(map[string]string{
		"MATCH_SEED":             "env-seed",
		"MATCH_DURATION_SECONDS": "45",
		"PLAYBACK_SPEED":         "0.5",
		"HTTP_ADDR":              "127.0.0.1:7000",
		"RESULTS_STORE":          "SQLite",
		"RESULTS_SQLITE_PATH":    "/var/lib/results.db",
		"LOG_SINKS":              "json, console",
		"LOG_FORMAT":             "json",
		"LOG_LEVEL":              "debug",
		"ENABLE_PPROF_TRACE":     "true",
	})

	cfg, err := LoadConfig(path, env, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Match.Seed != "env-seed" || cfg.Match.DurationSeconds != 45 || cfg.Loop.PlaybackSpeed != 0.5 {
		t.Fatalf("unexpected match overrides %+v", cfg.Match)
	}
	if cfg.HTTPAddr != "127.0.0.1:7000" {
		t.Fatalf("expected addr override, got %q", cfg.HTTPAddr)
	}
	if cfg.Results.Store != results.BackendSQLite || cfg.Results.SQLitePath != "/var/lib/results.db" {
		t.Fatalf("unexpected results overrides %+v", cfg.Results)
	}
	if !reflect.DeepEqual(cfg.Logging.Sinks, []string{"json", "console"}) || cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging overrides %+v", cfg.Logging)
	}
	if !cfg.Observability.EnablePprofTrace {
		t.Fatalf("expected pprof to be enabled")
	}
}

func TestLoadConfigIgnoresInvalidOverrides(t *testing.T) {
	var logged []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		logged = append(logged, format)
	})
	env := envMap(map[string]string{
		"MATCH_DURATION_SECONDS": "-3",
		"PLAYBACK_SPEED":         "fast",
		"ENABLE_PPROF_TRACE":     "maybe",
	})

	cfg, err := LoadConfig("", env, logger)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Match.DurationSeconds != def.Match.DurationSeconds || cfg.Loop.PlaybackSpeed != def.Loop.PlaybackSpeed {
		t.Fatalf("expected invalid overrides to be ignored, got %+v", cfg)
	}
	if len(logged) != 3 {
		t.Fatalf("expected 3 warnings, got %d: %v", len(logged), logged)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "malformed yaml", body: "match: [", want: "parse config"},
		{name: "unknown store", body: "results:\n  store: postgres\n", want: "results store"},
		{name: "missing sqlite path", body: "results:\n  store: sqlite\n  sqlitePath: \"\"\n", want: "sqlitePath"},
		{name: "unknown sink", body: "", env: map[string]string{"LOG_SINKS": "syslog"}, want: "unknown log sink"},
		{name: "bad severity", body: "logging:\n  minimumSeverity: loud\n", want: "unknown severity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, err := LoadConfig(path, envMap(tc.env), nil)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestBuildServesHTTP(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Logging.Sinks = []string{"json"}
	cfg.Logging.JSONPath = filepath.Join(t.TempDir(), "events.jsonl")
	cfg.Results.Store = results.BackendSQLite
	cfg.Results.SQLitePath = filepath.Join(t.TempDir(), "results.db")

	var out strings.Builder
	services, err := Build(ctx, cfg, &out)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer services.Close(ctx)

	resp := httptest.NewRecorder()
	services.Handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/results", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from results endpoint, got %d", resp.Code)
	}
	if services.Session.ID() == "" {
		t.Fatalf("expected a match id")
	}
}
