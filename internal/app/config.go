package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ballfield/server/internal/match"
	"ballfield/server/internal/observability"
	"ballfield/server/internal/results"
	"ballfield/server/internal/telemetry"
	"ballfield/server/logging"
)

const (
	DefaultHTTPAddr   = ":8080"
	DefaultSQLitePath = "ballfield-results.db"
)

// Config is the server configuration file. Every field is optional.
type Config struct {
	HTTPAddr  string `json:"httpAddr" yaml:"httpAddr"`
	ClientDir string `json:"clientDir,omitempty" yaml:"clientDir,omitempty"`

	match.Config `yaml:",inline"`

	Results       ResultsConfig        `json:"results" yaml:"results"`
	Logging       LoggingConfig        `json:"logging" yaml:"logging"`
	Observability observability.Config `json:"observability" yaml:"observability"`
}

type ResultsConfig struct {
	// Store is "memory" or "sqlite".
	Store      string `json:"store" yaml:"store"`
	SQLitePath string `json:"sqlitePath" yaml:"sqlitePath"`
}

type LoggingConfig struct {
	Sinks []string `json:"sinks" yaml:"sinks"`
	// Format is "text" or "json" for the console output.
	Format string `json:"format" yaml:"format"`
	Level  string `json:"level" yaml:"level"`
	// MinimumSeverity filters match events before they reach any sink.
	MinimumSeverity string        `json:"minimumSeverity" yaml:"minimumSeverity"`
	JSONPath        string        `json:"jsonPath" yaml:"jsonPath"`
	FlushInterval   time.Duration `json:"flushInterval" yaml:"flushInterval"`
}

func DefaultConfig() Config {
	logCfg := logging.DefaultConfig()
	return Config{
		HTTPAddr: DefaultHTTPAddr,
		Config:   match.DefaultConfig(),
		Results: ResultsConfig{
			Store:      results.BackendMemory,
			SQLitePath: DefaultSQLitePath,
		},
		Logging: LoggingConfig{
			Sinks:           append([]string(nil), logCfg.EnabledSinks...),
			Format:          logCfg.Console.Format,
			Level:           logCfg.Console.Level,
			MinimumSeverity: "info",
			JSONPath:        logCfg.JSON.FilePath,
			FlushInterval:   logCfg.JSON.FlushInterval,
		},
	}
}

// Env looks up an environment variable. os.Getenv satisfies it.
type Env func(string) string

// LoadConfig reads the optional YAML file at path over the defaults and then
// applies environment overrides. An empty path falls back to MATCH_CONFIG.
// Invalid override values are logged and ignored.
func LoadConfig(path string, env Env, logger telemetry.Logger) (Config, error) {
	if env == nil {
		env = os.Getenv
	}
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	cfg := DefaultConfig()
	if path == "" {
		path = strings.TrimSpace(env("MATCH_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg, env, logger)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, env Env, logger telemetry.Logger) {
	if raw := strings.TrimSpace(env("MATCH_SEED")); raw != "" {
		cfg.Match.Seed = raw
	}
	if raw := strings.TrimSpace(env("MATCH_DURATION_SECONDS")); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.Match.DurationSeconds = value
		} else {
			logger.Printf("invalid MATCH_DURATION_SECONDS=%q", raw)
		}
	}
	if raw := strings.TrimSpace(env("PLAYBACK_SPEED")); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.Loop.PlaybackSpeed = value
		} else {
			logger.Printf("invalid PLAYBACK_SPEED=%q", raw)
		}
	}
	if raw := strings.TrimSpace(env("HTTP_ADDR")); raw != "" {
		cfg.HTTPAddr = raw
	}
	if raw := strings.TrimSpace(env("RESULTS_STORE")); raw != "" {
		cfg.Results.Store = strings.ToLower(raw)
	}
	if raw := strings.TrimSpace(env("RESULTS_SQLITE_PATH")); raw != "" {
		cfg.Results.SQLitePath = raw
	}
	if raw := env("LOG_SINKS"); strings.TrimSpace(raw) != "" {
		cfg.Logging.Sinks = logging.ParseSinks(raw)
	}
	if raw := strings.TrimSpace(env("LOG_FORMAT")); raw != "" {
		cfg.Logging.Format = raw
	}
	if raw := strings.TrimSpace(env("LOG_LEVEL")); raw != "" {
		cfg.Logging.Level = raw
	}
	if raw := strings.TrimSpace(env("ENABLE_PPROF_TRACE")); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid ENABLE_PPROF_TRACE=%q: %v", raw, err)
		}
	}
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Results.Store {
	case results.BackendMemory, results.BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("results store %q: want %s or %s", c.Results.Store, results.BackendMemory, results.BackendSQLite))
	}
	if c.Results.Store == results.BackendSQLite && strings.TrimSpace(c.Results.SQLitePath) == "" {
		errs = append(errs, errors.New("results sqlitePath is required for the sqlite store"))
	}
	for _, name := range c.Logging.Sinks {
		if name != sinkConsole && name != sinkJSON {
			errs = append(errs, fmt.Errorf("unknown log sink %q", name))
		}
	}
	if _, err := logging.ParseSeverity(c.Logging.MinimumSeverity); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoggingSettings converts the file settings into router configuration.
func (c Config) LoggingSettings() logging.Config {
	out := logging.DefaultConfig()
	out.EnabledSinks = append([]string(nil), c.Logging.Sinks...)
	out.Console.Format = c.Logging.Format
	out.Console.Level = c.Logging.Level
	if sev, err := logging.ParseSeverity(c.Logging.MinimumSeverity); err == nil {
		out.MinimumSeverity = sev
	}
	if c.Logging.JSONPath != "" {
		out.JSON.FilePath = c.Logging.JSONPath
	}
	if c.Logging.FlushInterval > 0 {
		out.JSON.FlushInterval = c.Logging.FlushInterval
	}
	return out
}
