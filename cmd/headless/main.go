package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ballfield/server/internal/app"
	"ballfield/server/internal/telemetry"
	"ballfield/server/logging"
)

func main() {
	var (
		configPath string
		matches    int
		seed       string
		store      string
		sqlitePath string
		asJSON     bool
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML match configuration (defaults to $MATCH_CONFIG)")
	flag.IntVar(&matches, "matches", 1, "number of matches to play back to back")
	flag.StringVar(&seed, "seed", "", "base seed; match i uses <seed>-<i> when playing more than one")
	flag.StringVar(&store, "store", "", "results store: memory or sqlite")
	flag.StringVar(&sqlitePath, "sqlite", "", "sqlite database path for the sqlite store")
	flag.BoolVar(&asJSON, "json", false, "print the summary as JSON")
	flag.Parse()

	logger := logging.NewLogrus(logging.DefaultConfig().Console, os.Stderr)
	cfg, err := app.LoadConfig(configPath, os.Getenv, telemetry.WrapLogrus(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if seed != "" {
		cfg.Match.Seed = seed
	}
	if store != "" {
		cfg.Results.Store = store
	}
	if sqlitePath != "" {
		cfg.Results.SQLitePath = sqlitePath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := app.RunHeadless(ctx, app.HeadlessOptions{
		Config:  cfg,
		Matches: matches,
		Logger:  telemetry.WrapLogrus(logger),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "headless run failed: %v\n", err)
		os.Exit(1)
	}

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(summary)
	} else {
		err = app.WriteSummary(os.Stdout, summary)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write summary: %v\n", err)
		os.Exit(1)
	}
}
