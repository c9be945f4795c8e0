package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"ballfield/server/internal/match"
	"ballfield/server/internal/results"
	"ballfield/server/internal/sim"
	"ballfield/server/internal/telemetry"
	"ballfield/server/logging"
)

type HeadlessOptions struct {
	Config Config
	// Matches is how many matches run back to back. Match i uses the seed
	// "<seed>-<i>" when more than one match is requested.
	Matches int
	Logger  telemetry.Logger
}

// Summary tallies a headless batch.
type Summary struct {
	Records  []results.Record `json:"records"`
	RedWins  int              `json:"redWins"`
	BlueWins int              `json:"blueWins"`
	Ties     int              `json:"ties"`
}

// RunHeadless plays seeded matches without real-time pacing and records each
// result in the configured store.
func RunHeadless(ctx context.Context, opts HeadlessOptions) (Summary, error) {
	var summary Summary
	if opts.Matches <= 0 {
		opts.Matches = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	cfg := opts.Config

	store, err := results.Open(ctx, cfg.Results.Store, cfg.Results.SQLitePath)
	if err != nil {
		return summary, err
	}
	defer store.Close()

	baseSeed := cfg.Match.Seed
	for i := 1; i <= opts.Matches; i++ {
		sessionCfg := cfg.Config
		if opts.Matches > 1 {
			sessionCfg.Match.Seed = fmt.Sprintf("%s-%d", baseSeed, i)
		}
		session, err := match.New(sessionCfg, match.Deps{
			Logger:    logger,
			Publisher: logging.NopPublisher(),
			Store:     store,
		})
		if err != nil {
			return summary, err
		}
		res, err := session.RunToEnd(ctx)
		if err != nil {
			return summary, err
		}
		switch res.Winner {
		case sim.WinnerRed:
			summary.RedWins++
		case sim.WinnerBlue:
			summary.BlueWins++
		default:
			summary.Ties++
		}
		summary.Records = append(summary.Records, session.Recorded()...)
	}
	return summary, nil
}

// WriteSummary renders one line per match and a totals line.
func WriteSummary(w io.Writer, summary Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tSEED\tWINNER\tRED\tBLUE\tTICKS\tSHOTS\tLOST")
	for _, rec := range summary.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			rec.MatchID, rec.Seed, rec.Winner, rec.ScoreRed, rec.ScoreBlue, rec.Ticks, rec.Shots, rec.LostBalls)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "red %d, blue %d, ties %d\n", summary.RedWins, summary.BlueWins, summary.Ties)
	return err
}
