package simulation

import (
	"context"

	"ballfield/server/logging"
)

const (
	// EventTickBudgetOverrun is emitted when one frame of the loop takes
	// longer than the frame interval.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventBacklogDiscarded is emitted when the loop hits its catch-up cap and
	// drops the simulated time it still owed.
	EventBacklogDiscarded logging.EventType = "simulation.backlog_discarded"
)

type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  payload,
		Extra:    extra,
	})
}

// BacklogDiscardedPayload reports how far the loop fell behind.
type BacklogDiscardedPayload struct {
	TicksRun      int     `json:"ticksRun"`
	CatchupCap    int     `json:"catchupCap"`
	PlaybackSpeed float64 `json:"playbackSpeed"`
}

func BacklogDiscarded(ctx context.Context, pub logging.Publisher, tick uint64, payload BacklogDiscardedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBacklogDiscarded,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  payload,
		Extra:    extra,
	})
}
