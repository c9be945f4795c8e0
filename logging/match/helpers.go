package match

import (
	"context"

	"ballfield/server/logging"
)

const (
	// EventStarted is emitted when the engine enters the running state.
	EventStarted logging.EventType = "match.started"
	// EventPaused is emitted when a running match is stopped.
	EventPaused logging.EventType = "match.paused"
	// EventEnded is emitted once the final tick has been simulated.
	EventEnded logging.EventType = "match.ended"
	// EventReset is emitted after the field and robots are rebuilt.
	EventReset logging.EventType = "match.reset"
	// EventModeSwitched is emitted when the scoring team alternates.
	EventModeSwitched logging.EventType = "match.mode_switched"
	// EventBallScored is emitted when a shot lands on the scoring cell of the active team.
	EventBallScored logging.EventType = "scoring.ball_scored"
	// EventScoreRejected is emitted when a ball reaches a scoring cell without counting.
	EventScoreRejected logging.EventType = "scoring.score_rejected"
	// EventBallLost is emitted when a landing ball finds no open tile.
	EventBallLost logging.EventType = "scoring.ball_lost"
)

// StartedPayload describes the match at the moment it starts running.
type StartedPayload struct {
	Seed        string `json:"seed"`
	TotalTicks  int    `json:"totalTicks"`
	ScoringTeam string `json:"scoringTeam"`
	Resumed     bool   `json:"resumed"`
}

// PausedPayload records the scores at the moment a match is stopped.
type PausedPayload struct {
	RedScore  int `json:"redScore"`
	BlueScore int `json:"blueScore"`
}

// EndedPayload captures the final score line.
type EndedPayload struct {
	RedScore  int    `json:"redScore"`
	BlueScore int    `json:"blueScore"`
	Winner    string `json:"winner"`
	Ticks     int    `json:"ticks"`
}

// ResetPayload notes whether robot configuration survived the reset.
type ResetPayload struct {
	PreserveConfig bool `json:"preserveConfig"`
}

// ModeSwitchedPayload lists the team that now scores.
type ModeSwitchedPayload struct {
	ScoringTeam string `json:"scoringTeam"`
}

// BallScoredPayload captures who scored and where the shot began.
type BallScoredPayload struct {
	Team    string  `json:"team"`
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
	Score   int     `json:"score"`
}

// ScoreRejectedPayload explains why a ball reaching a goal did not count.
type ScoreRejectedPayload struct {
	Team   string `json:"team"`
	Reason string `json:"reason"`
}

// BallLostPayload records where a ball disappeared.
type BallLostPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Started publishes a match start event.
func Started(ctx context.Context, pub logging.Publisher, tick uint64, payload StartedPayload, extra map[string]any) {
	publish(ctx, pub, EventStarted, tick, logging.SeverityInfo, logging.CategoryMatch, matchRef(), payload, extra)
}

// Paused publishes a match pause event.
func Paused(ctx context.Context, pub logging.Publisher, tick uint64, payload PausedPayload, extra map[string]any) {
	publish(ctx, pub, EventPaused, tick, logging.SeverityInfo, logging.CategoryMatch, matchRef(), payload, extra)
}

// Ended publishes the final score.
func Ended(ctx context.Context, pub logging.Publisher, tick uint64, payload EndedPayload, extra map[string]any) {
	publish(ctx, pub, EventEnded, tick, logging.SeverityInfo, logging.CategoryMatch, matchRef(), payload, extra)
}

// Reset publishes a reset event.
func Reset(ctx context.Context, pub logging.Publisher, tick uint64, payload ResetPayload, extra map[string]any) {
	publish(ctx, pub, EventReset, tick, logging.SeverityInfo, logging.CategoryMatch, matchRef(), payload, extra)
}

// ModeSwitched publishes a scoring window change.
func ModeSwitched(ctx context.Context, pub logging.Publisher, tick uint64, payload ModeSwitchedPayload, extra map[string]any) {
	actor := logging.EntityRef{ID: payload.ScoringTeam, Kind: logging.EntityKindTeam}
	publish(ctx, pub, EventModeSwitched, tick, logging.SeverityDebug, logging.CategoryMatch, actor, payload, extra)
}

// BallScored publishes a legal score by the shooting robot.
func BallScored(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BallScoredPayload, extra map[string]any) {
	publish(ctx, pub, EventBallScored, tick, logging.SeverityInfo, logging.CategoryScoring, actor, payload, extra)
}

// ScoreRejected publishes a warning for a ball that reached a goal illegally.
func ScoreRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ScoreRejectedPayload, extra map[string]any) {
	publish(ctx, pub, EventScoreRejected, tick, logging.SeverityWarn, logging.CategoryScoring, actor, payload, extra)
}

// BallLost publishes a warning for a ball removed from play.
func BallLost(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BallLostPayload, extra map[string]any) {
	publish(ctx, pub, EventBallLost, tick, logging.SeverityWarn, logging.CategoryScoring, actor, payload, extra)
}

func matchRef() logging.EntityRef {
	return logging.EntityRef{Kind: logging.EntityKindMatch}
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, severity logging.Severity, category string, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: category,
		Payload:  payload,
		Extra:    extra,
	})
}
