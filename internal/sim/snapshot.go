package sim

import (
	"ballfield/server/internal/agent"
	"ballfield/server/internal/field"
	"ballfield/server/internal/strategy"
)

// RobotView is the read-only state of one robot.
type RobotView struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Team         field.Team    `json:"team"`
	X            float64       `json:"x"`
	Y            float64       `json:"y"`
	BallCount    int           `json:"ballCount"`
	MaxBalls     int           `json:"maxBalls"`
	Mode         strategy.Mode `json:"mode"`
	Strategy     string        `json:"strategy"`
	Status       string        `json:"status"`
	ShotCooldown int           `json:"shotCooldown"`
	Config       agent.Config  `json:"config"`
}

// Snapshot captures the state exposed to non-simulation callers. Slices are
// owned by the snapshot and safe to retain.
type Snapshot struct {
	State       State                   `json:"state"`
	Tick        int                     `json:"tick"`
	TotalTicks  int                     `json:"totalTicks"`
	Elapsed     float64                 `json:"elapsed"`
	ScoreRed    int                     `json:"scoreRed"`
	ScoreBlue   int                     `json:"scoreBlue"`
	ScoringTeam field.Team              `json:"scoringTeam"`
	ModeTimer   int                     `json:"modeTimer"`
	Robots      []RobotView             `json:"robots"`
	Width       int                     `json:"width"`
	Height      int                     `json:"height"`
	Grid        []string                `json:"grid"`
	BallsOnGrid int                     `json:"ballsOnGrid"`
	Scoring     []field.ScoringLocation `json:"scoring"`
	Flying      []field.FlyingBall      `json:"flying,omitempty"`
	Result      *Result                 `json:"result,omitempty"`
}

// TotalBalls counts every ball in play: on the grid, held, or in flight.
func (s Snapshot) TotalBalls() int {
	total := s.BallsOnGrid + len(s.Flying)
	for _, r := range s.Robots {
		total += r.BallCount
	}
	return total
}

// Snapshot builds a copy of the current match state.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		State:       e.state,
		Tick:        e.tick,
		TotalTicks:  e.totalTicks,
		Elapsed:     e.Elapsed(),
		ScoreRed:    e.scoreRed,
		ScoreBlue:   e.scoreBlue,
		ScoringTeam: e.scoringTeam,
		ModeTimer:   e.modeTimer,
		Robots:      make([]RobotView, 0, len(e.robots)),
		Width:       e.field.Width(),
		Height:      e.field.Height(),
		Grid:        e.field.Rows(),
		BallsOnGrid: e.field.BallCount(),
		Scoring:     e.field.ScoringLocations(),
		Flying:      e.field.FlyingBalls(),
	}
	for _, r := range e.robots {
		view := RobotView{
			ID:           r.ID(),
			Name:         r.Name(),
			Team:         r.Team(),
			X:            r.Position().X,
			Y:            r.Position().Y,
			BallCount:    r.BallCount(),
			MaxBalls:     r.MaxBalls(),
			Mode:         r.Mode(),
			Status:       r.Status(),
			ShotCooldown: r.ShotCooldown(),
			Config:       r.Config(),
		}
		if s := r.ActiveStrategy(); s != nil {
			view.Strategy = s.ID()
		}
		snap.Robots = append(snap.Robots, view)
	}
	if e.result != nil {
		result := *e.result
		snap.Result = &result
	}
	return snap
}
