package strategy

import (
	"fmt"

	"ballfield/server/internal/field"
)

const (
	BasicScoringID          = "basic_scoring"
	BasicCollectorNoShootID = "basic_collector_no_shoot"

	// deliveryRadius bounds how far from the scoring cell a collector drops
	// its load.
	deliveryRadius = 6
)

// BasicScoring carries balls into its home zone and shoots them at the
// team's scoring cell once in range. With an empty tank it reloads from the
// ball with the best gain.
type BasicScoring struct {
	status string
}

// NewBasicScoring returns a fresh BasicScoring instance.
func NewBasicScoring() *BasicScoring { return &BasicScoring{status: "Idle"} }

func (s *BasicScoring) ID() string     { return BasicScoringID }
func (s *BasicScoring) Status() string { return s.status }

// homeStagingX is a column safely inside team's zone, mirrored for BLUE.
func homeStagingX(f *field.Field, team field.Team) float64 {
	if team == field.TeamRed {
		return float64(f.LeftBoundary()-2) + 0.5
	}
	return float64(f.RightBoundary()+1) + 0.5
}

func (s *BasicScoring) DecideMove(r Robot, f *field.Field) (field.Vec2, bool) {
	goal, ok := ScoringTarget(f, r.Team())
	if !ok {
		s.status = "Idle"
		return field.Vec2{}, false
	}
	pos := r.Position()
	if r.BallCount() > 0 {
		if f.InTeamZone(pos.X, r.Team()) {
			s.status = "Closing on goal"
			return goal, true
		}
		s.status = "Returning to zone"
		return field.Vec2{X: homeStagingX(f, r.Team()), Y: pos.Y}, true
	}

	choice := FindBestEVBall(f, r, BallQuery{Target: &goal, TargetEV: EVScored})
	if choice.Found {
		s.status = "Reloading"
		return choice.Ball, true
	}
	s.status = "Idle"
	return field.Vec2{}, false
}

func (s *BasicScoring) DecideAction(r Robot, f *field.Field) Action {
	pos := r.Position()
	if r.BallCount() > 0 && f.InTeamZone(pos.X, r.Team()) {
		if goal, ok := ScoringTarget(f, r.Team()); ok {
			if dist := pos.Dist(goal); dist <= r.MaxShootDistance() {
				s.status = "Shooting"
				return Shoot(dist, Heading(pos, goal))
			}
		}
	}
	if r.BallCount() < r.MaxBalls() && f.TileAt(pos.X, pos.Y) == field.TileBall {
		return Collect()
	}
	return None()
}

// BasicCollectorNoShoot fills its tank with balls worth moving, then walks
// them to the home scoring cell and drops them nearby to be shot later.
type BasicCollectorNoShoot struct {
	status string
}

// NewBasicCollectorNoShoot returns a fresh BasicCollectorNoShoot instance.
func NewBasicCollectorNoShoot() *BasicCollectorNoShoot {
	return &BasicCollectorNoShoot{status: "Idle"}
}

func (s *BasicCollectorNoShoot) ID() string     { return BasicCollectorNoShootID }
func (s *BasicCollectorNoShoot) Status() string { return s.status }

func (s *BasicCollectorNoShoot) DecideMove(r Robot, f *field.Field) (field.Vec2, bool) {
	loc, ok := f.ScoringLocationFor(r.Team())
	if !ok {
		s.status = "Idle"
		return field.Vec2{}, false
	}
	goal := loc.Center()
	targetEV := BallEV(f, goal.X, goal.Y, r.Team())

	if r.BallCount() < r.MaxBalls() {
		s.status = fmt.Sprintf("Filling tank (%d/%d)", r.BallCount(), r.MaxBalls())
		choice := FindBestEVBall(f, r, BallQuery{Target: &goal, TargetEV: targetEV})
		if choice.Found && choice.MaxScore > 0 {
			return choice.Ball, true
		}
	}

	if r.BallCount() > 0 {
		s.status = "Delivering balls (No Shoot)"
		if drop, ok := FindNearestEmptyTile(f, loc.Cell, deliveryRadius, &loc.Cell); ok {
			return drop, true
		}
	}

	s.status = "Idle"
	return field.Vec2{}, false
}

func (s *BasicCollectorNoShoot) DecideAction(r Robot, f *field.Field) Action {
	pos := r.Position()
	tile := f.TileAt(pos.X, pos.Y)
	if r.BallCount() < r.MaxBalls() && tile == field.TileBall {
		return Collect()
	}
	if r.BallCount() > 0 && tile == field.TileEmpty {
		if goal, ok := ScoringTarget(f, r.Team()); ok && pos.Dist(goal) <= deliveryRadius {
			if _, onGoal := f.ScoringLocationAt(pos.X, pos.Y); !onGoal {
				return Drop()
			}
		}
	}
	return None()
}
