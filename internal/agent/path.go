package agent

import (
	"ballfield/server/internal/field"
	"ballfield/server/internal/nav"
)

// PathState is the phase of a robot's path cache.
type PathState uint8

const (
	// PathIdle holds no route; the next target triggers a plan.
	PathIdle PathState = iota
	// PathFollowing consumes way-points planned for the cached target.
	PathFollowing
)

func (s PathState) String() string {
	if s == PathFollowing {
		return "following"
	}
	return "idle"
}

// Tuning controls re-planning and way-point consumption.
type Tuning struct {
	// TargetEpsilon is how far a requested target may drift from the cached
	// one before the route is re-planned.
	TargetEpsilon float64 `json:"targetEpsilon" yaml:"targetEpsilon"`
	// WaypointEpsilon is the distance at which a way-point counts as reached.
	WaypointEpsilon float64 `json:"waypointEpsilon" yaml:"waypointEpsilon"`
	// StuckEpsilon is the per-tick displacement below which a robot that
	// has not arrived counts as stationary.
	StuckEpsilon float64 `json:"stuckEpsilon" yaml:"stuckEpsilon"`
	// StuckTicks is how many consecutive stationary ticks are tolerated
	// before a forced re-plan.
	StuckTicks int `json:"stuckTicks" yaml:"stuckTicks"`
}

// DefaultTuning returns the stock path cache tuning.
func DefaultTuning() Tuning {
	return Tuning{
		TargetEpsilon:   0.5,
		WaypointEpsilon: 0.1,
		StuckEpsilon:    0.01,
		StuckTicks:      20,
	}
}

func (t Tuning) normalized() Tuning {
	def := DefaultTuning()
	if t.TargetEpsilon <= 0 {
		t.TargetEpsilon = def.TargetEpsilon
	}
	if t.WaypointEpsilon <= 0 {
		t.WaypointEpsilon = def.WaypointEpsilon
	}
	if t.StuckEpsilon <= 0 {
		t.StuckEpsilon = def.StuckEpsilon
	}
	if t.StuckTicks <= 0 {
		t.StuckTicks = def.StuckTicks
	}
	return t
}

// pathCache is the robot-private route memory. waypoints and target are
// only meaningful in PathFollowing; an empty way-point list while following
// means the robot has arrived.
type pathCache struct {
	state      PathState
	waypoints  []field.Vec2
	target     field.Vec2
	stuckTicks int
}

func (p *pathCache) clear() {
	p.state = PathIdle
	p.waypoints = nil
	p.target = field.Vec2{}
	p.stuckTicks = 0
}

func (p *pathCache) arrived() bool {
	return p.state == PathFollowing && len(p.waypoints) == 0
}

// needsPlan reports the reason a new route is required, or "" when the
// cached one still applies.
func (p *pathCache) needsPlan(target field.Vec2, tuning Tuning) string {
	switch p.state {
	case PathIdle:
		return "idle"
	case PathFollowing:
		if p.target.Dist(target) > tuning.TargetEpsilon {
			return "target_changed"
		}
		if p.stuckTicks > tuning.StuckTicks {
			return "stuck"
		}
	}
	return ""
}

// plan replaces the cache with a route from pos to target. On failure the
// cache is left idle.
func (p *pathCache) plan(grid nav.Grid, pos, target field.Vec2, agentID string) bool {
	path, ok := nav.Plan(grid, pos, target, agentID)
	if !ok {
		p.clear()
		return false
	}
	p.state = PathFollowing
	p.target = target
	p.stuckTicks = 0
	p.waypoints = toWaypoints(path, pos, target)
	return true
}

// toWaypoints drops the start cell and lets the final way-point land on the
// exact target when the search did not substitute the destination.
func toWaypoints(path []field.Vec2, pos, target field.Vec2) []field.Vec2 {
	if len(path) < 2 {
		return []field.Vec2{target}
	}
	out := make([]field.Vec2, 0, len(path))
	start := path[0]
	if start.Cell() != pos.Cell() {
		out = append(out, start)
	}
	out = append(out, path[1:]...)
	if last := len(out) - 1; out[last].Cell() == target.Cell() {
		out[last] = target
	}
	return out
}

// observe updates stuck detection after a movement step.
func (p *pathCache) observe(displacement float64, tuning Tuning) {
	if p.state != PathFollowing || p.arrived() {
		p.stuckTicks = 0
		return
	}
	if displacement < tuning.StuckEpsilon {
		p.stuckTicks++
		return
	}
	p.stuckTicks = 0
}
