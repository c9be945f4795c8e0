// Package agent implements the robots: inventory, cooldowns, strategy
// slots and the cached path following that moves them across the field.
package agent

import (
	"fmt"

	"ballfield/server/internal/field"
	"ballfield/server/internal/nav"
	"ballfield/server/internal/strategy"
)

// Robot is a single autonomous agent. BallCount always stays within
// [0, MaxBalls].
type Robot struct {
	id    string
	name  string
	team  field.Team
	pos   field.Vec2
	spawn field.Vec2

	ballCount    int
	shotCooldown int
	mode         strategy.Mode

	cfg    Config
	tuning Tuning

	scoring    strategy.Strategy
	collecting strategy.Strategy

	path pathCache
}

// New validates cfg and places a robot at spawn in collecting mode.
func New(id, name string, team field.Team, spawn field.Vec2, cfg Config, tuning Tuning) (*Robot, error) {
	if id == "" {
		return nil, fmt.Errorf("robot id is empty: %w", ErrInvalidConfig)
	}
	if !team.Valid() {
		return nil, fmt.Errorf("robot %s team %q: %w", id, team, ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("robot %s: %w", id, err)
	}
	if name == "" {
		name = id
	}
	return &Robot{
		id:     id,
		name:   name,
		team:   team,
		pos:    spawn,
		spawn:  spawn,
		mode:   strategy.ModeCollecting,
		cfg:    cfg,
		tuning: tuning.normalized(),
	}, nil
}

func (r *Robot) ID() string                { return r.id }
func (r *Robot) Name() string              { return r.name }
func (r *Robot) Team() field.Team          { return r.team }
func (r *Robot) Position() field.Vec2      { return r.pos }
func (r *Robot) Spawn() field.Vec2         { return r.spawn }
func (r *Robot) BallCount() int            { return r.ballCount }
func (r *Robot) MaxBalls() int             { return r.cfg.MaxBalls }
func (r *Robot) MaxShootDistance() float64 { return r.cfg.MaxShootDistance }
func (r *Robot) Mode() strategy.Mode       { return r.mode }
func (r *Robot) ShotCooldown() int         { return r.shotCooldown }
func (r *Robot) Config() Config            { return r.cfg }

// SetPosition teleports the robot and drops its route.
func (r *Robot) SetPosition(pos field.Vec2) {
	r.pos = pos
	r.path.clear()
}

// SetMode switches the active strategy slot. The cached route belongs to
// the previous strategy, so it is dropped.
func (r *Robot) SetMode(mode strategy.Mode) {
	if !mode.Valid() || mode == r.mode {
		return
	}
	r.mode = mode
	r.path.clear()
}

// SetStrategy installs s into the slot for mode.
func (r *Robot) SetStrategy(mode strategy.Mode, s strategy.Strategy) error {
	if s == nil {
		return fmt.Errorf("robot %s: nil strategy: %w", r.id, ErrInvalidConfig)
	}
	switch mode {
	case strategy.ModeScoring:
		r.scoring = s
	case strategy.ModeCollecting:
		r.collecting = s
	default:
		return fmt.Errorf("robot %s: mode %q: %w", r.id, mode, ErrInvalidConfig)
	}
	if mode == r.mode {
		r.path.clear()
	}
	return nil
}

// Strategy returns the strategy installed for mode, or nil.
func (r *Robot) Strategy(mode strategy.Mode) strategy.Strategy {
	if mode == strategy.ModeScoring {
		return r.scoring
	}
	return r.collecting
}

// ActiveStrategy returns the strategy for the current mode.
func (r *Robot) ActiveStrategy() strategy.Strategy {
	return r.Strategy(r.mode)
}

// Status reports the active strategy's status text.
func (r *Robot) Status() string {
	if s := r.ActiveStrategy(); s != nil {
		return s.Status()
	}
	return ""
}

// AddBall increments the inventory unless it is full.
func (r *Robot) AddBall() bool {
	if r.ballCount >= r.cfg.MaxBalls {
		return false
	}
	r.ballCount++
	return true
}

// RemoveBall decrements the inventory unless it is empty.
func (r *Robot) RemoveBall() bool {
	if r.ballCount <= 0 {
		return false
	}
	r.ballCount--
	return true
}

// CanShoot reports whether a shot is currently allowed.
func (r *Robot) CanShoot() bool {
	return r.ballCount > 0 && r.shotCooldown <= 0
}

// TickCooldown counts the shot cooldown down by one tick.
func (r *Robot) TickCooldown() {
	if r.shotCooldown > 0 {
		r.shotCooldown--
	}
}

// ResetCooldown restarts the cooldown at the configured base.
func (r *Robot) ResetCooldown() {
	r.shotCooldown = r.cfg.BaseShotCooldown
}

// Accuracy returns the hit accuracy for a shot of the given distance.
func (r *Robot) Accuracy(distance float64) float64 {
	return r.cfg.Accuracy(distance)
}

// Configure validates and applies cfg. When the capacity shrinks below the
// held count, the excess is removed from the inventory and returned so the
// caller can put those balls back on the field.
func (r *Robot) Configure(cfg Config) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, fmt.Errorf("robot %s: %w", r.id, err)
	}
	r.cfg = cfg
	excess := 0
	if r.ballCount > cfg.MaxBalls {
		excess = r.ballCount - cfg.MaxBalls
		r.ballCount = cfg.MaxBalls
	}
	if r.shotCooldown > cfg.BaseShotCooldown {
		r.shotCooldown = cfg.BaseShotCooldown
	}
	return excess, nil
}

// SetMoveSpeed sets the speed in tiles per second.
func (r *Robot) SetMoveSpeed(v float64) error {
	cfg := r.cfg
	cfg.MoveSpeed = v
	_, err := r.Configure(cfg)
	return err
}

// SetMaxBalls sets the capacity and returns the balls that no longer fit.
func (r *Robot) SetMaxBalls(n int) (int, error) {
	cfg := r.cfg
	cfg.MaxBalls = n
	return r.Configure(cfg)
}

// SetBaseShotCooldown sets the cooldown in ticks.
func (r *Robot) SetBaseShotCooldown(ticks int) error {
	cfg := r.cfg
	cfg.BaseShotCooldown = ticks
	_, err := r.Configure(cfg)
	return err
}

// SetMaxShootDistance sets the effective range in tiles.
func (r *Robot) SetMaxShootDistance(v float64) error {
	cfg := r.cfg
	cfg.MaxShootDistance = v
	_, err := r.Configure(cfg)
	return err
}

// SetAccuracy sets both accuracy bounds.
func (r *Robot) SetAccuracy(lo, hi float64) error {
	cfg := r.cfg
	cfg.AccuracyMin, cfg.AccuracyMax = lo, hi
	_, err := r.Configure(cfg)
	return err
}

// Reset returns the robot to its spawn with an empty inventory. Unless
// preserveConfig is set, the configuration reverts to defaults.
func (r *Robot) Reset(preserveConfig bool, defaults Config) {
	r.pos = r.spawn
	r.ballCount = 0
	r.shotCooldown = 0
	r.mode = strategy.ModeCollecting
	r.path.clear()
	if !preserveConfig {
		r.cfg = defaults
	}
}

// PathState reports the phase of the route cache.
func (r *Robot) PathState() PathState { return r.path.state }

// Waypoints returns a copy of the remaining cached way-points.
func (r *Robot) Waypoints() []field.Vec2 {
	if len(r.path.waypoints) == 0 {
		return nil
	}
	out := make([]field.Vec2, len(r.path.waypoints))
	copy(out, r.path.waypoints)
	return out
}

// arriveEpsilon is the tolerance for the final way-point, which is walked
// onto exactly rather than cut short.
const arriveEpsilon = 1e-9

// MoveResult describes one movement step.
type MoveResult struct {
	HasTarget bool
	Target    field.Vec2
	// Replanned is set when the route was recomputed this tick, with the
	// reason in ReplanReason.
	Replanned    bool
	ReplanReason string
	Displacement float64
	Arrived      bool
}

// Move asks the active strategy for a destination and advances toward it
// along the cached route for dt seconds. A strategy that holds position
// clears the cache.
func (r *Robot) Move(f *field.Field, dt float64) MoveResult {
	s := r.ActiveStrategy()
	if s == nil {
		r.path.clear()
		return MoveResult{}
	}
	target, ok := s.DecideMove(r, f)
	if !ok {
		r.path.clear()
		return MoveResult{}
	}
	return r.MoveToward(f, target, dt)
}

// MoveToward follows the cached route to target, re-planning when the
// target drifted or the robot is stuck.
func (r *Robot) MoveToward(grid nav.Grid, target field.Vec2, dt float64) MoveResult {
	result := MoveResult{HasTarget: true, Target: target}
	if reason := r.path.needsPlan(target, r.tuning); reason != "" {
		result.Replanned = true
		result.ReplanReason = reason
		if !r.path.plan(grid, r.pos, target, r.id) {
			return result
		}
	}

	before := r.pos
	if len(r.path.waypoints) > 0 {
		wp := r.path.waypoints[0]
		delta := wp.Sub(r.pos)
		dist := delta.Len()
		step := r.cfg.MoveSpeed * dt
		if dist > 0 && step > 0 {
			travel := min(step, dist)
			r.pos = r.pos.Add(delta.Scale(travel / dist))
		}
		final := len(r.path.waypoints) == 1
		reach := r.tuning.WaypointEpsilon
		if final {
			reach = arriveEpsilon
		}
		if r.pos.Dist(wp) <= reach {
			if final {
				r.pos = wp
			}
			r.path.waypoints = r.path.waypoints[1:]
		}
	}
	result.Displacement = before.Dist(r.pos)
	r.path.observe(result.Displacement, r.tuning)
	result.Arrived = r.path.arrived()
	return result
}

// Ensure Robot satisfies the read-only strategy view.
var _ strategy.Robot = (*Robot)(nil)
