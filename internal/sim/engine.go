// Package sim runs the match: a fixed-step engine that owns the field and
// the robot roster, and the real-time loop that paces it.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"ballfield/server/internal/agent"
	"ballfield/server/internal/field"
	"ballfield/server/internal/strategy"
	"ballfield/server/logging"
	"ballfield/server/logging/lifecycle"
	matchlog "ballfield/server/logging/match"
)

// State is the engine's lifecycle phase.
type State string

const (
	StateIdle     State = "IDLE"
	StateRunning  State = "RUNNING"
	StatePaused   State = "PAUSED"
	StateFinished State = "FINISHED"
)

const (
	metricTicksTotal     = "match_ticks_total"
	metricShotsTotal     = "match_shots_total"
	metricScoresTotal    = "match_scores_total"
	metricLostBallsTotal = "match_lost_balls_total"
	metricBallsInPlay    = "match_balls_in_play"
)

// spawnInset is the horizontal distance of the spawn column from the side
// wall.
const spawnInset = 3.5

// Engine composes the field and the robots and advances them one tick at a
// time. It is not safe for concurrent use; Loop serialises access.
type Engine struct {
	cfg      Config
	deps     Deps
	hooks    Hooks
	registry *strategy.Registry

	field   *field.Field
	robots  []*agent.Robot
	byID    map[string]*agent.Robot
	shotRNG *rand.Rand

	state       State
	tick        int
	totalTicks  int
	modeTimer   int
	scoringTeam field.Team
	scoreRed    int
	scoreBlue   int
	result      *Result
	stats       Stats

	tickDuration float64
	ballStep     float64
}

// build lays out a fresh field and either rebuilds the roster from
// configuration or, when preserve is set, returns the existing robots to
// their spawns with their configuration and strategies intact.
func (e *Engine) build(preserve bool) error {
	cfg := e.cfg
	e.field = field.New(cfg.Layout, e.deps.RNG(cfg.Seed, "field"))
	e.field.SeedBalls(cfg.InitialBalls)
	e.shotRNG = e.deps.RNG(cfg.Seed, "shots.spread")

	e.state = StateIdle
	e.tick = 0
	e.totalTicks = cfg.TotalTicks()
	e.modeTimer = 0
	e.scoringTeam = cfg.FirstScoringTeam
	e.scoreRed, e.scoreBlue = 0, 0
	e.result = nil
	e.stats = Stats{}
	e.tickDuration = cfg.TickDuration()
	e.ballStep = cfg.BallStep()

	if preserve && len(e.robots) > 0 {
		for _, r := range e.robots {
			r.Reset(true, cfg.Robot)
		}
	} else if err := e.buildRoster(); err != nil {
		return err
	}
	e.applyModes()
	e.refreshOccupancy()
	for _, r := range e.robots {
		lifecycle.RobotSpawned(context.Background(), e.deps.Publisher, 0, robotRef(r), lifecycle.RobotSpawnedPayload{
			Team:   string(r.Team()),
			SpawnX: r.Spawn().X,
			SpawnY: r.Spawn().Y,
		}, nil)
	}
	return nil
}

func (e *Engine) buildRoster() error {
	cfg := e.cfg
	e.robots = e.robots[:0]
	e.byID = make(map[string]*agent.Robot, 2*cfg.RobotsPerTeam)
	for _, team := range []field.Team{field.TeamRed, field.TeamBlue} {
		prefix, label := "R", "Red"
		if team == field.TeamBlue {
			prefix, label = "B", "Blue"
		}
		for i := 0; i < cfg.RobotsPerTeam; i++ {
			id := fmt.Sprintf("%s%d", prefix, i+1)
			name := fmt.Sprintf("%s %d", label, i+1)
			robotCfg := cfg.Robot
			override := cfg.Robots[id]
			if override.Name != "" {
				name = override.Name
			}
			if override.Config != nil {
				robotCfg = *override.Config
			}
			r, err := agent.New(id, name, team, e.spawnSlot(team, i), robotCfg, cfg.Tuning)
			if err != nil {
				return err
			}
			if err := e.installDefaults(r, override); err != nil {
				return err
			}
			e.robots = append(e.robots, r)
			e.byID[id] = r
		}
	}
	return nil
}

func (e *Engine) installDefaults(r *agent.Robot, override RobotOverride) error {
	slots := []struct {
		mode strategy.Mode
		id   string
	}{
		{strategy.ModeScoring, override.ScoringStrategy},
		{strategy.ModeCollecting, override.CollectingStrategy},
	}
	for _, slot := range slots {
		id := slot.id
		if id == "" {
			id = strategy.DefaultFor(slot.mode)
		}
		s, err := e.registry.New(id)
		if err != nil {
			return fmt.Errorf("robot %s %s slot: %w", r.ID(), slot.mode, err)
		}
		if err := r.SetStrategy(slot.mode, s); err != nil {
			return err
		}
	}
	return nil
}

// spawnSlot spreads a team's robots evenly down the column near its own
// side wall. The default three robots stand at a quarter, half and three
// quarters of the field height.
func (e *Engine) spawnSlot(team field.Team, index int) field.Vec2 {
	n := e.cfg.RobotsPerTeam
	height := e.field.Height()
	row := int(math.Floor(float64(height*(index+1)) / float64(n+1)))
	row = min(max(row, 1), height-2)
	x := spawnInset
	if team == field.TeamBlue {
		x = float64(e.field.Width()) - spawnInset
	}
	return field.Vec2{X: x, Y: float64(row) + 0.5}
}

// applyModes mirrors the scoring team onto the zones and the robots.
func (e *Engine) applyModes() {
	e.field.SetActiveTeam(e.scoringTeam)
	for _, r := range e.robots {
		if r.Team() == e.scoringTeam {
			r.SetMode(strategy.ModeScoring)
		} else {
			r.SetMode(strategy.ModeCollecting)
		}
	}
}

func (e *Engine) refreshOccupancy() {
	e.field.ClearOccupants()
	for _, r := range e.robots {
		e.field.SetOccupant(r.ID(), r.Position())
	}
}

// Start moves an idle or paused match into the running state. It is a no-op
// while running or once finished.
func (e *Engine) Start() {
	switch e.state {
	case StateIdle, StatePaused:
		resumed := e.state == StatePaused
		e.state = StateRunning
		matchlog.Started(context.Background(), e.deps.Publisher, uint64(e.tick), matchlog.StartedPayload{
			Seed:        e.cfg.Seed,
			TotalTicks:  e.totalTicks,
			ScoringTeam: string(e.scoringTeam),
			Resumed:     resumed,
		}, nil)
	}
}

// Stop pauses a running match.
func (e *Engine) Stop() {
	if e.state != StateRunning {
		return
	}
	e.state = StatePaused
	matchlog.Paused(context.Background(), e.deps.Publisher, uint64(e.tick), matchlog.PausedPayload{
		RedScore:  e.scoreRed,
		BlueScore: e.scoreBlue,
	}, nil)
}

// Reset rebuilds the field and returns every robot to its spawn. With
// preserveConfig the robots keep their configuration and strategies;
// otherwise the roster is rebuilt from the match configuration.
func (e *Engine) Reset(preserveConfig bool) error {
	if err := e.build(preserveConfig); err != nil {
		return fmt.Errorf("reset match: %w", err)
	}
	matchlog.Reset(context.Background(), e.deps.Publisher, 0, matchlog.ResetPayload{PreserveConfig: preserveConfig}, nil)
	return nil
}

// Tick advances the match by one fixed step and reports whether state
// advanced. It does nothing unless the match is running. The call that
// finds the match duration elapsed finishes the match instead of stepping.
func (e *Engine) Tick() bool {
	if e.state != StateRunning {
		return false
	}
	if e.tick >= e.totalTicks {
		e.finish()
		return false
	}

	e.tick++
	e.modeTimer++
	if e.modeTimer >= e.cfg.ScoringIntervalTicks {
		e.modeTimer = 0
		e.scoringTeam = e.scoringTeam.Opponent()
		e.applyModes()
		e.stats.ModeSwitches++
		matchlog.ModeSwitched(context.Background(), e.deps.Publisher, uint64(e.tick), matchlog.ModeSwitchedPayload{
			ScoringTeam: string(e.scoringTeam),
		}, nil)
		if e.hooks.OnModeSwitch != nil {
			e.hooks.OnModeSwitch(e.tick, e.scoringTeam)
		}
	}

	e.refreshOccupancy()
	e.advanceFlyingBalls()

	for _, r := range e.robots {
		r.TickCooldown()
		move := r.Move(e.field, e.tickDuration)
		if move.Replanned {
			e.stats.Replans++
		}
		e.field.SetOccupant(r.ID(), r.Position())
		e.resolveAction(r)
	}

	e.stats.Ticks = e.tick
	e.storeMetrics()
	return true
}

func (e *Engine) finish() {
	result := Result{
		Winner:    decideWinner(e.scoreRed, e.scoreBlue),
		ScoreRed:  e.scoreRed,
		ScoreBlue: e.scoreBlue,
	}
	e.state = StateFinished
	e.result = &result
	matchlog.Ended(context.Background(), e.deps.Publisher, uint64(e.tick), matchlog.EndedPayload{
		RedScore:  e.scoreRed,
		BlueScore: e.scoreBlue,
		Winner:    string(result.Winner),
		Ticks:     e.tick,
	}, nil)
	if e.hooks.OnMatchEnd != nil {
		e.hooks.OnMatchEnd(result)
	}
}

func (e *Engine) storeMetrics() {
	if e.deps.Metrics == nil {
		return
	}
	e.deps.Metrics.Add(metricTicksTotal, 1)
	e.deps.Metrics.Store(metricBallsInPlay, uint64(e.ballsInPlay()))
}

func (e *Engine) ballsInPlay() int {
	total := e.field.BallCount() + e.field.FlyingCount()
	for _, r := range e.robots {
		total += r.BallCount()
	}
	return total
}

// State reports the lifecycle phase.
func (e *Engine) State() State { return e.state }

// Ticks is the number of ticks simulated so far.
func (e *Engine) Ticks() int { return e.tick }

// TotalTicks is the match length in ticks.
func (e *Engine) TotalTicks() int { return e.totalTicks }

// Elapsed is the simulated time in seconds.
func (e *Engine) Elapsed() float64 { return float64(e.tick) * e.tickDuration }

// Scores returns the RED and BLUE scores.
func (e *Engine) Scores() (int, int) { return e.scoreRed, e.scoreBlue }

// ScoringTeam is the team whose zone is currently active.
func (e *Engine) ScoringTeam() field.Team { return e.scoringTeam }

// Result returns the outcome once the match has finished.
func (e *Engine) Result() (Result, bool) {
	if e.result == nil {
		return Result{}, false
	}
	return *e.result, true
}

// Stats returns the counters for the current match.
func (e *Engine) Stats() Stats { return e.stats }

// Config returns the normalized match configuration.
func (e *Engine) Config() Config { return e.cfg }

// RobotIDs lists the roster in spawn order.
func (e *Engine) RobotIDs() []string {
	ids := make([]string, len(e.robots))
	for i, r := range e.robots {
		ids[i] = r.ID()
	}
	return ids
}

func (e *Engine) robot(id string) (*agent.Robot, error) {
	r, ok := e.byID[id]
	if !ok {
		return nil, fmt.Errorf("robot %q: %w", id, ErrUnknownRobot)
	}
	return r, nil
}

// ConfigureRobot validates and applies cfg to robot id. Balls that no longer
// fit after a capacity cut are put back on the field next to the robot.
func (e *Engine) ConfigureRobot(id string, cfg agent.Config) error {
	r, err := e.robot(id)
	if err != nil {
		return err
	}
	excess, err := r.Configure(cfg)
	if err != nil {
		return err
	}
	for i := 0; i < excess; i++ {
		e.deposit(r.ID(), r.Position())
	}
	lifecycle.RobotConfigured(context.Background(), e.deps.Publisher, uint64(e.tick), robotRef(r), lifecycle.RobotConfiguredPayload{
		MaxBalls:      cfg.MaxBalls,
		ReturnedBalls: excess,
	}, nil)
	return nil
}

// PatchRobot applies the fields set in patch on top of the robot's current
// configuration.
func (e *Engine) PatchRobot(id string, patch agent.ConfigPatch) error {
	r, err := e.robot(id)
	if err != nil {
		return err
	}
	return e.ConfigureRobot(id, patch.Apply(r.Config()))
}

// SetRobotStrategy installs a fresh instance of the registered strategy into
// the robot's slot for mode.
func (e *Engine) SetRobotStrategy(id string, mode strategy.Mode, strategyID string) error {
	s, err := e.registry.New(strategyID)
	if err != nil {
		return err
	}
	return e.InstallStrategy(id, mode, s)
}

// InstallStrategy places s into the robot's slot for mode.
func (e *Engine) InstallStrategy(id string, mode strategy.Mode, s strategy.Strategy) error {
	r, err := e.robot(id)
	if err != nil {
		return err
	}
	if err := r.SetStrategy(mode, s); err != nil {
		return err
	}
	lifecycle.StrategyChanged(context.Background(), e.deps.Publisher, uint64(e.tick), robotRef(r), lifecycle.StrategyChangedPayload{
		Mode:     string(mode),
		Strategy: s.ID(),
	}, nil)
	return nil
}

// Registry exposes the strategy catalogue used by SetRobotStrategy.
func (e *Engine) Registry() *strategy.Registry { return e.registry }

func robotRef(r *agent.Robot) logging.EntityRef {
	return logging.EntityRef{ID: r.ID(), Kind: logging.EntityKindRobot}
}
