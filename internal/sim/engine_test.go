package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"ballfield/server/internal/agent"
	"ballfield/server/internal/field"
	"ballfield/server/internal/strategy"
	"ballfield/server/logging"
	matchlog "ballfield/server/logging/match"
	"ballfield/server/logging/sinks"
)

type scriptedStrategy struct {
	id   string
	move func(strategy.Robot, *field.Field) (field.Vec2, bool)
	act  func(strategy.Robot, *field.Field) strategy.Action
}

func (s *scriptedStrategy) ID() string     { return s.id }
func (s *scriptedStrategy) Status() string { return "scripted" }

func (s *scriptedStrategy) DecideMove(r strategy.Robot, f *field.Field) (field.Vec2, bool) {
	if s.move == nil {
		return field.Vec2{}, false
	}
	return s.move(r, f)
}

func (s *scriptedStrategy) DecideAction(r strategy.Robot, f *field.Field) strategy.Action {
	if s.act == nil {
		return strategy.None()
	}
	return s.act(r, f)
}

func holdStrategy() strategy.Strategy { return &scriptedStrategy{id: "hold"} }

func shootOnce(distance, angle float64) strategy.Strategy {
	return &scriptedStrategy{id: "shoot", act: func(r strategy.Robot, _ *field.Field) strategy.Action {
		if r.BallCount() > 0 {
			return strategy.Shoot(distance, angle)
		}
		return strategy.None()
	}}
}

func newTestEngine(t *testing.T, mutate func(*Config), opts ...EngineOption) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = "engine-test"
	cfg.InitialBalls = 0
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func holdAll(t *testing.T, e *Engine) {
	t.Helper()
	for _, id := range e.RobotIDs() {
		for _, mode := range []strategy.Mode{strategy.ModeScoring, strategy.ModeCollecting} {
			if err := e.InstallStrategy(id, mode, holdStrategy()); err != nil {
				t.Fatalf("install hold on %s: %v", id, err)
			}
		}
	}
}

func perfectAim(t *testing.T, e *Engine, id string) *agent.Robot {
	t.Helper()
	r, err := e.robot(id)
	if err != nil {
		t.Fatalf("robot %s: %v", id, err)
	}
	if err := r.SetAccuracy(1, 1); err != nil {
		t.Fatalf("set accuracy: %v", err)
	}
	return r
}

func assertZonesComplementary(t *testing.T, e *Engine) {
	t.Helper()
	active := 0
	for _, loc := range e.field.ScoringLocations() {
		if loc.Active {
			active++
			if loc.Team != e.ScoringTeam() {
				t.Fatalf("expected active zone to belong to %s, got %s", e.ScoringTeam(), loc.Team)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active zone, got %d", active)
	}
}

func TestNewEngineRoster(t *testing.T) {
	e := newTestEngine(t, nil)
	ids := e.RobotIDs()
	want := []string{"R1", "R2", "R3", "B1", "B2", "B3"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d robots, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected robot %d to be %s, got %s", i, want[i], ids[i])
		}
	}
	snap := e.Snapshot()
	for _, r := range snap.Robots {
		if r.Team == field.TeamRed && r.X != spawnInset {
			t.Fatalf("expected RED spawn at x=%v, got %v", spawnInset, r.X)
		}
		if r.Team == field.TeamBlue && r.X != float64(snap.Width)-spawnInset {
			t.Fatalf("expected BLUE spawn at x=%v, got %v", float64(snap.Width)-spawnInset, r.X)
		}
	}
	if snap.Robots[0].Y != 15.5 || snap.Robots[1].Y != 30.5 || snap.Robots[2].Y != 45.5 {
		t.Fatalf("unexpected RED spawn rows: %+v", snap.Robots[:3])
	}
	if snap.ScoringTeam != field.TeamBlue {
		t.Fatalf("expected BLUE to score first, got %s", snap.ScoringTeam)
	}
	if snap.Robots[3].Mode != strategy.ModeScoring || snap.Robots[0].Mode != strategy.ModeCollecting {
		t.Fatalf("expected BLUE scoring and RED collecting, got %s and %s", snap.Robots[3].Mode, snap.Robots[0].Mode)
	}
	if snap.State != StateIdle {
		t.Fatalf("expected idle engine, got %s", snap.State)
	}
}

func TestInitialBallsSeeded(t *testing.T) {
	e := newTestEngine(t, func(cfg *Config) { cfg.InitialBalls = DefaultInitialBalls })
	if got := e.field.BallCount(); got != DefaultInitialBalls {
		t.Fatalf("expected %d balls, got %d", DefaultInitialBalls, got)
	}
	for _, loc := range e.field.ScoringLocations() {
		if e.field.HasBall(loc.Cell) {
			t.Fatalf("expected scoring cell %+v to start empty", loc.Cell)
		}
	}
}

func TestTickIgnoredUnlessRunning(t *testing.T) {
	e := newTestEngine(t, nil)
	if e.Tick() {
		t.Fatalf("expected idle engine not to tick")
	}
	e.Start()
	if !e.Tick() {
		t.Fatalf("expected running engine to tick")
	}
	e.Stop()
	if e.State() != StatePaused {
		t.Fatalf("expected paused state, got %s", e.State())
	}
	if e.Tick() {
		t.Fatalf("expected paused engine not to tick")
	}
	e.Start()
	if !e.Tick() || e.Ticks() != 2 {
		t.Fatalf("expected resumed engine at tick 2, got %d", e.Ticks())
	}
}

func TestModeAlternation(t *testing.T) {
	e := newTestEngine(t, func(cfg *Config) { cfg.ScoringIntervalTicks = 5 })
	holdAll(t, e)
	e.Start()
	assertZonesComplementary(t, e)

	expect := map[int]field.Team{1: field.TeamBlue, 4: field.TeamBlue, 5: field.TeamRed, 9: field.TeamRed, 10: field.TeamBlue}
	for tick := 1; tick <= 10; tick++ {
		e.Tick()
		assertZonesComplementary(t, e)
		if want, ok := expect[tick]; ok && e.ScoringTeam() != want {
			t.Fatalf("tick %d: expected %s scoring, got %s", tick, want, e.ScoringTeam())
		}
		for _, r := range e.robots {
			wantMode := strategy.ModeCollecting
			if r.Team() == e.ScoringTeam() {
				wantMode = strategy.ModeScoring
			}
			if r.Mode() != wantMode {
				t.Fatalf("tick %d: expected %s in %s, got %s", tick, r.ID(), wantMode, r.Mode())
			}
		}
	}
	if got := e.Stats().ModeSwitches; got != 2 {
		t.Fatalf("expected 2 mode switches, got %d", got)
	}
}

func TestMatchTermination(t *testing.T) {
	ends := 0
	var final Result
	e := newTestEngine(t, func(cfg *Config) { cfg.DurationSeconds = 1 }, WithHooks(Hooks{
		OnMatchEnd: func(r Result) {
			ends++
			final = r
		},
	}))
	holdAll(t, e)
	e.Start()
	total := e.TotalTicks()
	if total != 20 {
		t.Fatalf("expected 20 ticks for one second, got %d", total)
	}
	for i := 0; i < total; i++ {
		if !e.Tick() {
			t.Fatalf("expected tick %d to advance", i+1)
		}
	}
	if ends != 0 {
		t.Fatalf("expected no result before the finishing call, got %d", ends)
	}
	if e.Tick() {
		t.Fatalf("expected finishing call not to advance")
	}
	for i := 0; i < 3; i++ {
		e.Tick()
	}
	if ends != 1 {
		t.Fatalf("expected result exactly once, got %d", ends)
	}
	if e.State() != StateFinished {
		t.Fatalf("expected finished state, got %s", e.State())
	}
	if e.Ticks() != total {
		t.Fatalf("expected ticks to stop at %d, got %d", total, e.Ticks())
	}
	if math.Abs(e.Elapsed()-1) > 1e-9 {
		t.Fatalf("expected elapsed 1s, got %v", e.Elapsed())
	}
	if final.Winner != WinnerTie {
		t.Fatalf("expected tie, got %s", final.Winner)
	}
	if res, ok := e.Result(); !ok || res != final {
		t.Fatalf("expected engine result %+v, got %+v (%v)", final, res, ok)
	}
	e.Start()
	if e.State() != StateFinished {
		t.Fatalf("expected start to be ignored after finish, got %s", e.State())
	}
}

func TestDecideWinner(t *testing.T) {
	tests := []struct {
		red, blue int
		want      Winner
	}{
		{3, 1, WinnerRed},
		{1, 3, WinnerBlue},
		{2, 2, WinnerTie},
		{0, 0, WinnerTie},
	}
	for _, tt := range tests {
		if got := decideWinner(tt.red, tt.blue); got != tt.want {
			t.Fatalf("expected %s for %d-%d, got %s", tt.want, tt.red, tt.blue, got)
		}
	}
}

func TestAccuracyBoundaryHasNoSpread(t *testing.T) {
	e := newTestEngine(t, nil)
	r, _ := e.robot("R1")
	if err := r.SetAccuracy(0.2, 1); err != nil {
		t.Fatalf("set accuracy: %v", err)
	}
	origin := field.Vec2{X: 10.5, Y: 10.5}
	r.SetPosition(origin)
	r.AddBall()
	if !e.shoot(r, 0, 1.2) {
		t.Fatalf("expected shot to fire")
	}
	flying := e.field.FlyingBalls()
	if len(flying) != 1 {
		t.Fatalf("expected one ball in flight, got %d", len(flying))
	}
	if flying[0].Target != origin {
		t.Fatalf("expected target %+v, got %+v", origin, flying[0].Target)
	}
	if r.BallCount() != 0 || r.ShotCooldown() != r.Config().BaseShotCooldown {
		t.Fatalf("expected empty inventory and reset cooldown, got %d balls cooldown %d", r.BallCount(), r.ShotCooldown())
	}
}

func TestShootRequiresBallAndCooldown(t *testing.T) {
	e := newTestEngine(t, nil)
	r, _ := e.robot("R1")
	if e.shoot(r, 3, 0) {
		t.Fatalf("expected empty robot not to shoot")
	}
	r.AddBall()
	r.AddBall()
	if !e.shoot(r, 3, 0) {
		t.Fatalf("expected first shot to fire")
	}
	if e.shoot(r, 3, 0) {
		t.Fatalf("expected cooldown to block second shot")
	}
	if r.BallCount() != 1 {
		t.Fatalf("expected one ball left, got %d", r.BallCount())
	}
}

func TestShootWithNonFiniteTargetLandsSafely(t *testing.T) {
	origin := field.Vec2{X: 10.5, Y: 10.5}
	cases := []struct {
		name     string
		distance float64
		angle    float64
		spread   float64
		want     field.Vec2
	}{
		{name: "nan distance", distance: math.NaN(), want: origin},
		{name: "infinite distance", distance: math.Inf(1), want: origin},
		{name: "negative infinite distance", distance: math.Inf(-1), angle: math.Pi / 2, want: origin},
		{name: "nan angle", distance: 3, angle: math.NaN(), want: origin},
		{name: "infinite spread", distance: 3, spread: math.Inf(1), want: field.Vec2{X: 13.5, Y: 10.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, nil)
			holdAll(t, e)
			if tc.spread != 0 {
				e.cfg.SpreadScale = tc.spread
			}
			r, _ := e.robot("R1")
			r.SetPosition(origin)
			r.AddBall()
			before := e.ballsInPlay()

			if !e.shoot(r, tc.distance, tc.angle) {
				t.Fatalf("expected shot to fire")
			}
			flights := e.field.FlyingBalls()
			if len(flights) != 1 || flights[0].Target != tc.want {
				t.Fatalf("expected one flight toward %+v, got %+v", tc.want, flights)
			}

			e.Start()
			for i := 0; i < 20 && e.field.FlyingCount() > 0; i++ {
				e.Tick()
			}
			if e.field.FlyingCount() != 0 {
				t.Fatalf("expected the ball to land")
			}
			if got := e.ballsInPlay(); got != before {
				t.Fatalf("expected %d balls in play, got %d", before, got)
			}
			if e.Stats().LostBalls != 0 {
				t.Fatalf("expected no lost balls, got %d", e.Stats().LostBalls)
			}
		})
	}
}

func TestLegalScore(t *testing.T) {
	e := newTestEngine(t, func(cfg *Config) { cfg.FirstScoringTeam = field.TeamRed })
	holdAll(t, e)
	r := perfectAim(t, e, "R1")
	r.SetPosition(field.Vec2{X: 20.5, Y: 30.5})
	r.AddBall()
	if err := e.InstallStrategy("R1", strategy.ModeScoring, shootOnce(4, 0)); err != nil {
		t.Fatalf("install: %v", err)
	}
	e.Start()

	for tick := 1; tick <= 4; tick++ {
		e.Tick()
		if red, _ := e.Scores(); red != 0 {
			t.Fatalf("tick %d: expected no score yet, got %d", tick, red)
		}
	}
	e.Tick()
	red, blue := e.Scores()
	if red != 1 || blue != 0 {
		t.Fatalf("expected 1-0 after flight, got %d-%d", red, blue)
	}
	if e.field.FlyingCount() != 0 {
		t.Fatalf("expected no balls in flight, got %d", e.field.FlyingCount())
	}
	balls := e.field.Balls()
	if len(balls) != 1 {
		t.Fatalf("expected one respawned ball, got %d", len(balls))
	}
	if !e.field.InNeutralZone(balls[0].Center().X) {
		t.Fatalf("expected respawn in neutral band, got %+v", balls[0])
	}
}

func TestRejectedScoreIsDeposited(t *testing.T) {
	tests := []struct {
		name       string
		scoring    field.Team
		start      field.Vec2
		distance   float64
		angle      float64
		wantReason string
	}{
		{
			name:       "wrong origin",
			scoring:    field.TeamRed,
			start:      field.Vec2{X: 40.5, Y: 30.5},
			distance:   16,
			angle:      math.Pi,
			wantReason: rejectWrongOrigin,
		},
		{
			name:       "inactive zone",
			scoring:    field.TeamBlue,
			start:      field.Vec2{X: 20.5, Y: 30.5},
			distance:   4,
			angle:      0,
			wantReason: rejectInactive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := sinks.NewMemorySink()
			e := newTestEngine(t, func(cfg *Config) { cfg.FirstScoringTeam = tt.scoring }, WithDeps(Deps{Publisher: sink}))
			holdAll(t, e)
			r := perfectAim(t, e, "R1")
			r.SetPosition(tt.start)
			r.AddBall()
			mode := strategy.ModeCollecting
			if tt.scoring == field.TeamRed {
				mode = strategy.ModeScoring
			}
			if err := e.InstallStrategy("R1", mode, shootOnce(tt.distance, tt.angle)); err != nil {
				t.Fatalf("install: %v", err)
			}
			e.Start()
			for i := 0; i < int(tt.distance)+2; i++ {
				e.Tick()
			}
			if red, blue := e.Scores(); red != 0 || blue != 0 {
				t.Fatalf("expected no score, got %d-%d", red, blue)
			}
			if !e.field.HasBall(field.Cell{Col: 24, Row: 31}) {
				t.Fatalf("expected ball deposited next to the scoring cell, balls=%v", e.field.Balls())
			}
			if e.field.BallCount() != 1 {
				t.Fatalf("expected exactly one ball on the grid, got %d", e.field.BallCount())
			}
			rejected := sink.OfType(matchlog.EventScoreRejected)
			if len(rejected) != 1 {
				t.Fatalf("expected one rejection event, got %d", len(rejected))
			}
			payload, ok := rejected[0].Payload.(matchlog.ScoreRejectedPayload)
			if !ok || payload.Reason != tt.wantReason {
				t.Fatalf("expected reason %s, got %+v", tt.wantReason, rejected[0].Payload)
			}
		})
	}
}

func TestLandingOnEmptyTileBecomesBall(t *testing.T) {
	e := newTestEngine(t, nil)
	holdAll(t, e)
	e.field.LaunchBall("R1", field.Vec2{X: 10.5, Y: 10.5}, field.Vec2{X: 12.5, Y: 10.5}, 1)
	e.Start()
	e.Tick()
	e.Tick()
	if !e.field.HasBall(field.Cell{Col: 12, Row: 10}) {
		t.Fatalf("expected ball on landing cell, got %v", e.field.Balls())
	}
}

func TestLandingOnBallSpillsToNeighbour(t *testing.T) {
	e := newTestEngine(t, nil)
	holdAll(t, e)
	e.field.SetTile(12.5, 10.5, field.TileBall)
	e.field.LaunchBall("R1", field.Vec2{X: 12.5, Y: 10.5}, field.Vec2{X: 12.5, Y: 10.5}, 1)
	e.Start()
	e.Tick()
	if !e.field.HasBall(field.Cell{Col: 12, Row: 11}) {
		t.Fatalf("expected spill to the cell below, got %v", e.field.Balls())
	}
	if e.Stats().Deposits != 1 {
		t.Fatalf("expected one deposit, got %d", e.Stats().Deposits)
	}
}

func TestLandingWithNoRoomLosesBall(t *testing.T) {
	sink := sinks.NewMemorySink()
	e := newTestEngine(t, func(cfg *Config) { cfg.LandingSearchRadius = 1 }, WithDeps(Deps{Publisher: sink}))
	holdAll(t, e)
	for col := 9; col <= 11; col++ {
		for row := 9; row <= 11; row++ {
			e.field.SetTileAtCell(field.Cell{Col: col, Row: row}, field.TileBall)
		}
	}
	before := e.ballsInPlay()
	e.field.LaunchBall("R1", field.Vec2{X: 10.5, Y: 10.5}, field.Vec2{X: 10.5, Y: 10.5}, 1)
	e.Start()
	e.Tick()
	if got := e.ballsInPlay(); got != before {
		t.Fatalf("expected lost ball to leave %d in play, got %d", before, got)
	}
	if e.Stats().LostBalls != 1 {
		t.Fatalf("expected one lost ball, got %d", e.Stats().LostBalls)
	}
	if len(sink.OfType(matchlog.EventBallLost)) != 1 {
		t.Fatalf("expected a lost ball event")
	}
}

func TestCollectThenDrop(t *testing.T) {
	e := newTestEngine(t, nil)
	r, _ := e.robot("R1")
	r.SetPosition(field.Vec2{X: 10.5, Y: 10.5})
	e.field.SetTile(10.5, 10.5, field.TileBall)

	if !e.collect(r) {
		t.Fatalf("expected collect to succeed")
	}
	if r.BallCount() != 1 {
		t.Fatalf("expected 1 ball held, got %d", r.BallCount())
	}
	if e.field.TileAt(10.5, 10.5) != field.TileEmpty {
		t.Fatalf("expected tile emptied by collect")
	}

	r.SetPosition(field.Vec2{X: 11.5, Y: 10.5})
	if !e.drop(r) {
		t.Fatalf("expected drop to succeed")
	}
	if r.BallCount() != 0 {
		t.Fatalf("expected 0 balls held, got %d", r.BallCount())
	}
	if e.field.TileAt(11.5, 10.5) != field.TileBall {
		t.Fatalf("expected dropped ball on tile")
	}
	if e.drop(r) {
		t.Fatalf("expected drop with empty inventory to fail")
	}
}

func TestCollectRespectsCapacity(t *testing.T) {
	e := newTestEngine(t, nil)
	r, _ := e.robot("R1")
	for r.AddBall() {
	}
	r.SetPosition(field.Vec2{X: 10.5, Y: 10.5})
	e.field.SetTile(10.5, 10.5, field.TileBall)
	if e.collect(r) {
		t.Fatalf("expected full robot not to collect")
	}
	if e.field.TileAt(10.5, 10.5) != field.TileBall {
		t.Fatalf("expected ball to stay on the tile")
	}
}

func TestBallConservation(t *testing.T) {
	e := newTestEngine(t, func(cfg *Config) { cfg.InitialBalls = DefaultInitialBalls })
	initial := e.ballsInPlay()
	if initial != DefaultInitialBalls {
		t.Fatalf("expected %d balls, got %d", DefaultInitialBalls, initial)
	}
	e.Start()
	for i := 0; i < 900; i++ {
		e.Tick()
		if got, want := e.ballsInPlay(), initial-e.Stats().LostBalls; got != want {
			t.Fatalf("tick %d: expected %d balls in play, got %d", e.Ticks(), want, got)
		}
	}
	if e.Stats().Collected == 0 {
		t.Fatalf("expected the default strategies to collect balls")
	}
}

func snapshotHash(t *testing.T, snap Snapshot) string {
	t.Helper()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func runSeeded(t *testing.T, seed string, ticks int) *Engine {
	t.Helper()
	e := newTestEngine(t, func(cfg *Config) {
		cfg.Seed = seed
		cfg.InitialBalls = DefaultInitialBalls
	})
	e.Start()
	for i := 0; i < ticks; i++ {
		e.Tick()
	}
	return e
}

func TestDeterministicReplay(t *testing.T) {
	a := runSeeded(t, "replay", 500)
	b := runSeeded(t, "replay", 500)
	if ha, hb := snapshotHash(t, a.Snapshot()), snapshotHash(t, b.Snapshot()); ha != hb {
		t.Fatalf("expected identical snapshots for the same seed, got %s and %s", ha, hb)
	}
	if a.Stats() != b.Stats() {
		t.Fatalf("expected identical stats, got %+v and %+v", a.Stats(), b.Stats())
	}

	c := runSeeded(t, "another-seed", 0)
	d := runSeeded(t, "replay", 0)
	if snapshotHash(t, c.Snapshot()) == snapshotHash(t, d.Snapshot()) {
		t.Fatalf("expected different seeds to lay out different fields")
	}
}

func TestResetPreservesConfiguration(t *testing.T) {
	registry := strategy.DefaultRegistry()
	registry.MustRegister(strategy.Descriptor{ID: "hold", Name: "Hold", Mode: strategy.ModeCollecting, New: holdStrategy})
	e := newTestEngine(t, nil, WithRegistry(registry))

	cfg := agent.DefaultConfig()
	cfg.MaxBalls = 5
	if err := e.ConfigureRobot("R1", cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := e.SetRobotStrategy("R1", strategy.ModeCollecting, "hold"); err != nil {
		t.Fatalf("set strategy: %v", err)
	}
	e.Start()
	for i := 0; i < 30; i++ {
		e.Tick()
	}

	if err := e.Reset(true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	r, _ := e.robot("R1")
	if r.MaxBalls() != 5 {
		t.Fatalf("expected preserved capacity 5, got %d", r.MaxBalls())
	}
	if got := r.Strategy(strategy.ModeCollecting).ID(); got != "hold" {
		t.Fatalf("expected preserved strategy hold, got %s", got)
	}
	if e.State() != StateIdle || e.Ticks() != 0 || r.Position() != r.Spawn() {
		t.Fatalf("expected fresh idle match, got state=%s tick=%d pos=%+v", e.State(), e.Ticks(), r.Position())
	}

	if err := e.Reset(false); err != nil {
		t.Fatalf("reset: %v", err)
	}
	r, _ = e.robot("R1")
	if r.MaxBalls() != agent.DefaultMaxBalls {
		t.Fatalf("expected default capacity, got %d", r.MaxBalls())
	}
	if got := r.Strategy(strategy.ModeCollecting).ID(); got != strategy.BasicCollectorNoShootID {
		t.Fatalf("expected default collector, got %s", got)
	}
}

func TestRobotOverridesApplied(t *testing.T) {
	custom := agent.DefaultConfig()
	custom.MoveSpeed = 5
	e := newTestEngine(t, func(cfg *Config) {
		cfg.Robots = map[string]RobotOverride{"B2": {Name: "Striker", Config: &custom}}
	})
	r, _ := e.robot("B2")
	if r.Name() != "Striker" || r.Config().MoveSpeed != 5 {
		t.Fatalf("expected override applied, got name=%s speed=%v", r.Name(), r.Config().MoveSpeed)
	}

	_, err := NewEngine(func() Config {
		cfg := DefaultConfig()
		cfg.Robots = map[string]RobotOverride{"R1": {ScoringStrategy: "missing"}}
		return cfg
	}())
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected unknown strategy error, got %v", err)
	}
}

func TestSetterValidation(t *testing.T) {
	e := newTestEngine(t, nil)
	bad := agent.DefaultConfig()
	bad.MoveSpeed = -1
	if err := e.ConfigureRobot("R1", bad); !errors.Is(err, agent.ErrInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
	if err := e.ConfigureRobot("X9", agent.DefaultConfig()); !errors.Is(err, ErrUnknownRobot) {
		t.Fatalf("expected unknown robot error, got %v", err)
	}
	if err := e.SetRobotStrategy("R1", strategy.ModeScoring, "nope"); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected unknown strategy error, got %v", err)
	}
	r, _ := e.robot("R1")
	if r.Config().MoveSpeed != agent.DefaultMoveSpeed {
		t.Fatalf("expected rejected config to leave speed unchanged, got %v", r.Config().MoveSpeed)
	}
}

func TestShrinkingCapacityReturnsBalls(t *testing.T) {
	e := newTestEngine(t, nil)
	r, _ := e.robot("R1")
	r.SetPosition(field.Vec2{X: 10.5, Y: 10.5})
	for r.AddBall() {
	}
	before := e.ballsInPlay()
	cfg := r.Config()
	cfg.MaxBalls = 1
	if err := e.ConfigureRobot("R1", cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if r.BallCount() != 1 {
		t.Fatalf("expected 1 ball held, got %d", r.BallCount())
	}
	if e.field.BallCount() != before-1 {
		t.Fatalf("expected %d balls returned to the grid, got %d", before-1, e.field.BallCount())
	}
	if e.ballsInPlay() != before {
		t.Fatalf("expected %d balls in play, got %d", before, e.ballsInPlay())
	}
}

func TestPatchRobotKeepsUnsetFields(t *testing.T) {
	e := newTestEngine(t, nil)
	r, _ := e.robot("R1")
	r.SetPosition(field.Vec2{X: 10.5, Y: 10.5})
	r.AddBall()
	before := r.Config()

	speed := 5.0
	if err := e.PatchRobot("R1", agent.ConfigPatch{MoveSpeed: &speed}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	want := before
	want.MoveSpeed = 5
	if got := r.Config(); got != want {
		t.Fatalf("expected only move speed to change, got %+v want %+v", got, want)
	}
	if r.BallCount() != 1 {
		t.Fatalf("expected held ball to be kept, got %d", r.BallCount())
	}

	// Valid on its own but below the robot's current AccuracyMin.
	hi := before.AccuracyMin - 0.1
	if err := e.PatchRobot("R1", agent.ConfigPatch{AccuracyMax: &hi}); !errors.Is(err, agent.ErrInvalidConfig) {
		t.Fatalf("expected merged accuracy bounds to be validated, got %v", err)
	}
	if got := r.Config(); got != want {
		t.Fatalf("expected rejected patch to leave config untouched, got %+v", got)
	}
	if err := e.PatchRobot("X9", agent.ConfigPatch{MoveSpeed: &speed}); !errors.Is(err, ErrUnknownRobot) {
		t.Fatalf("expected unknown robot, got %v", err)
	}
}

func TestApplyCommands(t *testing.T) {
	e := newTestEngine(t, nil)
	distance := 15.0
	err := e.Apply([]Command{
		{Type: CommandConfigure, RobotID: "B1", Configure: &agent.ConfigPatch{MaxShootDistance: &distance}},
		{Type: CommandStrategy, RobotID: "B1", Strategy: &StrategyCommand{Mode: strategy.ModeScoring, StrategyID: "unknown"}},
		{Type: CommandStart},
	})
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected joined unknown strategy error, got %v", err)
	}
	r, _ := e.robot("B1")
	if r.MaxShootDistance() != 15 {
		t.Fatalf("expected configure applied, got %v", r.MaxShootDistance())
	}
	if e.State() != StateRunning {
		t.Fatalf("expected start applied after the failing command, got %s", e.State())
	}
	if err := e.Apply([]Command{{Type: CommandConfigure, RobotID: "B1"}}); !errors.Is(err, ErrMalformedCommand) {
		t.Fatalf("expected malformed command error, got %v", err)
	}
}

func TestMatchEventsPublished(t *testing.T) {
	sink := sinks.NewMemorySink()
	e := newTestEngine(t, func(cfg *Config) {
		cfg.DurationSeconds = 1
		cfg.ScoringIntervalTicks = 8
	}, WithDeps(Deps{Publisher: logging.WithMatch(sink, "match-1")}))
	holdAll(t, e)
	e.Start()
	e.Start()
	for e.Tick() {
	}
	e.Tick()

	if got := len(sink.OfType(matchlog.EventStarted)); got != 1 {
		t.Fatalf("expected one start event, got %d", got)
	}
	if got := len(sink.OfType(matchlog.EventModeSwitched)); got != 2 {
		t.Fatalf("expected two mode switches, got %d", got)
	}
	ended := sink.OfType(matchlog.EventEnded)
	if len(ended) != 1 {
		t.Fatalf("expected one end event, got %d", len(ended))
	}
	if ended[0].MatchID != "match-1" || ended[0].Tick != 20 {
		t.Fatalf("unexpected end event %+v", ended[0])
	}
}
