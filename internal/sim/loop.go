package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"ballfield/server/internal/telemetry"
	"ballfield/server/logging"
	"ballfield/server/logging/simulation"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-robot
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

const (
	DefaultFrameRate       = 60
	DefaultMaxFrameDelta   = 100 * time.Millisecond
	DefaultCommandCapacity = 64
	DefaultPerRobotLimit   = 8
	MaxPlaybackSpeed       = 64.0
)

// ErrInvalidPlaybackSpeed is returned for non-positive or non-finite speeds.
var ErrInvalidPlaybackSpeed = errors.New("sim: invalid playback speed")

// LoopConfig tunes the pacing of the real-time loop.
type LoopConfig struct {
	// FrameRate is how often per second the loop wakes to accumulate time.
	FrameRate int `json:"frameRate" yaml:"frameRate"`
	// PlaybackSpeed multiplies the tick rate.
	PlaybackSpeed float64 `json:"playbackSpeed" yaml:"playbackSpeed"`
	// MaxFrameDelta caps the wall time credited to one frame.
	MaxFrameDelta time.Duration `json:"maxFrameDelta" yaml:"maxFrameDelta"`
	// CatchupMaxTicks caps the ticks run in one frame. Hitting the cap
	// discards the remaining backlog. Zero means two seconds of ticks.
	CatchupMaxTicks int `json:"catchupMaxTicks" yaml:"catchupMaxTicks"`
	CommandCapacity int `json:"commandCapacity" yaml:"commandCapacity"`
	PerRobotLimit   int `json:"perRobotLimit" yaml:"perRobotLimit"`
}

// DefaultLoopConfig paces the match in real time at normal speed.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		FrameRate:       DefaultFrameRate,
		PlaybackSpeed:   1,
		MaxFrameDelta:   DefaultMaxFrameDelta,
		CommandCapacity: DefaultCommandCapacity,
		PerRobotLimit:   DefaultPerRobotLimit,
	}
}

func (c LoopConfig) normalized(tickRate int) LoopConfig {
	def := DefaultLoopConfig()
	if c.FrameRate <= 0 {
		c.FrameRate = def.FrameRate
	}
	if !validSpeed(c.PlaybackSpeed) {
		c.PlaybackSpeed = def.PlaybackSpeed
	}
	if c.MaxFrameDelta <= 0 {
		c.MaxFrameDelta = def.MaxFrameDelta
	}
	if c.CatchupMaxTicks <= 0 {
		c.CatchupMaxTicks = 2 * tickRate
	}
	if c.CommandCapacity <= 0 {
		c.CommandCapacity = def.CommandCapacity
	}
	if c.PerRobotLimit < 0 {
		c.PerRobotLimit = 0
	}
	return c
}

func validSpeed(v float64) bool {
	return v > 0 && v <= MaxPlaybackSpeed && !math.IsNaN(v)
}

// LoopHooks are invoked from the loop goroutine.
type LoopHooks struct {
	// AfterStep runs after every frame that simulated at least one tick or
	// applied a command.
	AfterStep func(LoopStepResult)
	// OnCommandDrop runs when Enqueue rejects a command.
	OnCommandDrop func(reason string, cmd Command)
	// OnCommandError runs when an applied command fails validation.
	OnCommandError func(commands []Command, err error)
}

// LoopStepResult describes one frame of the loop.
type LoopStepResult struct {
	Frame         uint64
	Now           time.Time
	Delta         float64
	Ticks         int
	Commands      []Command
	Snapshot      Snapshot
	Duration      time.Duration
	Budget        time.Duration
	ClampedDelta  bool
	CatchupCapped bool
	Finished      bool
}

// Loop owns an engine and paces it against the wall clock. All access to the
// engine goes through the loop, which serialises it with a mutex; commands
// from other goroutines are staged and applied at the start of the next
// frame.
type Loop struct {
	mu          sync.Mutex
	engine      *Engine
	accumulator float64
	speed       float64
	frame       uint64

	buffer    *CommandBuffer
	hooks     LoopHooks
	config    LoopConfig
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	clock     logging.Clock

	dropMu     sync.Mutex
	dropCounts map[string]uint64

	overrunStreak uint64
}

// NewLoop wraps the engine with a command queue and the frame pacer.
func NewLoop(engine *Engine, cfg LoopConfig, hooks LoopHooks) *Loop {
	if engine == nil {
		return nil
	}
	deps := engine.deps
	cfg = cfg.normalized(engine.cfg.TickRate)
	return &Loop{
		engine:     engine,
		speed:      cfg.PlaybackSpeed,
		buffer:     NewCommandBuffer(cfg.CommandCapacity, cfg.PerRobotLimit, deps.Metrics),
		hooks:      hooks,
		config:     cfg,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		publisher:  deps.Publisher,
		clock:      deps.Clock,
		dropCounts: make(map[string]uint64),
	}
}

// Snapshot returns the engine state under the loop lock.
func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Snapshot()
}

// Stats returns the engine counters under the loop lock.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Stats()
}

// Do runs fn with exclusive access to the engine.
func (l *Loop) Do(fn func(*Engine) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.engine)
}

// PlaybackSpeed reports the current tick rate multiplier.
func (l *Loop) PlaybackSpeed() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.speed
}

// SetPlaybackSpeed changes the tick rate multiplier from the next frame.
func (l *Loop) SetPlaybackSpeed(speed float64) error {
	if !validSpeed(speed) {
		return fmt.Errorf("speed %v: %w", speed, ErrInvalidPlaybackSpeed)
	}
	l.mu.Lock()
	l.speed = speed
	l.mu.Unlock()
	return nil
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-robot throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = l.clock.Now()
	}
	if reason := l.buffer.Push(cmd); reason != "" {
		l.reportDrop(reason, cmd, l.incrementDrop(cmd.RobotID))
		return false, reason
	}
	return true, ""
}

// Step applies staged commands and simulates exactly one tick, ignoring
// pacing. It is meant for headless runs and tests.
func (l *Loop) Step() bool {
	commands := l.drainCommands()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyLocked(commands)
	return l.engine.Tick()
}

// Advance credits dt seconds of wall time to the accumulator and runs the
// ticks it pays for, after applying staged commands.
func (l *Loop) Advance(now time.Time, dt float64) LoopStepResult {
	commands := l.drainCommands()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.frame++
	l.applyLocked(commands)

	result := LoopStepResult{Frame: l.frame, Now: now, Delta: dt, Commands: commands}
	e := l.engine
	if e.State() != StateRunning {
		l.accumulator = 0
		result.Snapshot = e.Snapshot()
		result.Finished = e.State() == StateFinished
		return result
	}

	l.accumulator += dt * float64(e.cfg.TickRate) * l.speed
	for l.accumulator >= 1 && e.State() == StateRunning && result.Ticks < l.config.CatchupMaxTicks {
		e.Tick()
		l.accumulator--
		result.Ticks++
	}
	if result.Ticks >= l.config.CatchupMaxTicks {
		l.accumulator = 0
		result.CatchupCapped = true
		simulation.BacklogDiscarded(context.Background(), l.publisher, uint64(e.Ticks()), simulation.BacklogDiscardedPayload{
			TicksRun:      result.Ticks,
			CatchupCap:    l.config.CatchupMaxTicks,
			PlaybackSpeed: l.speed,
		}, nil)
	}
	if e.State() == StateRunning && e.Ticks() >= e.TotalTicks() {
		// Finish on the frame that simulated the last tick rather than
		// waiting for the next one.
		e.Tick()
	}
	result.Snapshot = e.Snapshot()
	result.Finished = e.State() == StateFinished
	return result
}

// Run drives the loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil {
		return nil
	}
	interval := time.Second / time.Duration(l.config.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := l.clock.Now()
	maxDt := l.config.MaxFrameDelta.Seconds()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := l.clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt < 0 {
				dt = 0
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			start := l.clock.Now()
			result := l.Advance(now, dt)
			result.Duration = l.clock.Now().Sub(start)
			result.Budget = interval
			result.ClampedDelta = clamped
			l.checkBudget(result)

			if l.hooks.AfterStep != nil && (result.Ticks > 0 || len(result.Commands) > 0) {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) checkBudget(result LoopStepResult) {
	if result.Budget <= 0 || result.Duration <= result.Budget {
		l.overrunStreak = 0
		return
	}
	l.overrunStreak++
	simulation.TickBudgetOverrun(context.Background(), l.publisher, uint64(result.Snapshot.Tick), simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         l.overrunStreak,
	}, nil)
}

func (l *Loop) applyLocked(commands []Command) {
	if len(commands) == 0 {
		return
	}
	if err := l.engine.Apply(commands); err != nil {
		if l.logger != nil {
			l.logger.Warnf("[commands] %v", err)
		}
		if l.hooks.OnCommandError != nil {
			l.hooks.OnCommandError(commands, err)
		}
	}
}

func (l *Loop) drainCommands() []Command {
	return l.buffer.Drain()
}

func (l *Loop) incrementDrop(robotID string) uint64 {
	if robotID == "" {
		return 0
	}
	l.dropMu.Lock()
	defer l.dropMu.Unlock()
	count := l.dropCounts[robotID] + 1
	l.dropCounts[robotID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 && l.logger != nil {
		l.logger.Printf(
			"[backpressure] dropping command robot=%s type=%s count=%d reason=%s",
			cmd.RobotID,
			cmd.Type,
			count,
			reason,
		)
	}
}
