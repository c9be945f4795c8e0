// Package match hosts a single live match: the engine, its real-time loop,
// the snapshot subscribers watching it and the recording of its result.
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ballfield/server/internal/agent"
	"ballfield/server/internal/results"
	"ballfield/server/internal/sim"
	"ballfield/server/internal/strategy"
	"ballfield/server/internal/telemetry"
	"ballfield/server/logging"
)

const (
	DefaultBroadcastInterval = 100 * time.Millisecond
	DefaultSubscriberBuffer  = 4
	recordTimeout            = 5 * time.Second
)

// ErrClosed is returned by operations on a session whose loop has stopped.
var ErrClosed = errors.New("match: session closed")

// Config assembles one session.
type Config struct {
	Match sim.Config     `json:"match" yaml:"match"`
	Loop  sim.LoopConfig `json:"loop" yaml:"loop"`
	// BroadcastInterval throttles snapshot fan-out to subscribers. The frame
	// that finishes the match is always broadcast.
	BroadcastInterval time.Duration `json:"broadcastInterval" yaml:"broadcastInterval"`
}

// DefaultConfig returns the standard match with real-time pacing.
func DefaultConfig() Config {
	return Config{
		Match:             sim.DefaultConfig(),
		Loop:              sim.DefaultLoopConfig(),
		BroadcastInterval: DefaultBroadcastInterval,
	}
}

// Deps are the shared services a session uses.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
	Store     results.Store
	Registry  *strategy.Registry
	// NewID generates match ids. Defaults to random UUIDs.
	NewID func() string
}

type subscriber struct {
	ch chan sim.Snapshot
}

// Session owns a running match. It is safe for concurrent use.
type Session struct {
	cfg    Config
	deps   Deps
	engine *sim.Engine
	loop   *sim.Loop

	id atomic.Value

	mu            sync.Mutex
	subscribers   map[uint64]*subscriber
	nextSub       uint64
	lastBroadcast time.Time
	recorded      []results.Record
}

// New builds an idle session. Call Run to drive it in real time or RunToEnd
// to simulate it as fast as possible.
func New(cfg Config, deps Deps) (*Session, error) {
	if deps.Logger == nil {
		deps.Logger = telemetry.NopLogger()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.NewString() }
	}
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = DefaultBroadcastInterval
	}

	s := &Session{
		cfg:         cfg,
		deps:        deps,
		subscribers: make(map[uint64]*subscriber),
	}
	s.id.Store(deps.NewID())

	opts := []sim.EngineOption{
		sim.WithDeps(sim.Deps{
			Logger:    deps.Logger,
			Metrics:   deps.Metrics,
			Publisher: logging.PublisherFunc(s.publish),
			Clock:     deps.Clock,
		}),
		sim.WithHooks(sim.Hooks{OnMatchEnd: s.recordResult}),
	}
	if deps.Registry != nil {
		opts = append(opts, sim.WithRegistry(deps.Registry))
	}
	engine, err := sim.NewEngine(cfg.Match, opts...)
	if err != nil {
		return nil, fmt.Errorf("new match: %w", err)
	}
	s.engine = engine
	s.loop = sim.NewLoop(engine, cfg.Loop, sim.LoopHooks{
		AfterStep: s.afterStep,
		OnCommandError: func(_ []sim.Command, err error) {
			deps.Logger.Warnf("[match %s] command failed: %v", s.ID(), err)
		},
	})
	return s, nil
}

// publish stamps engine events with the current match id. The id changes on
// reset, so it is read per event.
func (s *Session) publish(ctx context.Context, event logging.Event) {
	if event.MatchID == "" {
		event.MatchID = s.ID()
	}
	s.deps.Publisher.Publish(ctx, event)
}

// ID is the identifier of the current match. Reset starts a new match with
// a new id.
func (s *Session) ID() string {
	id, _ := s.id.Load().(string)
	return id
}

// Config returns the configuration the session was built with.
func (s *Session) Config() Config { return s.cfg }

// Loop exposes the pacing loop.
func (s *Session) Loop() *sim.Loop { return s.loop }

// Snapshot returns the current match state.
func (s *Session) Snapshot() sim.Snapshot { return s.loop.Snapshot() }

// Stats returns the engine counters.
func (s *Session) Stats() sim.Stats { return s.loop.Stats() }

// Strategies lists the strategies robots can be switched to.
func (s *Session) Strategies() []strategy.Descriptor {
	var out []strategy.Descriptor
	_ = s.loop.Do(func(e *sim.Engine) error {
		out = e.Registry().Descriptors()
		return nil
	})
	return out
}

// Enqueue stages a command for the next frame.
func (s *Session) Enqueue(cmd sim.Command) (bool, string) {
	return s.loop.Enqueue(cmd)
}

// Start queues a start command.
func (s *Session) Start() (bool, string) {
	return s.loop.Enqueue(sim.Command{Type: sim.CommandStart})
}

// Stop queues a pause command.
func (s *Session) Stop() (bool, string) {
	return s.loop.Enqueue(sim.Command{Type: sim.CommandStop})
}

// Reset rebuilds the match immediately and assigns it a new id.
func (s *Session) Reset(preserveConfig bool) error {
	err := s.loop.Do(func(e *sim.Engine) error {
		s.id.Store(s.deps.NewID())
		return e.Reset(preserveConfig)
	})
	if err != nil {
		return err
	}
	s.broadcast(s.loop.Snapshot(), true)
	return nil
}

// SetPlaybackSpeed changes how fast simulated time runs against wall time.
func (s *Session) SetPlaybackSpeed(speed float64) error {
	return s.loop.SetPlaybackSpeed(speed)
}

// ConfigureRobot merges patch onto the robot's configuration, validates the
// result and applies it before the next tick.
func (s *Session) ConfigureRobot(id string, patch agent.ConfigPatch) error {
	return s.loop.Do(func(e *sim.Engine) error {
		return e.PatchRobot(id, patch)
	})
}

// SetRobotStrategy switches the strategy a robot uses in mode.
func (s *Session) SetRobotStrategy(id string, mode strategy.Mode, strategyID string) error {
	return s.loop.Do(func(e *sim.Engine) error {
		return e.SetRobotStrategy(id, mode, strategyID)
	})
}

// Subscribe registers a receiver of snapshots. Slow subscribers miss
// snapshots rather than stall the loop. The returned function unsubscribes
// and closes the channel.
func (s *Session) Subscribe(buffer int) (<-chan sim.Snapshot, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	sub := &subscriber{ch: make(chan sim.Snapshot, buffer)}

	s.mu.Lock()
	s.nextSub++
	key := s.nextSub
	s.subscribers[key] = sub
	s.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subscribers[key]; ok {
				delete(s.subscribers, key)
				close(sub.ch)
			}
			s.mu.Unlock()
		})
	}
}

// SubscriberCount reports the number of live subscribers.
func (s *Session) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Run drives the match in real time until ctx is cancelled. Subscribers are
// released when it returns.
func (s *Session) Run(ctx context.Context) error {
	defer s.closeSubscribers()
	err := s.loop.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// RunToEnd starts the match if needed and simulates it without pacing until
// it finishes.
func (s *Session) RunToEnd(ctx context.Context) (sim.Result, error) {
	if _, reason := s.Start(); reason != "" {
		return sim.Result{}, fmt.Errorf("start match %s: %s", s.ID(), reason)
	}
	for i := 0; ; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return sim.Result{}, err
			}
		}
		if !s.loop.Step() {
			break
		}
	}
	var (
		result sim.Result
		ok     bool
	)
	_ = s.loop.Do(func(e *sim.Engine) error {
		result, ok = e.Result()
		return nil
	})
	if !ok {
		return sim.Result{}, fmt.Errorf("match %s stopped before finishing", s.ID())
	}
	s.broadcast(s.loop.Snapshot(), true)
	return result, nil
}

// Recorded returns the result records written by this session.
func (s *Session) Recorded() []results.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]results.Record, len(s.recorded))
	copy(out, s.recorded)
	return out
}

func (s *Session) afterStep(step sim.LoopStepResult) {
	s.broadcast(step.Snapshot, step.Finished)
}

func (s *Session) broadcast(snap sim.Snapshot, force bool) {
	now := s.deps.Clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force && now.Sub(s.lastBroadcast) < s.cfg.BroadcastInterval {
		return
	}
	s.lastBroadcast = now
	for _, sub := range s.subscribers {
		select {
		case sub.ch <- snap:
		default:
		}
	}
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sub := range s.subscribers {
		delete(s.subscribers, key)
		close(sub.ch)
	}
}

// recordResult runs inside Tick while the loop lock is held, so it reads the
// engine directly instead of going through the loop.
func (s *Session) recordResult(res sim.Result) {
	stats := s.engine.Stats()
	rec := results.Record{
		MatchID:    s.ID(),
		Seed:       s.engine.Config().Seed,
		Winner:     string(res.Winner),
		ScoreRed:   res.ScoreRed,
		ScoreBlue:  res.ScoreBlue,
		Ticks:      stats.Ticks,
		Shots:      stats.Shots,
		LostBalls:  stats.LostBalls,
		FinishedAt: s.deps.Clock.Now().UTC(),
	}
	s.mu.Lock()
	s.recorded = append(s.recorded, rec)
	s.mu.Unlock()

	s.deps.Logger.Printf("[match %s] finished %s %d-%d after %d ticks", rec.MatchID, rec.Winner, rec.ScoreRed, rec.ScoreBlue, rec.Ticks)
	if s.deps.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.deps.Store.Record(ctx, rec); err != nil {
		s.deps.Logger.Warnf("[match %s] failed to record result: %v", rec.MatchID, err)
	}
}
