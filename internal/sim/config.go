package sim

import (
	"math"
	"strings"

	"ballfield/server/internal/agent"
	"ballfield/server/internal/field"
	"ballfield/server/internal/simutil"
)

const (
	DefaultTickRate             = 20
	DefaultDurationSeconds      = 220.0
	DefaultScoringIntervalTicks = 20 * DefaultTickRate
	DefaultBallSpeed            = 20.0
	DefaultSpreadScale          = 2.0
	DefaultInitialBalls         = 400
	DefaultRobotsPerTeam        = 3
	DefaultFirstScoringTeam     = field.TeamBlue
)

// RobotOverride customises a single robot by id. Empty strategy ids keep the
// defaults for that mode.
type RobotOverride struct {
	Name               string        `json:"name,omitempty" yaml:"name,omitempty"`
	ScoringStrategy    string        `json:"scoringStrategy,omitempty" yaml:"scoringStrategy,omitempty"`
	CollectingStrategy string        `json:"collectingStrategy,omitempty" yaml:"collectingStrategy,omitempty"`
	Config             *agent.Config `json:"config,omitempty" yaml:"config,omitempty"`
}

// Config describes one match.
type Config struct {
	Seed     string `json:"seed" yaml:"seed"`
	TickRate int    `json:"tickRate" yaml:"tickRate"`
	// DurationSeconds is converted to a whole number of ticks.
	DurationSeconds      float64    `json:"durationSeconds" yaml:"durationSeconds"`
	ScoringIntervalTicks int        `json:"scoringIntervalTicks" yaml:"scoringIntervalTicks"`
	FirstScoringTeam     field.Team `json:"firstScoringTeam" yaml:"firstScoringTeam"`
	// BallSpeed is measured in tiles per second.
	BallSpeed   float64 `json:"ballSpeed" yaml:"ballSpeed"`
	SpreadScale float64 `json:"spreadScale" yaml:"spreadScale"`
	// LandingSearchRadius bounds the search for a deposit cell when a ball
	// lands somewhere it cannot rest. Zero searches the whole field.
	LandingSearchRadius int `json:"landingSearchRadius" yaml:"landingSearchRadius"`
	InitialBalls        int `json:"initialBalls" yaml:"initialBalls"`
	RobotsPerTeam       int `json:"robotsPerTeam" yaml:"robotsPerTeam"`

	Layout field.Layout             `json:"layout" yaml:"layout"`
	Robot  agent.Config             `json:"robot" yaml:"robot"`
	Tuning agent.Tuning             `json:"tuning" yaml:"tuning"`
	Robots map[string]RobotOverride `json:"robots,omitempty" yaml:"robots,omitempty"`
}

// DefaultConfig returns the standard competition settings.
func DefaultConfig() Config {
	return Config{
		Seed:                 simutil.DefaultSeed,
		TickRate:             DefaultTickRate,
		DurationSeconds:      DefaultDurationSeconds,
		ScoringIntervalTicks: DefaultScoringIntervalTicks,
		FirstScoringTeam:     DefaultFirstScoringTeam,
		BallSpeed:            DefaultBallSpeed,
		SpreadScale:          DefaultSpreadScale,
		InitialBalls:         DefaultInitialBalls,
		RobotsPerTeam:        DefaultRobotsPerTeam,
		Layout:               field.DefaultLayout(),
		Robot:                agent.DefaultConfig(),
		Tuning:               agent.DefaultTuning(),
	}
}

func (cfg Config) normalized() Config {
	n := cfg
	n.Seed = strings.TrimSpace(n.Seed)
	if n.Seed == "" {
		n.Seed = simutil.DefaultSeed
	}
	if n.TickRate <= 0 {
		n.TickRate = DefaultTickRate
	}
	if !(n.DurationSeconds > 0) || math.IsInf(n.DurationSeconds, 0) {
		n.DurationSeconds = DefaultDurationSeconds
	}
	if n.ScoringIntervalTicks <= 0 {
		n.ScoringIntervalTicks = DefaultScoringIntervalTicks
	}
	if !n.FirstScoringTeam.Valid() {
		n.FirstScoringTeam = DefaultFirstScoringTeam
	}
	if !(n.BallSpeed > 0) || math.IsInf(n.BallSpeed, 0) {
		n.BallSpeed = DefaultBallSpeed
	}
	if n.SpreadScale < 0 || !simutil.Finite(n.SpreadScale) {
		n.SpreadScale = DefaultSpreadScale
	}
	if n.LandingSearchRadius < 0 {
		n.LandingSearchRadius = 0
	}
	if n.InitialBalls < 0 {
		n.InitialBalls = DefaultInitialBalls
	}
	if n.RobotsPerTeam <= 0 {
		n.RobotsPerTeam = DefaultRobotsPerTeam
	}
	n.Layout = n.Layout.Normalized()
	if n.Robot == (agent.Config{}) || n.Robot.Validate() != nil {
		n.Robot = agent.DefaultConfig()
	}
	if len(cfg.Robots) > 0 {
		n.Robots = make(map[string]RobotOverride, len(cfg.Robots))
		for id, override := range cfg.Robots {
			n.Robots[strings.TrimSpace(id)] = override
		}
	}
	return n
}

// Normalized returns cfg with out-of-range fields replaced by defaults.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

// TickDuration is the simulated seconds per tick.
func (cfg Config) TickDuration() float64 {
	return 1.0 / float64(cfg.normalized().TickRate)
}

// TotalTicks is the match length in ticks.
func (cfg Config) TotalTicks() int {
	n := cfg.normalized()
	return int(math.Round(n.DurationSeconds * float64(n.TickRate)))
}

// BallStep is how far a flying ball travels in one tick.
func (cfg Config) BallStep() float64 {
	n := cfg.normalized()
	return n.BallSpeed / float64(n.TickRate)
}
