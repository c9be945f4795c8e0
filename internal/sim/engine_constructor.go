package sim

import (
	"errors"
	"fmt"

	"ballfield/server/internal/field"
	"ballfield/server/internal/strategy"
)

var (
	// ErrUnknownRobot indicates a command or setter named a robot that is not on the roster.
	ErrUnknownRobot = errors.New("sim: unknown robot")
	// ErrUnknownStrategy indicates a strategy id that is not registered.
	ErrUnknownStrategy = strategy.ErrUnknownStrategy
	// ErrMissingRegistry indicates NewEngine was given a nil strategy registry.
	ErrMissingRegistry = errors.New("sim: strategy registry is nil")
)

// EngineOption configures NewEngine behaviour. Options are applied in order;
// later options override earlier ones.
type EngineOption interface {
	apply(*engineConfig)
}

type engineOptionFunc func(*engineConfig)

func (f engineOptionFunc) apply(cfg *engineConfig) {
	if f != nil {
		f(cfg)
	}
}

// Hooks are invoked synchronously from inside Tick.
type Hooks struct {
	// OnMatchEnd receives the result exactly once per match.
	OnMatchEnd func(Result)
	// OnModeSwitch receives the team that just became the scoring team.
	OnModeSwitch func(tick int, scoring field.Team)
}

type engineConfig struct {
	deps     Deps
	hooks    Hooks
	registry *strategy.Registry
}

// WithDeps injects shared infrastructure dependencies used by the engine.
func WithDeps(deps Deps) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.deps = deps
	})
}

// WithHooks supplies match callbacks.
func WithHooks(hooks Hooks) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.hooks = hooks
	})
}

// WithRegistry replaces the default strategy registry.
func WithRegistry(registry *strategy.Registry) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.registry = registry
	})
}

// NewEngine builds an idle engine with the field seeded and the robots on
// their spawn slots.
func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	options := engineConfig{registry: strategy.DefaultRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&options)
		}
	}
	if options.registry == nil {
		return nil, ErrMissingRegistry
	}

	e := &Engine{
		cfg:      cfg.normalized(),
		deps:     options.deps.withDefaults(),
		hooks:    options.hooks,
		registry: options.registry,
	}
	if err := e.build(false); err != nil {
		return nil, fmt.Errorf("build match: %w", err)
	}
	return e, nil
}
