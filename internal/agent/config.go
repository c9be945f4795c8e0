package agent

import (
	"errors"
	"fmt"
	"math"

	"ballfield/server/internal/simutil"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid robot config")

const (
	DefaultMoveSpeed        = 3.0
	DefaultMaxBalls         = 3
	DefaultBaseShotCooldown = 10
	DefaultMaxShootDistance = 10.0
	DefaultAccuracyMin      = 0.5
	DefaultAccuracyMax      = 1.0
)

// Config holds the tunable characteristics of a robot.
type Config struct {
	// MoveSpeed is measured in tiles per second.
	MoveSpeed float64 `json:"moveSpeed" yaml:"moveSpeed"`
	MaxBalls  int     `json:"maxBalls" yaml:"maxBalls"`
	// BaseShotCooldown is measured in ticks.
	BaseShotCooldown int     `json:"baseShotCooldown" yaml:"baseShotCooldown"`
	MaxShootDistance float64 `json:"maxShootDistance" yaml:"maxShootDistance"`
	AccuracyMin      float64 `json:"accuracyMin" yaml:"accuracyMin"`
	AccuracyMax      float64 `json:"accuracyMax" yaml:"accuracyMax"`
}

// DefaultConfig returns the stock robot configuration.
func DefaultConfig() Config {
	return Config{
		MoveSpeed:        DefaultMoveSpeed,
		MaxBalls:         DefaultMaxBalls,
		BaseShotCooldown: DefaultBaseShotCooldown,
		MaxShootDistance: DefaultMaxShootDistance,
		AccuracyMin:      DefaultAccuracyMin,
		AccuracyMax:      DefaultAccuracyMax,
	}
}

// Validate rejects negative or non-finite values and malformed accuracy
// bounds.
func (c Config) Validate() error {
	if err := validateNonNegative("moveSpeed", c.MoveSpeed); err != nil {
		return err
	}
	if c.MaxBalls < 0 {
		return fmt.Errorf("maxBalls %d: %w", c.MaxBalls, ErrInvalidConfig)
	}
	if c.BaseShotCooldown < 0 {
		return fmt.Errorf("baseShotCooldown %d: %w", c.BaseShotCooldown, ErrInvalidConfig)
	}
	if err := validateNonNegative("maxShootDistance", c.MaxShootDistance); err != nil {
		return err
	}
	return validateAccuracy(c.AccuracyMin, c.AccuracyMax)
}

func validateNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%s %v: %w", name, v, ErrInvalidConfig)
	}
	return nil
}

func validateAccuracy(lo, hi float64) error {
	for _, v := range []float64{lo, hi} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("accuracy %v outside [0,1]: %w", v, ErrInvalidConfig)
		}
	}
	if lo > hi {
		return fmt.Errorf("accuracyMin %v above accuracyMax %v: %w", lo, hi, ErrInvalidConfig)
	}
	return nil
}

// Accuracy interpolates linearly from AccuracyMax at distance zero down to
// AccuracyMin at or beyond MaxShootDistance.
func (c Config) Accuracy(distance float64) float64 {
	ratio := 1.0
	switch {
	case distance <= 0:
		ratio = 0
	case c.MaxShootDistance > 0:
		ratio = simutil.Clamp(distance/c.MaxShootDistance, 0, 1)
	}
	return c.AccuracyMax - ratio*(c.AccuracyMax-c.AccuracyMin)
}

// ConfigPatch is a partial Config. Nil fields keep the robot's current value.
type ConfigPatch struct {
	MoveSpeed        *float64 `json:"moveSpeed,omitempty"`
	MaxBalls         *int     `json:"maxBalls,omitempty"`
	BaseShotCooldown *int     `json:"baseShotCooldown,omitempty"`
	MaxShootDistance *float64 `json:"maxShootDistance,omitempty"`
	AccuracyMin      *float64 `json:"accuracyMin,omitempty"`
	AccuracyMax      *float64 `json:"accuracyMax,omitempty"`
}

// Patch returns a ConfigPatch that sets every field to c's value.
func (c Config) Patch() ConfigPatch {
	return ConfigPatch{
		MoveSpeed:        &c.MoveSpeed,
		MaxBalls:         &c.MaxBalls,
		BaseShotCooldown: &c.BaseShotCooldown,
		MaxShootDistance: &c.MaxShootDistance,
		AccuracyMin:      &c.AccuracyMin,
		AccuracyMax:      &c.AccuracyMax,
	}
}

// Clone returns a copy of p that shares no pointers with it.
func (p ConfigPatch) Clone() ConfigPatch {
	return ConfigPatch{
		MoveSpeed:        clonePtr(p.MoveSpeed),
		MaxBalls:         clonePtr(p.MaxBalls),
		BaseShotCooldown: clonePtr(p.BaseShotCooldown),
		MaxShootDistance: clonePtr(p.MaxShootDistance),
		AccuracyMin:      clonePtr(p.AccuracyMin),
		AccuracyMax:      clonePtr(p.AccuracyMax),
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Empty reports whether p sets no field.
func (p ConfigPatch) Empty() bool {
	return p.MoveSpeed == nil && p.MaxBalls == nil && p.BaseShotCooldown == nil &&
		p.MaxShootDistance == nil && p.AccuracyMin == nil && p.AccuracyMax == nil
}

// Apply returns base with the fields set in p replaced.
func (p ConfigPatch) Apply(base Config) Config {
	out := base
	if p.MoveSpeed != nil {
		out.MoveSpeed = *p.MoveSpeed
	}
	if p.MaxBalls != nil {
		out.MaxBalls = *p.MaxBalls
	}
	if p.BaseShotCooldown != nil {
		out.BaseShotCooldown = *p.BaseShotCooldown
	}
	if p.MaxShootDistance != nil {
		out.MaxShootDistance = *p.MaxShootDistance
	}
	if p.AccuracyMin != nil {
		out.AccuracyMin = *p.AccuracyMin
	}
	if p.AccuracyMax != nil {
		out.AccuracyMax = *p.AccuracyMax
	}
	return out
}

// Validate checks the fields p sets. The accuracy ordering is only checked
// here when both bounds are present; Apply followed by Config.Validate
// covers the rest.
func (p ConfigPatch) Validate() error {
	if p.MoveSpeed != nil {
		if err := validateNonNegative("moveSpeed", *p.MoveSpeed); err != nil {
			return err
		}
	}
	if p.MaxBalls != nil && *p.MaxBalls < 0 {
		return fmt.Errorf("maxBalls %d: %w", *p.MaxBalls, ErrInvalidConfig)
	}
	if p.BaseShotCooldown != nil && *p.BaseShotCooldown < 0 {
		return fmt.Errorf("baseShotCooldown %d: %w", *p.BaseShotCooldown, ErrInvalidConfig)
	}
	if p.MaxShootDistance != nil {
		if err := validateNonNegative("maxShootDistance", *p.MaxShootDistance); err != nil {
			return err
		}
	}
	switch {
	case p.AccuracyMin != nil && p.AccuracyMax != nil:
		return validateAccuracy(*p.AccuracyMin, *p.AccuracyMax)
	case p.AccuracyMin != nil:
		return validateAccuracy(*p.AccuracyMin, *p.AccuracyMin)
	case p.AccuracyMax != nil:
		return validateAccuracy(*p.AccuracyMax, *p.AccuracyMax)
	}
	return nil
}
