// Package strategy defines the decision contract robots consult every tick
// and the expected-value helpers shared by concrete policies.
package strategy

import "ballfield/server/internal/field"

// Mode selects which strategy slot a robot is driven by.
type Mode string

const (
	ModeScoring    Mode = "SCORING"
	ModeCollecting Mode = "COLLECTING"
)

// Valid reports whether m names one of the two slots.
func (m Mode) Valid() bool {
	return m == ModeScoring || m == ModeCollecting
}

// Robot is the read-only view of an agent handed to strategies.
type Robot interface {
	ID() string
	Team() field.Team
	Position() field.Vec2
	BallCount() int
	MaxBalls() int
	MaxShootDistance() float64
	Mode() Mode
}

// ActionKind enumerates the side effects a strategy may request.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionShoot
	ActionCollect
	ActionDrop
)

func (k ActionKind) String() string {
	switch k {
	case ActionShoot:
		return "shoot"
	case ActionCollect:
		return "collect"
	case ActionDrop:
		return "drop"
	default:
		return "none"
	}
}

// Action is a single requested side effect. Distance and Angle are only
// meaningful for ActionShoot; the zero value requests nothing.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Distance float64    `json:"distance,omitempty"`
	Angle    float64    `json:"angle,omitempty"`
}

// Shoot aims a shot distance tiles away along angle radians.
func Shoot(distance, angle float64) Action {
	return Action{Kind: ActionShoot, Distance: distance, Angle: angle}
}

// Collect picks up the ball under the robot.
func Collect() Action { return Action{Kind: ActionCollect} }

// Drop places a held ball on the robot's tile.
func Drop() Action { return Action{Kind: ActionDrop} }

// None returns the empty action.
func None() Action { return Action{} }

// Strategy is a pluggable per-robot, per-mode decision policy. Instances may
// keep soft state between calls but never own field or robot data.
type Strategy interface {
	ID() string
	// Status is a short human readable description of the current intent.
	Status() string
	// DecideMove returns a destination, or false to hold position.
	DecideMove(r Robot, f *field.Field) (field.Vec2, bool)
	DecideAction(r Robot, f *field.Field) Action
}
