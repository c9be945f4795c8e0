package lifecycle

import (
	"context"

	"ballfield/server/logging"
)

const (
	// EventRobotSpawned is emitted when a robot is placed on its spawn slot.
	EventRobotSpawned logging.EventType = "lifecycle.robot_spawned"
	// EventRobotConfigured is emitted when robot settings change between ticks.
	EventRobotConfigured logging.EventType = "lifecycle.robot_configured"
	// EventStrategyChanged is emitted when a robot receives a new strategy for one of its modes.
	EventStrategyChanged logging.EventType = "lifecycle.strategy_changed"
)

// RobotSpawnedPayload captures spawn metadata for a robot.
type RobotSpawnedPayload struct {
	Team   string  `json:"team"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// RobotConfiguredPayload captures the effect of a configuration update.
type RobotConfiguredPayload struct {
	MaxBalls      int `json:"maxBalls"`
	ReturnedBalls int `json:"returnedBalls"`
}

// StrategyChangedPayload names the mode slot and new strategy.
type StrategyChangedPayload struct {
	Mode     string `json:"mode"`
	Strategy string `json:"strategy"`
}

// RobotSpawned publishes a robot spawn event.
func RobotSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RobotSpawnedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRobotSpawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// RobotConfigured publishes a robot configuration event.
func RobotConfigured(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RobotConfiguredPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRobotConfigured,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// StrategyChanged publishes a strategy assignment event.
func StrategyChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StrategyChangedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventStrategyChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
