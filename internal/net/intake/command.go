package intake

import (
	"time"

	"ballfield/server/internal/net/proto"
	"ballfield/server/internal/sim"
)

const (
	// CommandRejectInvalid indicates a message that does not describe a command.
	CommandRejectInvalid = "invalid_command"
	// CommandRejectUnknownRobot indicates a command addressed to a robot that
	// is not on the roster.
	CommandRejectUnknownRobot = "unknown_robot"
)

// Enqueuer stages commands for the next frame. *sim.Loop satisfies it.
type Enqueuer interface {
	Enqueue(sim.Command) (bool, string)
}

type CommandContext struct {
	Queue    Enqueuer
	HasRobot func(string) bool
	Tick     func() uint64
	Now      func() time.Time
}

func StageClientCommand(ctx CommandContext, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, CommandRejectInvalid
	}

	switch command.Type {
	case sim.CommandStart, sim.CommandStop:
	case sim.CommandReset:
		if command.Reset == nil {
			return zero, false, CommandRejectInvalid
		}
	case sim.CommandConfigure:
		if command.Configure == nil || command.Configure.Validate() != nil {
			return zero, false, CommandRejectInvalid
		}
	case sim.CommandStrategy:
		if command.Strategy == nil {
			return zero, false, CommandRejectInvalid
		}
	default:
		return zero, false, CommandRejectInvalid
	}

	if command.RobotID != "" && ctx.HasRobot != nil && !ctx.HasRobot(command.RobotID) {
		return zero, false, CommandRejectUnknownRobot
	}

	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Queue == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Queue.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
