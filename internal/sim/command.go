package sim

import (
	"errors"
	"fmt"
	"time"

	"ballfield/server/internal/agent"
	"ballfield/server/internal/strategy"
)

// CommandType enumerates the supported match commands.
type CommandType string

const (
	CommandStart     CommandType = "Start"
	CommandStop      CommandType = "Stop"
	CommandReset     CommandType = "Reset"
	CommandConfigure CommandType = "Configure"
	CommandStrategy  CommandType = "Strategy"
)

// ResetCommand selects whether robot configuration survives the reset.
type ResetCommand struct {
	PreserveConfig bool `json:"preserveConfig"`
}

// StrategyCommand installs a registered strategy into one mode slot.
type StrategyCommand struct {
	Mode       strategy.Mode `json:"mode"`
	StrategyID string        `json:"strategyId"`
}

// Command represents an operator intent applied before the next tick.
type Command struct {
	OriginTick uint64             `json:"originTick"`
	RobotID    string             `json:"robotId,omitempty"`
	Type       CommandType        `json:"type"`
	IssuedAt   time.Time          `json:"issuedAt"`
	Reset      *ResetCommand      `json:"reset,omitempty"`
	Configure  *agent.ConfigPatch `json:"configure,omitempty"`
	Strategy   *StrategyCommand   `json:"strategy,omitempty"`
}

// ErrMalformedCommand indicates a command whose payload does not match its type.
var ErrMalformedCommand = errors.New("sim: malformed command")

// Apply executes cmds in order. A failing command does not stop the ones
// after it; all failures are joined into the returned error.
func (e *Engine) Apply(cmds []Command) error {
	var errs []error
	for _, cmd := range cmds {
		if err := e.applyCommand(cmd); err != nil {
			errs = append(errs, fmt.Errorf("%s command: %w", cmd.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) applyCommand(cmd Command) error {
	switch cmd.Type {
	case CommandStart:
		e.Start()
	case CommandStop:
		e.Stop()
	case CommandReset:
		preserve := true
		if cmd.Reset != nil {
			preserve = cmd.Reset.PreserveConfig
		}
		return e.Reset(preserve)
	case CommandConfigure:
		if cmd.Configure == nil {
			return ErrMalformedCommand
		}
		return e.PatchRobot(cmd.RobotID, *cmd.Configure)
	case CommandStrategy:
		if cmd.Strategy == nil {
			return ErrMalformedCommand
		}
		return e.SetRobotStrategy(cmd.RobotID, cmd.Strategy.Mode, cmd.Strategy.StrategyID)
	default:
		return fmt.Errorf("type %q: %w", cmd.Type, ErrMalformedCommand)
	}
	return nil
}
