package proto

import (
	"encoding/json"
	"fmt"
	"strings"

	"ballfield/server/internal/agent"
	"ballfield/server/internal/sim"
	"ballfield/server/internal/strategy"
)

const (
	// Version tracks the wire-protocol revision expected by viewers.
	Version = 1

	// Type identifiers for websocket payloads.
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeSnapshot      = "snapshot"
	typeResult        = "result"
)

// Client message type identifiers.
const (
	TypeControl   = "control"
	TypeConfigure = "configure"
	TypeStrategy  = "strategy"
	TypeHeartbeat = "heartbeat"
)

// Control actions carried by TypeControl messages.
const (
	ActionStart = "start"
	ActionStop  = "stop"
	ActionReset = "reset"
	ActionSpeed = "speed"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeSnapshot      = typeSnapshot
	TypeResult        = typeResult
	TypeCommandAck    = typeCommandAck
	TypeCommandReject = typeCommandReject
)

// SnapshotFrame wraps a match snapshot for viewers.
type SnapshotFrame struct {
	Ver        int          `json:"ver"`
	Type       string       `json:"type"`
	MatchID    string       `json:"matchId"`
	ServerTime int64        `json:"serverTime"`
	Snapshot   sim.Snapshot `json:"snapshot"`
}

// EncodeSnapshot renders a snapshot frame.
func EncodeSnapshot(matchID string, serverTime int64, snap sim.Snapshot) ([]byte, error) {
	return json.Marshal(SnapshotFrame{
		Ver:        Version,
		Type:       typeSnapshot,
		MatchID:    matchID,
		ServerTime: serverTime,
		Snapshot:   snap,
	})
}

// ResultFrame announces the end of a match.
type ResultFrame struct {
	Ver     int        `json:"ver"`
	Type    string     `json:"type"`
	MatchID string     `json:"matchId"`
	Result  sim.Result `json:"result"`
}

// EncodeResult renders a result frame.
func EncodeResult(matchID string, result sim.Result) ([]byte, error) {
	return json.Marshal(ResultFrame{Ver: Version, Type: typeResult, MatchID: matchID, Result: result})
}

// ClientMessage captures an inbound websocket message from a viewer.
type ClientMessage struct {
	Ver            int                `json:"ver,omitempty"`
	Type           string             `json:"type"`
	Action         string             `json:"action,omitempty"`
	Speed          float64            `json:"speed,omitempty"`
	PreserveConfig *bool              `json:"preserveConfig,omitempty"`
	RobotID        string             `json:"robotId,omitempty"`
	Config         *agent.ConfigPatch `json:"config,omitempty"`
	Mode           string             `json:"mode,omitempty"`
	StrategyID     string             `json:"strategyId,omitempty"`
	SentAt         int64              `json:"sentAt,omitempty"`
	CommandSeq     *uint64            `json:"seq,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand captures the match command carried by a websocket message.
// Speed changes are not commands; they are reported with ok=false and handled
// by the caller.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeControl:
		switch strings.ToLower(msg.Action) {
		case ActionStart:
			return sim.Command{Type: sim.CommandStart}, true
		case ActionStop:
			return sim.Command{Type: sim.CommandStop}, true
		case ActionReset:
			preserve := true
			if msg.PreserveConfig != nil {
				preserve = *msg.PreserveConfig
			}
			return sim.Command{Type: sim.CommandReset, Reset: &sim.ResetCommand{PreserveConfig: preserve}}, true
		default:
			return sim.Command{}, false
		}
	case TypeConfigure:
		if msg.RobotID == "" || msg.Config == nil || msg.Config.Empty() {
			return sim.Command{}, false
		}
		patch := msg.Config.Clone()
		return sim.Command{Type: sim.CommandConfigure, RobotID: msg.RobotID, Configure: &patch}, true
	case TypeStrategy:
		mode := strategy.Mode(strings.ToUpper(msg.Mode))
		if msg.RobotID == "" || msg.StrategyID == "" || !mode.Valid() {
			return sim.Command{}, false
		}
		return sim.Command{
			Type:    sim.CommandStrategy,
			RobotID: msg.RobotID,
			Strategy: &sim.StrategyCommand{
				Mode:       mode,
				StrategyID: msg.StrategyID,
			},
		}, true
	default:
		return sim.Command{}, false
	}
}

// CommandAck describes an acknowledgement of a staged command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject notifies the viewer that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
		Retry:  msg.Retry,
	}
	return json.Marshal(frame)
}

// Heartbeat echoes a viewer heartbeat with the server clock.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
	}
	return json.Marshal(frame)
}
