// Package ws streams match snapshots to websocket viewers and accepts match
// control messages from them.
package ws

import (
	"context"
	"fmt"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"ballfield/server/internal/net/intake"
	"ballfield/server/internal/net/proto"
	"ballfield/server/internal/sim"
	"ballfield/server/internal/telemetry"
	"ballfield/server/logging"
	"ballfield/server/logging/network"
)

const (
	DefaultWriteWait      = 10 * time.Second
	DefaultViewerBuffer   = 8
	CommandRejectBadSpeed = "invalid_speed"
)

// Match is the live match a viewer watches.
type Match interface {
	ID() string
	Snapshot() sim.Snapshot
	Subscribe(buffer int) (<-chan sim.Snapshot, func())
	Enqueue(cmd sim.Command) (bool, string)
	SetPlaybackSpeed(speed float64) error
}

type HandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	WriteWait time.Duration
	// Buffer is the number of snapshots queued per viewer before frames are
	// skipped.
	Buffer int
}

type Handler struct {
	match     Match
	logger    telemetry.Logger
	publisher logging.Publisher
	writeWait time.Duration
	buffer    int
	upgrader  websocket.Upgrader
	nextID    atomic.Uint64
}

func NewHandler(match Match, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	writeWait := cfg.WriteWait
	if writeWait <= 0 {
		writeWait = DefaultWriteWait
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultViewerBuffer
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		match:     match,
		logger:    logger,
		publisher: publisher,
		writeWait: writeWait,
		buffer:    buffer,
		upgrader:  upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h == nil || h.match == nil {
		nethttp.Error(w, "no match", nethttp.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	h.Serve(conn, r.RemoteAddr)
}

// Serve runs a viewer session on an upgraded connection until the viewer
// goes away or the match stops publishing.
func (h *Handler) Serve(conn *websocket.Conn, remoteAddr string) {
	v := newViewer(fmt.Sprintf("viewer-%d", h.nextID.Add(1)), conn, h.writeWait)
	ref := logging.EntityRef{ID: v.id, Kind: logging.EntityKindViewer}

	snapshots, unsubscribe := h.match.Subscribe(h.buffer)
	initial := h.match.Snapshot()
	network.ViewerConnected(context.Background(), h.publisher, uint64(initial.Tick), ref, network.ViewerPayload{RemoteAddr: remoteAddr}, nil)

	reason := "closed"
	defer func() {
		unsubscribe()
		v.Close(websocket.CloseNormalClosure, "")
		network.ViewerDisconnected(context.Background(), h.publisher, uint64(h.match.Snapshot().Tick), ref, network.ViewerPayload{
			RemoteAddr: remoteAddr,
			Reason:     reason,
		}, nil)
	}()

	if err := h.writeSnapshot(v, initial); err != nil {
		reason = "write_failed"
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.pump(v, snapshots, initial)
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("viewer %s read failed: %v", v.id, err)
				reason = "read_failed"
			}
			break
		}
		if !h.handleMessage(v, payload) {
			reason = "write_failed"
			break
		}
	}
	unsubscribe()
	<-writerDone
}

// pump forwards snapshots until the subscription closes. A result frame is
// sent once per match after the first finished snapshot.
func (h *Handler) pump(v *viewer, snapshots <-chan sim.Snapshot, initial sim.Snapshot) {
	announced := ""
	if initial.Result != nil {
		announced = h.match.ID()
	}
	for snap := range snapshots {
		if err := h.writeSnapshot(v, snap); err != nil {
			v.Close(websocket.CloseInternalServerErr, "write failed")
			return
		}
		if snap.Result == nil {
			continue
		}
		id := h.match.ID()
		if announced == id {
			continue
		}
		announced = id
		data, err := proto.EncodeResult(id, *snap.Result)
		if err != nil {
			h.logger.Printf("failed to marshal result for %s: %v", v.id, err)
			continue
		}
		if err := v.WriteMessage(websocket.TextMessage, data); err != nil {
			v.Close(websocket.CloseInternalServerErr, "write failed")
			return
		}
	}
}

func (h *Handler) writeSnapshot(v *viewer, snap sim.Snapshot) error {
	data, err := proto.EncodeSnapshot(h.match.ID(), time.Now().UnixMilli(), snap)
	if err != nil {
		h.logger.Printf("failed to marshal snapshot for %s: %v", v.id, err)
		return nil
	}
	return v.WriteMessage(websocket.TextMessage, data)
}

// handleMessage processes one inbound frame and reports whether the
// connection is still writable.
func (h *Handler) handleMessage(v *viewer, payload []byte) bool {
	msg, err := proto.DecodeClientMessage(payload)
	if err != nil {
		h.logger.Printf("discarding malformed message from %s: %v", v.id, err)
		return true
	}

	seq := uint64(0)
	if msg.CommandSeq != nil && *msg.CommandSeq > 0 {
		seq = *msg.CommandSeq
	}

	writeFrame := func(data []byte, err error) bool {
		if err != nil {
			h.logger.Printf("failed to marshal response for %s: %v", v.id, err)
			return true
		}
		return v.WriteMessage(websocket.TextMessage, data) == nil
	}
	ack := func(tick uint64) bool {
		if seq == 0 {
			return true
		}
		if !writeFrame(proto.EncodeCommandAck(proto.CommandAck{Seq: seq, Tick: tick})) {
			return false
		}
		v.StoreLastCommandSeq(seq)
		return true
	}
	reject := func(reason string) bool {
		if seq == 0 {
			return true
		}
		retry := reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull
		return writeFrame(proto.EncodeCommandReject(proto.CommandReject{Seq: seq, Reason: reason, Retry: retry}))
	}

	if msg.Type == proto.TypeHeartbeat {
		return writeFrame(proto.EncodeHeartbeat(proto.Heartbeat{ServerTime: time.Now().UnixMilli(), ClientTime: msg.SentAt}))
	}

	if seq > 0 {
		if last := v.LastCommandSeq(); last > 0 && seq <= last {
			return writeFrame(proto.EncodeCommandAck(proto.CommandAck{Seq: seq}))
		}
	}

	if msg.Type == proto.TypeControl && msg.Action == proto.ActionSpeed {
		if err := h.match.SetPlaybackSpeed(msg.Speed); err != nil {
			return reject(CommandRejectBadSpeed)
		}
		return ack(0)
	}

	snap := h.match.Snapshot()
	ctx := intake.CommandContext{
		Queue:    h.match,
		HasRobot: func(id string) bool { return hasRobot(snap, id) },
		Tick:     func() uint64 { return uint64(snap.Tick) },
		Now:      time.Now,
	}
	cmd, ok, reason := intake.StageClientCommand(ctx, msg)
	if !ok {
		if reason == intake.CommandRejectInvalid {
			h.logger.Printf("unknown message %q/%q from %s", msg.Type, msg.Action, v.id)
		}
		return reject(reason)
	}
	return ack(cmd.OriginTick)
}

func hasRobot(snap sim.Snapshot, id string) bool {
	for _, r := range snap.Robots {
		if r.ID == id {
			return true
		}
	}
	return false
}
