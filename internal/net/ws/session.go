package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// viewer serialises writes to one websocket connection and remembers the
// last command sequence it acknowledged.
type viewer struct {
	id        string
	conn      *websocket.Conn
	writeWait time.Duration

	mu      sync.Mutex
	lastSeq atomic.Uint64
	closed  atomic.Bool
}

func newViewer(id string, conn *websocket.Conn, writeWait time.Duration) *viewer {
	return &viewer{id: id, conn: conn, writeWait: writeWait}
}

func (v *viewer) WriteMessage(messageType int, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.writeWait > 0 {
		if err := v.conn.SetWriteDeadline(time.Now().Add(v.writeWait)); err != nil {
			return err
		}
	}
	return v.conn.WriteMessage(messageType, data)
}

func (v *viewer) LastCommandSeq() uint64 { return v.lastSeq.Load() }

func (v *viewer) StoreLastCommandSeq(seq uint64) {
	for {
		current := v.lastSeq.Load()
		if seq <= current || v.lastSeq.CompareAndSwap(current, seq) {
			return
		}
	}
}

// Close sends a close frame once and tears the connection down.
func (v *viewer) Close(code int, reason string) {
	if !v.closed.CompareAndSwap(false, true) {
		return
	}
	message := websocket.FormatCloseMessage(code, reason)
	v.mu.Lock()
	_ = v.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	v.mu.Unlock()
	_ = v.conn.Close()
}
