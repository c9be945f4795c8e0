package network

import (
	"context"

	"ballfield/server/logging"
)

const (
	// EventViewerConnected is emitted when a websocket viewer subscribes to snapshots.
	EventViewerConnected logging.EventType = "network.viewer_connected"
	// EventViewerDisconnected is emitted when a viewer stream ends.
	EventViewerDisconnected logging.EventType = "network.viewer_disconnected"
)

// ViewerPayload describes a viewer connection.
type ViewerPayload struct {
	RemoteAddr string `json:"remoteAddr"`
	Reason     string `json:"reason,omitempty"`
}

// ViewerConnected publishes a debug event when a viewer attaches.
func ViewerConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ViewerPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventViewerConnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ViewerDisconnected publishes a debug event when a viewer detaches.
func ViewerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ViewerPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventViewerDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
