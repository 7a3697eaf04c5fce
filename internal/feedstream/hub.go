// Package feedstream is the WebSocket live-stream transport for the
// Agent Activity Feed and incident lifecycle updates. It is adapted
// from the teacher's pkg/events: ConnectionManager's connection
// registry and channel-subscription bookkeeping survive verbatim in
// shape, but the teacher's PostgreSQL NOTIFY/LISTEN fan-out is
// replaced with direct in-process bridges onto pkg/activity.Feed and
// pkg/notify.Service's subscription callbacks — alertfabric has no
// cross-pod event bus, so there is nothing for a NotifyListener to
// listen to.
package feedstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Hub manages WebSocket connections and their channel subscriptions.
// One Hub instance serves an entire alertd process.
type Hub struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	// channels tracks, per channel name, the subscribed connection ids
	// and the bridge's unsubscribe func (non-nil only while at least
	// one connection is subscribed).
	channels  map[string]map[string]bool
	unbridge  map[string]func()
	channelMu sync.RWMutex

	bridge Bridge

	writeTimeout time.Duration
}

// Connection represents a single WebSocket client.
//
// subscriptions is only ever touched by the goroutine running
// HandleConnection's read loop (and its deferred cleanup), so it needs
// no lock of its own — mirroring the teacher's Connection.
type Connection struct {
	ID            string
	Conn          *websocket.Conn
	subscriptions map[string]bool
	ctx           context.Context
	cancel        context.CancelFunc
}

// ClientMessage is a command sent by a WebSocket client.
type ClientMessage struct {
	Action  string `json:"action"` // subscribe, unsubscribe, catchup, ping
	Channel string `json:"channel"`
}

// NewHub constructs a Hub bridging onto the given activity/incident sources.
func NewHub(bridge Bridge, writeTimeout time.Duration) *Hub {
	return &Hub{
		connections:  make(map[string]*Connection),
		channels:     make(map[string]map[string]bool),
		unbridge:     make(map[string]func()),
		bridge:       bridge,
		writeTimeout: writeTimeout,
	}
}

// HandleConnection manages one WebSocket connection's lifecycle, called
// by the HTTP handler immediately after upgrade. Blocks until closed.
func (h *Hub) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	connID := uuid.New().String()
	ctx, cancel := context.WithCancel(parentCtx)

	c := &Connection{
		ID:            connID,
		Conn:          conn,
		subscriptions: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
	}

	h.registerConnection(c)
	defer h.unregisterConnection(c)

	h.sendJSON(c, map[string]string{"type": "connection.established", "connection_id": connID})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid feedstream message", "connection_id", connID, "error", err)
			continue
		}
		h.handleClientMessage(ctx, c, &msg)
	}
}

// ActiveConnections returns the count of active WebSocket connections.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) handleClientMessage(ctx context.Context, c *Connection, msg *ClientMessage) {
	switch msg.Action {
	case "subscribe":
		if msg.Channel == "" {
			h.sendJSON(c, map[string]string{"type": "error", "message": "channel is required"})
			return
		}
		h.subscribe(c, msg.Channel)
		h.sendJSON(c, map[string]string{"type": "subscription.confirmed", "channel": msg.Channel})
		h.sendCatchup(ctx, c, msg.Channel)

	case "unsubscribe":
		if msg.Channel == "" {
			h.sendJSON(c, map[string]string{"type": "error", "message": "channel is required"})
			return
		}
		h.unsubscribe(c, msg.Channel)

	case "catchup":
		if msg.Channel == "" {
			h.sendJSON(c, map[string]string{"type": "error", "message": "channel is required"})
			return
		}
		h.sendCatchup(ctx, c, msg.Channel)

	case "ping":
		h.sendJSON(c, map[string]string{"type": "pong"})
	}
}

// subscribe registers c for channel, activating the source bridge the
// first time a channel gains a subscriber (the in-process analogue of
// the teacher's "LISTEN only if first subscriber").
func (h *Hub) subscribe(c *Connection, channel string) {
	h.channelMu.Lock()
	if _, exists := h.channels[channel]; !exists {
		h.channels[channel] = make(map[string]bool)
		h.unbridge[channel] = h.bridge.Activate(channel, func(payload []byte) {
			h.Broadcast(channel, payload)
		})
	}
	h.channels[channel][c.ID] = true
	h.channelMu.Unlock()

	c.subscriptions[channel] = true
}

// unsubscribe removes c from channel, deactivating the bridge once the
// last subscriber leaves.
func (h *Hub) unsubscribe(c *Connection, channel string) {
	h.channelMu.Lock()
	if subs, exists := h.channels[channel]; exists {
		delete(subs, c.ID)
		if len(subs) == 0 {
			delete(h.channels, channel)
			if deactivate := h.unbridge[channel]; deactivate != nil {
				deactivate()
			}
			delete(h.unbridge, channel)
		}
	}
	h.channelMu.Unlock()

	delete(c.subscriptions, channel)
}

// Broadcast sends a raw payload to every connection subscribed to channel.
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.channelMu.RLock()
	connIDs, exists := h.channels[channel]
	if !exists {
		h.channelMu.RUnlock()
		return
	}
	ids := make([]string, 0, len(connIDs))
	for id := range connIDs {
		ids = append(ids, id)
	}
	h.channelMu.RUnlock()

	h.mu.RLock()
	conns := make([]*Connection, 0, len(ids))
	for _, id := range ids {
		if conn, ok := h.connections[id]; ok {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := h.sendRaw(conn, payload); err != nil {
			slog.Warn("feedstream send failed", "connection_id", conn.ID, "error", err)
		}
	}
}

func (h *Hub) sendCatchup(ctx context.Context, c *Connection, channel string) {
	events, err := h.bridge.Catchup(ctx, channel)
	if err != nil {
		slog.Error("feedstream catchup failed", "channel", channel, "error", err)
		return
	}
	for _, payload := range events {
		if err := h.sendRaw(c, payload); err != nil {
			slog.Warn("feedstream catchup send failed", "connection_id", c.ID, "error", err)
			return
		}
	}
}

func (h *Hub) registerConnection(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c.ID] = c
}

func (h *Hub) unregisterConnection(c *Connection) {
	for ch := range c.subscriptions {
		h.unsubscribe(c, ch)
	}

	h.mu.Lock()
	delete(h.connections, c.ID)
	h.mu.Unlock()

	c.cancel()
	_ = c.Conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) sendJSON(c *Connection, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to marshal feedstream message", "connection_id", c.ID, "error", err)
		return
	}
	if err := h.sendRaw(c, data); err != nil {
		slog.Warn("failed to send feedstream message", "connection_id", c.ID, "error", err)
	}
}

func (h *Hub) sendRaw(c *Connection, data []byte) error {
	writeCtx, cancel := context.WithTimeout(c.ctx, h.writeTimeout)
	defer cancel()
	return c.Conn.Write(writeCtx, websocket.MessageText, data)
}
