// Package realtime fans mutation events out to WebSocket subscribers
// grouped into namespace rooms. Delivery is best-effort: no ack, no
// retry, no persistence; a subscriber connecting after an event was
// published never sees it.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"copacabana/pkg/logger"
	"copacabana/pkg/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	// sendBuffer bounds per-client queued frames. A full buffer drops the
	// frame for that client rather than stalling Publish.
	sendBuffer = 16
)

// DefaultEvent is the event name used for all broadcasts unless
// configured otherwise.
const DefaultEvent = "copacabana"

// frame is the wire envelope for every server-to-client message.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// control is the only client-to-server message: join the named room.
type control struct {
	Room string `json:"room"`
}

// Hub tracks connected clients and their room membership. The zero value
// is not usable; call NewHub.
type Hub struct {
	event    string
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	// joined is guarded by the hub mutex.
	joined map[string]struct{}
}

// NewHub returns a hub broadcasting under the given event name.
func NewHub(event string) *Hub {
	if event == "" {
		event = DefaultEvent
	}
	return &Hub{
		event: event,
		rooms: map[string]map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Publish delivers ev to every client currently joined to the namespace
// room. Fire-and-forget: slow clients lose the frame, and no failure ever
// reaches the caller.
func (h *Hub) Publish(namespace string, ev models.ChangeEvent) {
	b, err := json.Marshal(frame{Event: h.event, Data: ev})
	if err != nil {
		logger.Error("broadcast_marshal_failed", "error", err)
		return
	}
	h.mu.Lock()
	members := h.rooms[namespace]
	targets := make([]*client, 0, len(members))
	for c := range members {
		targets = append(targets, c)
	}
	h.mu.Unlock()
	for _, c := range targets {
		select {
		case c.send <- b:
		default:
			logger.Warn("broadcast_client_lagging", "room", namespace)
		}
	}
	logger.Debug("event_published", "room", namespace, "method", ev.Method, "subscribers", len(targets))
}

// Rooms returns the number of rooms with at least one member.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Handler upgrades the connection, sends the greeting, and serves the
// read/write pumps until the client goes away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		c := &client{
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
			done:   make(chan struct{}),
			joined: map[string]struct{}{},
		}
		go c.writePump()
		h.greet(c, "copacabana")
		h.readPump(c)
	}
}

// greet queues the greeting frame {"hello": <scope>} for the client.
func (h *Hub) greet(c *client, scope string) {
	b, err := json.Marshal(frame{Event: h.event, Data: map[string]string{"hello": scope}})
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

// join adds the client to a room. Idempotent; a connection may be in
// several rooms at once.
func (h *Hub) join(c *client, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = map[*client]struct{}{}
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.joined[room] = struct{}{}
}

// drop detaches the client from every room and stops its write pump. The
// send channel is never closed: Publish may still hold a reference, and a
// buffered send to a finished client is harmless.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	for room := range c.joined {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.joined = map[string]struct{}{}
	h.mu.Unlock()
	close(c.done)
}

// readPump consumes control messages until the connection errors, then
// tears the client down.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			logger.Debug("ws_read_closed", "error", err)
			return
		}
		var ctl control
		if err := json.Unmarshal(msg, &ctl); err != nil {
			logger.Debug("ws_bad_control", "error", err)
			continue
		}
		if ctl.Room != "" {
			h.join(c, ctl.Room)
			h.greet(c, ctl.Room)
		}
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings. Runs until the client is dropped or a write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
