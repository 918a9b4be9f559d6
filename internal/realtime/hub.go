package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientBuffer   = 16
)

// Event is the envelope written to every websocket client.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
	Target  string `json:"target,omitempty"`
}

type client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// Hub fans events out to connected websocket clients. Emit never blocks:
// events go through a bounded queue and are dropped when it is full, so
// delivery is at most once.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	events     chan Event
	register   chan *client
	unregister chan *client
	clients    map[*client]struct{}

	connected atomic.Int64
	dropped   atomic.Uint64

	done     chan struct{}
	stopOnce sync.Once
}

func NewHub(queueSize int, logger *zap.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		events:     make(chan Event, queueSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
	}
}

// Emit queues an event. An empty target reaches every client; otherwise
// only clients connected with that user id receive it.
func (h *Hub) Emit(event string, payload any, target string) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.events <- Event{Name: event, Payload: payload, Target: target}:
	default:
		h.dropped.Add(1)
		h.logger.Warn("realtime queue full, dropping event",
			zap.String("event", event),
			zap.String("target", target))
	}
}

func (h *Hub) ClientCount() int {
	return int(h.connected.Load())
}

func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Run dispatches queued events until ctx is cancelled or Stop is called.
func (h *Hub) Run(ctx context.Context) {
	defer h.Stop()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.connected.Store(int64(len(h.clients)))
		case c := <-h.unregister:
			h.remove(c)
		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) dispatch(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode realtime event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	for c := range h.clients {
		if ev.Target != "" && c.userID != ev.Target {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("realtime client too slow, disconnecting", zap.String("user_id", c.userID))
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.connected.Store(int64(len(h.clients)))
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.remove(c)
	}
}

// ServeWS upgrades the request and registers the connection under the
// userId query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		userID: r.URL.Query().Get("userId"),
		send:   make(chan []byte, clientBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
