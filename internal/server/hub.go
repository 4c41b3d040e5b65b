package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendBuffer     = 64
	broadcastQueue = 256
	writeWait      = 10 * time.Second
	maxClientFrame = 512
)

// Message is the envelope pushed to every feed subscriber.
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans verdicts out to any number of websocket subscribers. Clients
// that cannot keep up are disconnected rather than slowing the simulator.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	closeOnce  sync.Once
	clients    atomic.Int64
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub starts a hub. Close stops it and disconnects every client.
func NewHub(log zerolog.Logger) *Hub {
	h := &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			// The feed is read-only and served on loopback by default.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	return int(h.clients.Load())
}

func (h *Hub) run() {
	clients := make(map[*client]struct{})
	drop := func(c *client) {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			h.clients.Add(-1)
		}
	}

	for {
		select {
		case c := <-h.register:
			clients[c] = struct{}{}
			h.clients.Add(1)
			h.log.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("feed client connected")
		case c := <-h.unregister:
			drop(c)
			h.log.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("feed client disconnected")
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("dropping slow feed client")
					drop(c)
				}
			}
		case <-h.done:
			for c := range clients {
				drop(c)
			}
			return
		}
	}
}

// Broadcast queues data for every subscriber. It never blocks; when the
// queue is full the message is skipped.
func (h *Hub) Broadcast(kind string, data any) {
	payload, err := json.Marshal(Message{Type: kind, Data: data, Timestamp: time.Now().Unix()})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal feed message")
		return
	}

	select {
	case <-h.done:
	case h.broadcast <- payload:
	default:
		h.log.Warn().Msg("feed queue full, skipping message")
	}
}

// Close disconnects all clients. It is safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeWS upgrades the request and subscribes the connection to the feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards client frames and notices disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxClientFrame)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
