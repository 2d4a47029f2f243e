package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"clickwar/internal/constants"
	"clickwar/internal/domain"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Message is an inbound client frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	closed sync.Once
}

func (c *client) close() {
	c.closed.Do(func() { close(c.send) })
}

// Hub fans events out to every connected websocket. Delivery is best effort:
// a client whose buffer is full is disconnected rather than waited on.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

func (h *Hub) Publish(evt domain.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error().Err(err).Str("type", evt.Type).Msg("failed to encode event")
		return
	}

	var slow []*client
	h.mu.RLock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn().Str("client_id", c.id).Str("type", evt.Type).Msg("dropping slow websocket client")
		h.remove(c)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve registers conn and blocks until it disconnects. onJoin runs once
// the client can receive events; onMessage runs on the reading goroutine
// for every well-formed frame. Either may be nil.
func (h *Hub) Serve(conn *websocket.Conn, onJoin func(), onMessage func(Message)) {
	id, err := gonanoid.New()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate client id")
		conn.Close()
		return
	}
	c := &client{id: id, conn: conn, send: make(chan []byte, constants.WSSendBuffer)}
	h.add(c)
	defer h.remove(c)

	go h.writePump(c)
	if onJoin != nil {
		onJoin()
	}
	h.readPump(c, onMessage)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Str("client_id", c.id).Int("clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		h.logger.Debug().Str("client_id", c.id).Int("clients", n).Msg("websocket client disconnected")
	}
}

func (h *Hub) readPump(c *client, onMessage func(Message)) {
	defer c.conn.Close()

	c.conn.SetReadLimit(constants.WSMaxMessage)
	c.conn.SetReadDeadline(time.Now().Add(constants.WSReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WSReadTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug().Err(err).Str("client_id", c.id).Msg("ignoring malformed websocket frame")
			continue
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(constants.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
