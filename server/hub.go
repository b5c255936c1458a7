package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-posture/display"
)

// Display channels pushed to websocket clients.
const (
	ChannelOutput = "output"
	ChannelTimer  = "timer"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Message is one display update as sent to websocket clients.
type Message struct {
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is a single websocket connection.
type Client struct {
	ID   uuid.UUID
	Conn *websocket.Conn
	Send chan []byte
	hub  *Hub
}

// Hub fans display updates out to every connected websocket client.
//
// The latest message of each channel is replayed to new clients so a page
// opened mid-session shows the current output and timer.
type Hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	latest  map[string][]byte
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:     log,
		clients: make(map[uuid.UUID]*Client),
		latest:  make(map[string][]byte),
	}
}

// Sink returns a display sink that publishes on the given channel.
//
// Arguments:
//   - channel: ChannelOutput or ChannelTimer.
//
// Returns:
//   - display.Sink: The sink.
//
// @example
// output := display.Fanout{console, hub.Sink(server.ChannelOutput)}
func (h *Hub) Sink(channel string) display.Sink {
	return display.SinkFunc(func(text string) {
		h.Broadcast(Message{Channel: channel, Text: text, Timestamp: time.Now()})
	})
}

// Broadcast sends a message to all clients. Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode display message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.latest[msg.Channel] = data

	for id, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.log.Warn("websocket client too slow, dropping", zap.Stringer("client", id))
			delete(h.clients, id)
			close(client.Send)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
}

// register adds a client and queues the latest message of each channel for it.
func (h *Hub) register(conn *websocket.Conn) (*Client, bool) {
	client := &Client{
		ID:   uuid.New(),
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
		hub:  h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}
	for _, channel := range []string{ChannelOutput, ChannelTimer} {
		if data, ok := h.latest[channel]; ok {
			client.Send <- data
		}
	}
	h.clients[client.ID] = client

	h.log.Info("websocket client connected", zap.Stringer("client", client.ID))
	return client, true
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
	h.log.Info("websocket client disconnected", zap.Stringer("client", client.ID))
}

// Serve runs a websocket connection until it closes.
func (h *Hub) Serve(conn *websocket.Conn) {
	client, ok := h.register(conn)
	if !ok {
		_ = conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

// readPump drains client frames so pongs and close frames are processed.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read failed", zap.Stringer("client", c.ID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
