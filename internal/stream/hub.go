// Package stream pushes simulation frames to browser clients over
// websockets and forwards their control messages.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"rc-physics-lab/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	sendBuffer = 16
	writeWait  = 2 * time.Second
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger
	clients  map[*client]struct{}
	latest   []byte
	mutex    sync.RWMutex

	onMessage func(clientID string, message []byte) []byte
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// SetMessageCallback registers the handler for text messages sent by
// clients. A non-nil reply is written back to the sender.
func (h *Hub) SetMessageCallback(callback func(clientID string, message []byte) []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.onMessage = callback
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Broadcast sends frame to every connected client. Slow clients miss
// frames rather than blocking the tick loop.
func (h *Hub) Broadcast(frame models.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Errorf("Failed to encode frame %d: %v", frame.Sequence, err)
		return
	}

	h.mutex.Lock()
	h.latest = payload
	h.mutex.Unlock()

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Debugf("Client %s too slow, dropping frame %d", c.id, frame.Sequence)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.send <- h.latest
	}
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mutex.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mutex.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.register(c)
	h.logger.Infof("Stream client %s connected from %s", c.id, r.RemoteAddr)

	go h.writeLoop(c)

	defer func() {
		h.unregister(c)
		conn.Close()
		h.logger.Infof("Stream client %s disconnected", c.id)
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Errorf("Read message error for %s: %v", c.id, err)
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}
		h.logger.Debugf("Received from %s: %s", c.id, string(message))

		h.mutex.RLock()
		onMessage := h.onMessage
		h.mutex.RUnlock()
		if onMessage == nil {
			continue
		}
		if reply := onMessage(c.id, message); reply != nil {
			h.mutex.RLock()
			if _, ok := h.clients[c]; ok {
				select {
				case c.send <- reply:
				default:
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Errorf("Write message error for %s: %v", c.id, err)
			c.conn.Close()
			return
		}
	}
}
