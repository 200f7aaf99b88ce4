// Package websocket pushes like events to every connected browser tab.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/postscript-blog/postscript/logger"
)

// MessageType is the topic a message belongs to.
type MessageType string

const (
	// MessageTypeLike carries an entity.LikeEvent. Same name as the browser channel.
	MessageTypeLike MessageType = "post-likes"
)

const (
	sendBufferSize = 16
	maxMessageSize = 64 * 1024
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
	Time    int64       `json:"time"`
}

// Client is one connected tab. Topics empty means everything.
type Client struct {
	ID     string
	Send   chan []byte
	Topics map[MessageType]bool
}

func NewClient(id string, topics ...MessageType) *Client {
	c := &Client{
		ID:     id,
		Send:   make(chan []byte, sendBufferSize),
		Topics: make(map[MessageType]bool, len(topics)),
	}
	for _, t := range topics {
		c.Topics[t] = true
	}
	return c
}

func (c *Client) wants(t MessageType) bool {
	return len(c.Topics) == 0 || c.Topics[t]
}

type envelope struct {
	topic MessageType
	data  []byte
}

// Hub owns the client set. Only Run touches it for writes.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			logger.Debugf("WebSocket client connected: %s (total: %d)", client.ID, count)

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients {
				if !client.wants(msg.topic) {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			// A tab that cannot keep up is dropped; its script falls back to polling.
			for _, client := range slow {
				logger.Debugf("WebSocket client %s send buffer full, disconnecting", client.ID)
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		logger.Debugf("WebSocket client disconnected: %s (total: %d)", client.ID, len(h.clients))
	}
}

// Broadcast queues payload for every client subscribed to messageType. It never blocks
// for long: when the queue is full the message is dropped.
func (h *Hub) Broadcast(messageType MessageType, payload any) {
	if h == nil || payload == nil {
		return
	}
	data, err := json.Marshal(Message{
		Type:    messageType,
		Payload: payload,
		Time:    time.Now().UnixMilli(),
	})
	if err != nil {
		logger.Error("Failed to marshal WebSocket message:", err)
		return
	}
	if len(data) > maxMessageSize {
		logger.Warningf("WebSocket message too large: %d bytes, dropping", len(data))
		return
	}

	select {
	case h.broadcast <- envelope{topic: messageType, data: data}:
	case <-time.After(100 * time.Millisecond):
		logger.Warning("WebSocket broadcast channel is full, dropping message")
	case <-h.ctx.Done():
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Register(client *Client) {
	if h == nil || client == nil {
		return
	}
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	if h == nil || client == nil {
		return
	}
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Stop closes every client and waits for Run to return. Run must have been started.
func (h *Hub) Stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}
