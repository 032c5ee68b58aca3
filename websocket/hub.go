package websocket

import (
	"context"
	"sync"
	"time"

	"webplayer/logger"
	"webplayer/types"
)

// TopicAll receives every event regardless of job
const TopicAll = "all"

// Hub fans out events to registered websocket clients
type Hub interface {
	Run(ctx context.Context)
	Broadcast(event types.Event)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
	ClientCount() int
}

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	// Registered clients mapped by topic (a job ID or TopicAll)
	clients map[string]map[*Client]bool

	broadcast  chan types.Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new websocket hub
func NewHub() Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main event loop and returns when ctx is done
func (h *hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.topic] == nil {
				h.clients[client.topic] = make(map[*Client]bool)
			}
			h.clients[client.topic][client] = true
			h.mu.Unlock()
			logger.Debug("websocket client connected", logger.String("topic", client.topic))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			logger.Debug("websocket client disconnected", logger.String("topic", client.topic))

		case event := <-h.broadcast:
			h.mu.Lock()
			if event.JobID != "" {
				h.deliver(event.JobID, event)
			}
			h.deliver(TopicAll, event)
			h.mu.Unlock()
		}
	}
}

// deliver sends to every client of topic, dropping clients whose buffer is full.
// Must be called with the lock held.
func (h *hub) deliver(topic string, event types.Event) {
	for client := range h.clients[topic] {
		select {
		case client.send <- event:
		default:
			h.remove(client)
		}
	}
}

// remove must be called with the lock held
func (h *hub) remove(client *Client) {
	clients, ok := h.clients[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.send)
		if len(clients) == 0 {
			delete(h.clients, client.topic)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// Broadcast queues an event for delivery; it never blocks the caller
func (h *hub) Broadcast(event types.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		logger.Warn("websocket broadcast channel full, dropping event",
			logger.String("type", event.Type),
			logger.String("jobId", event.JobID))
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients across all topics
func (h *hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}
