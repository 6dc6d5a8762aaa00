package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-blink/internal/log"
	"github.com/teslashibe/go-blink/pkg/event"
)

var (
	// ErrBroadcastFull is returned by Publish when the broadcast channel is
	// full and the message was dropped.
	ErrBroadcastFull = errors.New("hub: broadcast channel full")

	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("hub: stopped")
)

// BinaryHandler receives binary messages sent by a client.
type BinaryHandler func(clientID uuid.UUID, data []byte)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Name for logging
	name string
	log  *slog.Logger

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run exits
	done chan struct{}

	// Guards clients (read-only access from outside) and onBinary
	mu       sync.RWMutex
	onBinary BinaryHandler
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		log:        log.Component("hub").With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// OnBinary sets the handler for binary client messages (frame uploads).
func (h *Hub) OnBinary(fn BinaryHandler) {
	h.mu.Lock()
	h.onBinary = fn
	h.mu.Unlock()
}

// Run starts the hub's main loop and blocks until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.log.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client connected", "client_id", client.id, "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client disconnected", "client_id", client.id, "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's buffer is full, they're too slow
					close(client.send)
					delete(h.clients, client)
					h.log.Warn("dropped slow client", "client_id", client.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for all connected clients. It never blocks;
// it reports false when the message was dropped.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.log.Warn("broadcast channel full, dropping message")
		return false
	}
}

// Publish implements event.Sink.
func (h *Hub) Publish(name string, payload event.Payload) error {
	msg, err := EncodeEvent(name, payload)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrStopped
	default:
	}
	if !h.Broadcast(msg) {
		return ErrBroadcastFull
	}
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) binary(id uuid.UUID, data []byte) {
	h.mu.RLock()
	fn := h.onBinary
	h.mu.RUnlock()
	if fn == nil {
		h.log.Debug("ignoring binary message", "client_id", id, "bytes", len(data))
		return
	}
	fn(id, data)
}

// join registers c unless the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters c unless the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
