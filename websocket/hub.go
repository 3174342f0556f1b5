package websocket

import (
	"context"
	"sync"

	"github.com/anjiri1684/driving_school/models"
	"github.com/rs/zerolog/log"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID string
	Conn   Conn
}

// Hub pushes notification messages to the dashboards of connected users.
// One connection per user; a newer connection replaces the older one.
type Hub struct {
	clients    map[string]Conn
	clientsMu  sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.Message
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.Message, 64),
		done:       make(chan struct{}),
	}
}

// Register and Unregister are no-ops once Run has returned.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Deliver queues msg for the recipient's connection, if any.
func (h *Hub) Deliver(ctx context.Context, msg models.Message) error {
	if msg.RecipientID == "" {
		return nil
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports whether userID has a live connection.
func (h *Hub) Connected(userID string) bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			log.Debug().Str("user_id", client.UserID).Msg("Client registered")
			h.clientsMu.Lock()
			if old, ok := h.clients[client.UserID]; ok && old != client.Conn {
				_ = old.Close()
			}
			h.clients[client.UserID] = client.Conn
			h.clientsMu.Unlock()
		case client := <-h.unregister:
			log.Debug().Str("user_id", client.UserID).Msg("Client unregistered")
			h.clientsMu.Lock()
			if conn, ok := h.clients[client.UserID]; ok && conn == client.Conn {
				delete(h.clients, client.UserID)
			}
			h.clientsMu.Unlock()
		case msg := <-h.broadcast:
			h.push(msg)
		}
	}
}

func (h *Hub) push(msg models.Message) {
	h.clientsMu.RLock()
	conn, ok := h.clients[msg.RecipientID]
	h.clientsMu.RUnlock()
	if !ok {
		return
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn().Err(err).Str("user_id", msg.RecipientID).Msg("Error sending notification to client")
		_ = conn.Close()
		h.clientsMu.Lock()
		if h.clients[msg.RecipientID] == conn {
			delete(h.clients, msg.RecipientID)
		}
		h.clientsMu.Unlock()
	}
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for id, conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, id)
	}
}
