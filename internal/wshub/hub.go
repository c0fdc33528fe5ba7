package wshub

import (
	"context"
	"log"
	"sync"

	"github.com/coder/websocket"
)

// Client is a single WebSocket connection following a room. PlayerID may
// be empty for a spectator; the hub never assumes one connection per
// player, the same player can watch from several tabs.
type Client struct {
	PlayerID string
	Conn     *websocket.Conn
	Send     chan []byte
}

func NewClient(playerID string, conn *websocket.Conn) *Client {
	return &Client{
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, 10),
	}
}

// WritePump reads from the Send channel and writes to the WebSocket
// connection. Returns on context cancellation, channel close or write
// failure.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub tracks the WebSocket clients of one room.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.Send)
	}
}

// Broadcast sends a per-player rendering to every client. Each player
// sees their own view of the room, so the payload is built per client
// rather than once. Non-blocking: drops for clients with full channels.
func (h *Hub) Broadcast(render func(playerID string) ([]byte, error)) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		data, err := render(c.PlayerID)
		if err != nil {
			log.Printf("[WSHub] Render error for player %s: %v\n", c.PlayerID, err)
			continue
		}
		select {
		case c.Send <- data:
		default:
			// drop for clients with full channels
		}
	}
}

// Len reports the current client count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
