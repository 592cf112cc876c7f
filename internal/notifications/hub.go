package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"recipeexchange/internal/middleware"
	"recipeexchange/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per signed-in user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrUserConnLimit   = errors.New("user connection limit reached")
)

// Hub holds the live recipe feed connections. Anonymous viewers register
// with an empty user ID.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Client]struct{}
	perUser      map[string]int
	shutdownOnce sync.Once
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		perUser: make(map[string]int),
	}
}

// Register adds a connection. Returns an error if limits are exceeded.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= maxTotalConns {
		return nil, ErrServerConnLimit
	}
	if userID != "" && h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserConnLimit
	}

	client := newClient(h, conn, userID)
	h.clients[client] = struct{}{}
	if userID != "" {
		h.perUser[userID]++
	}
	middleware.ActiveWebSockets.Inc()
	return client, nil
}

// UnregisterClient removes client. Safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.stop(nil)
	if client.userID != "" {
		h.perUser[client.userID]--
		if h.perUser[client.userID] <= 0 {
			delete(h.perUser, client.userID)
		}
	}
	middleware.ActiveWebSockets.Dec()
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.clients {
		c.Enqueue(data)
	}
}

// Deliver forwards a published event payload to every client.
func (h *Hub) Deliver(payload string) {
	var event RecipeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil || event.Type == "" {
		middleware.Logger.Warn("dropping malformed recipe event", "payload", payload)
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(event.Type).Inc()
	h.BroadcastAll(payload)
}

// StartWiring connects the Notifier to this hub. Without Redis, events are
// delivered in-process.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	if n.rdb == nil {
		n.SetLocalSink(h.Deliver)
		return nil
	}
	return n.StartSubscriber(ctx, h.Deliver)
}

// Shutdown tells every viewer the server is going away and forgets them.
func (h *Hub) Shutdown(_ context.Context) error {
	h.shutdownOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		goingAway := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		for client := range h.clients {
			client.stop(goingAway)
		}
		middleware.Logger.Info("recipe feed closed", "viewers", len(h.clients))
		middleware.ActiveWebSockets.Sub(float64(len(h.clients)))
		h.clients = make(map[*Client]struct{})
		h.perUser = make(map[string]int)
	})
	return nil
}
