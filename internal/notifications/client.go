package notifications

import (
	"sync"
	"time"

	"recipeexchange/internal/middleware"
	"recipeexchange/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Viewers only send control frames.
	maxMessageSize = 512
	sendBuffer     = 64

	hubLabel = "recipe_feed"
)

// resyncNotice replaces events dropped for a slow viewer. Viewers that get it
// reload the feed over HTTP.
var resyncNotice = []byte(`{"type":"` + EventResync + `"}`)

// Client is one viewer of the recipe feed.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
	closeMsg  []byte
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// UserID is empty for anonymous viewers.
func (c *Client) UserID() string { return c.userID }

// Serve runs the connection until the viewer leaves or the hub closes it.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// stop ends the write loop, which sends closeMsg before closing the socket.
func (c *Client) stop(closeMsg []byte) {
	c.closeOnce.Do(func() {
		c.closeMsg = closeMsg
		close(c.done)
	})
}

func (c *Client) readLoop() {
	defer c.hub.UnregisterClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				middleware.Logger.Debug("recipe feed viewer dropped", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

// writeLoop is the only writer on the connection.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			msg := c.closeMsg
			if msg == nil {
				msg = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
			return
		}
	}
}

// Enqueue queues msg without blocking and reports whether it was queued.
// A viewer whose buffer is full loses msg and is sent a resync notice.
func (c *Client) Enqueue(msg []byte) bool {
	select {
	case <-c.done:
		observability.WebSocketBackpressureDrops.WithLabelValues(hubLabel, "closed").Inc()
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(hubLabel, "full").Inc()
	middleware.Logger.Warn("recipe feed buffer full, dropped event", "user_id", c.userID)
	select {
	case c.send <- resyncNotice:
	default:
	}
	return false
}
