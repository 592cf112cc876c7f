package server

import (
	"log/slog"

	"recipeexchange/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// websocketUpgradeRequired rejects plain HTTP requests to websocket routes.
func (s *Server) websocketUpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// RecipeFeedHandler streams recipe events to viewers. Anonymous viewers are
// welcome; the session middleware has already resolved the caller if any.
func (s *Server) RecipeFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(localsUserID).(string)

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		// Register connection with scaling guardrails
		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("recipe feed registration refused",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		client.Serve()
	})
}
