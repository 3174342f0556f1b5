package handlers

import (
	"github.com/anjiri1684/driving_school/middleware"
	"github.com/anjiri1684/driving_school/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// ServeWs expects {"type":"auth","token":...} as the first frame, then
// pushes the user's notifications until the socket closes. Frames sent by the
// client after auth are ignored.
func (h *Handler) ServeWs(c *websocketcontrib.Conn) {
	var auth authMessage
	if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		log.Debug().Err(err).Msg("WebSocket auth failed: invalid or missing auth message")
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		_ = c.Close()
		return
	}

	userID, _, err := middleware.ParseToken(h.JWTSecret, auth.Token)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		_ = c.Close()
		return
	}

	// written before Register: afterwards only the hub writes to c
	if err := c.WriteJSON(fiber.Map{"type": "ready"}); err != nil {
		_ = c.Close()
		return
	}
	client := &websocket.Client{UserID: userID.String(), Conn: c}
	h.Hub.Register(client)
	defer func() {
		h.Hub.Unregister(client)
		_ = c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				log.Debug().Str("user_id", userID.String()).Msg("WebSocket closed")
			} else {
				log.Debug().Err(err).Str("user_id", userID.String()).Msg("WebSocket read error")
			}
			return
		}
	}
}
