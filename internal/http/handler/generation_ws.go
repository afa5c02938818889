package handler

import (
	"log"

	"ars-backend/internal/config"
	"ars-backend/internal/realtime"

	"github.com/gofiber/websocket/v2"
)

// GenerationWebSocket streams TTS generation status events. The browser
// websocket API cannot set headers, so the access token travels as a query
// parameter instead.
func GenerationWebSocket(c *websocket.Conn) {
	token := c.Query("token")
	claims, err := config.ValidateToken(token, config.TokenTypeAccess)
	if err != nil {
		log.Printf("[ws] rejected connection from %s: %v", c.RemoteAddr(), err)
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
		c.Close()
		return
	}

	log.Printf("[ws] %s connected from %s", claims.Username, c.RemoteAddr())
	realtime.Generations.Register <- c
	defer func() {
		realtime.Generations.Unregister <- c
		log.Printf("[ws] %s disconnected", claims.Username)
	}()

	// Clients only listen; the read loop just detects disconnects.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				log.Printf("[ws] %s unexpected close: %v", claims.Username, err)
			}
			return
		}
	}
}
