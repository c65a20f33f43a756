package services

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/geezlabs/geez-bingo/utils/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades a card-selector client connection. Identity is
// the telegram_id query parameter; the single-use session id in selection
// payloads is the actual gate on actions.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Query("telegram_id"), 10, 64)
	if err != nil || telegramID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "telegram_id is required"})
		return
	}
	username := c.Query("name")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("ws upgrade failed for user %d: %v", telegramID, err)
		return
	}

	client := &Client{
		userID:   telegramID,
		username: username,
		conn:     conn,
		hub:      h,
		send:     make(chan []byte, 32),
	}
	h.addClient(client)
}
