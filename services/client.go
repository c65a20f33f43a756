package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/geezlabs/geez-bingo/game"
	"github.com/geezlabs/geez-bingo/utils/logger"
)

// Client is one connected card-selector web client.
type Client struct {
	userID   int64
	username string
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte
	once     sync.Once
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

type clientMessage struct {
	Action     string `json:"action"`
	CardNumber int    `json:"card_number"`
	SessionID  string `json:"session_id,omitempty"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c.userID)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("ws client %d disconnected", c.userID)
			} else {
				logger.Warnf("ws client %d read error: %v", c.userID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warnf("ws client %d sent invalid payload: %v", c.userID, err)
			continue
		}

		switch msg.Action {
		case "select_card":
			req := game.SelectCardRequest{
				Action:     msg.Action,
				CardNumber: msg.CardNumber,
				SessionID:  msg.SessionID,
			}
			res, err := c.hub.engine.SelectCard(context.Background(), c.userID, c.username, req)
			if err != nil {
				c.hub.notifyClient(c.userID, rejectionText(err))
				continue
			}
			c.hub.notifyClient(c.userID, joinedText(res))
		default:
			logger.Debugf("ws client %d unknown action %q", c.userID, msg.Action)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Warnf("ws client %d write error: %v", c.userID, err)
			return
		}
	}
}
