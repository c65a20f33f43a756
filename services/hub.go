package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/geezlabs/geez-bingo/game"
	"github.com/geezlabs/geez-bingo/utils/logger"
)

// Hub fans engine state out to connected card-selector clients. A client
// whose send buffer is full simply misses that frame; the next state push
// catches it up.
type Hub struct {
	engine *game.Engine

	mu      sync.RWMutex
	clients map[int64]*Client
}

func NewHub(engine *game.Engine) *Hub {
	return &Hub{
		engine:  engine,
		clients: make(map[int64]*Client),
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if old, ok := h.clients[c.userID]; ok {
		old.Close()
	}
	h.clients[c.userID] = c
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()

	logger.Infof("ws client %d connected (total=%d)", c.userID, h.clientCount())
	h.Broadcast(h.engine.Summary())
}

func (h *Hub) removeClient(userID int64) {
	h.mu.Lock()
	if c, ok := h.clients[userID]; ok {
		delete(h.clients, userID)
		c.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type stateFrame struct {
	Type string `json:"type"`
	game.StateSummary
}

// Broadcast pushes a state summary to every connected client.
func (h *Hub) Broadcast(s game.StateSummary) {
	data, err := json.Marshal(stateFrame{Type: "state", StateSummary: s})
	if err != nil {
		logger.Errorf("state frame marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			logger.Debugf("dropping state frame for ws client %d", id)
		}
	}
}

type notificationFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// notifyClient sends a point-to-point notification to one web client. The
// send happens under the read lock: removeClient closes the channel under
// the write lock, so the two cannot interleave.
func (h *Hub) notifyClient(userID int64, message string) {
	data, _ := json.Marshal(notificationFrame{Type: "notification", Message: message})

	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Debugf("dropping notification for ws client %d", userID)
	}
}

func rejectionText(err error) string {
	return fmt.Sprintf("Selection failed: %v", err)
}

func joinedText(res *game.JoinResult) string {
	return fmt.Sprintf("Joined with card #%d. Paid %d coins, pot is now %d.",
		res.BoardNumber, res.Paid, res.Pot)
}
