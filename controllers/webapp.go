package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/geezlabs/geez-bingo/game"
)

var engine *game.Engine

// Init wires the engine into the HTTP handlers.
func Init(e *game.Engine) {
	engine = e
}

// httpStatus maps an engine rejection to an HTTP status code.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, game.ErrSessionInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrAlreadyJoined),
		errors.Is(err, game.ErrCardTaken):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidCardID),
		errors.Is(err, game.ErrNoCardsAvailable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetWebAppData hands the card selector its session payload.
func GetWebAppData(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	payload, err := engine.WebAppData(c.Request.Context(), telegramID)
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

type selectCardRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	Username   string `json:"username"`
	Action     string `json:"action" binding:"required"`
	CardNumber int    `json:"card_number"`
	SessionID  string `json:"session_id"`
}

// SelectCard consumes a card-selection payload from the web app.
func SelectCard(c *gin.Context) {
	var req selectCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Action != "select_card" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}

	res, err := engine.SelectCard(c.Request.Context(), req.TelegramID, req.Username, game.SelectCardRequest{
		Action:     req.Action,
		CardNumber: req.CardNumber,
		SessionID:  req.SessionID,
	})
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"board_number": res.BoardNumber,
		"card":         res.Card,
		"paid":         res.Paid,
		"balance":      res.Balance,
		"pot":          res.Pot,
		"players":      res.PlayerCount,
	})
}

// GetState returns the public round state.
func GetState(c *gin.Context) {
	c.JSON(http.StatusOK, engine.Summary())
}

// GetWallet returns a user's balance and lifetime stats.
func GetWallet(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"telegram_id": telegramID,
		"balance":     engine.WalletOf(telegramID),
		"stats":       engine.PlayerStatsOf(telegramID),
	})
}
