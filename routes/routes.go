package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/geezlabs/geez-bingo/controllers"
	"github.com/geezlabs/geez-bingo/services"
)

func SetupRoutes(r *gin.Engine, hub *services.Hub) {
	api := r.Group("/api")

	// Card-selector web form
	api.GET("/webapp/:telegram_id", controllers.GetWebAppData) // hand-off payload + session
	api.POST("/select", controllers.SelectCard)                // consume a selection

	// Round state and wallets
	api.GET("/state", controllers.GetState)
	api.GET("/wallet/:telegram_id", controllers.GetWallet)

	// History (requires DATABASE_URL)
	api.GET("/rounds", controllers.ListRounds)
	api.GET("/transactions/:telegram_id", controllers.ListTransactions)

	// Live state for connected selectors
	r.GET("/ws", hub.HandleWebSocket)
}
