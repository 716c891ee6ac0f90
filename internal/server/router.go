package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uizzuu/ddauction-project-sub000/internal/config"
	handler "github.com/uizzuu/ddauction-project-sub000/services/auction/handler"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(cfg *config.ServiceConfig, auctionHandler *handler.AuctionHandler, ws *WSHandler) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctions := router.Group("/auctions")
	{
		auctions.POST("", auctionHandler.CreateAuctionHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidsByAuctionHandler)
	}

	bids := router.Group("/bids")
	{
		bids.POST("", auctionHandler.PlaceBidHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/notifications", auctionHandler.GetNotificationsHandler)
	}

	notifications := router.Group("/notifications")
	{
		notifications.PUT("/:notification_id/read", auctionHandler.MarkNotificationReadHandler)
	}

	// Live per-auction channel
	router.GET("/ws/auctions/:auction_id", ws.Handle)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	return router
}
