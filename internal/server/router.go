package server

import (
	handler "auction-engine/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(
	biddingService handler.BiddingServiceInterface,
	orderService handler.OrderServiceInterface,
	sweeper handler.SweeperInterface,
	adminUsers []string,
) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(UserIDMiddleware)        // caller identity from X-User-ID

	biddingHandler := handler.NewBiddingHandler(biddingService)
	orderHandler := handler.NewOrderHandler(orderService)
	adminHandler := handler.NewAdminHandler(sweeper)

	bids := router.Group("/bids")
	{
		bids.POST("", RequireUser, biddingHandler.RecordBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.POST("", RequireUser, biddingHandler.CreateAuctionHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsByAuctionHandler)
		auctions.GET("/:auction_id/winning", biddingHandler.GetWinningBidHandler)
		auctions.POST("/:auction_id/bans", RequireUser, biddingHandler.BanBidderHandler)
		auctions.PUT("/:auction_id/end-time", RequireUser, biddingHandler.ExtendEndTimeHandler)
		auctions.GET("/:auction_id/order", RequireUser, orderHandler.GetOrderHandler)
		auctions.POST("/:auction_id/feedback", RequireUser, orderHandler.SubmitFeedbackHandler)
		auctions.GET("/:auction_id/feedback", orderHandler.ListFeedbackHandler)
	}

	orders := router.Group("/orders", RequireUser)
	{
		orders.POST("/:order_id/advance", orderHandler.AdvanceOrderHandler)
		orders.POST("/:order_id/messages", orderHandler.SendMessageHandler)
		orders.GET("/:order_id/messages", orderHandler.ListMessagesHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/auctions", biddingHandler.GetAuctionsByUserHandler)
		users.GET("/:user_id/reputation", orderHandler.GetReputationHandler)
	}

	admin := router.Group("/admin", RequireUser, RequireAdmin(adminUsers))
	{
		admin.POST("/sweep", adminHandler.SweepHandler)
	}

	return router
}
