package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes, read only
	v1 := router.Group("/api/v1")
	{
		// Spatial lookups
		v1.POST("/contours/by/inner-geohash", handler.ContoursByInnerGeohash)
		v1.POST("/contours/by/parent-geohash", handler.ContoursByParentGeohash)

		// Tokens
		v1.POST("/tokens/search", handler.SearchTokens)
		v1.GET("/tokens/:contract/:id", handler.GetToken)

		// Marketplace
		v1.POST("/orders/search", handler.SearchOrders)
		v1.GET("/orders/:contract/:id", handler.GetOrder)
		v1.POST("/offers/search", handler.SearchOffers)

		// Applications
		v1.POST("/applications/search", handler.SearchApplications)
		v1.GET("/applications/:contract/:id", handler.GetApplication)

		// Communities
		v1.POST("/communities/search", handler.SearchCommunities)
	}
}
