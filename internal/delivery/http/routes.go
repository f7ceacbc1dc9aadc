package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verdictapp/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		products := v1.Group("/products")
		{
			products.POST("", handler.CreateProduct)
			products.GET("/:id", handler.GetProduct)
			products.POST("/duplicates", handler.FindDuplicates)
			products.POST("/duplicates/batch", handler.FindDuplicatesBatch)
			products.POST("/score", handler.ScoreProducts)
		}

		recalls := v1.Group("/recalls")
		{
			recalls.POST("/match", handler.MatchRecalls)
		}
	}

	return router
}
