package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vehiclematch/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.GET("/makes", handler.ListMakes)
		v1.POST("/recommendations", handler.Recommend)

		catalog := v1.Group("/catalog")
		{
			catalog.GET("/preview", handler.PreviewCatalog)
			catalog.POST("", handler.UploadCatalog)
		}
	}

	return router
}
