package handlers

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/carprice/internal/errors"
	"github.com/stwalsh4118/carprice/internal/logger"
	"github.com/stwalsh4118/carprice/internal/metrics"
	"github.com/stwalsh4118/carprice/internal/middleware"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *metrics.Metrics
	CORSOrigins    []string
	MaxUploadBytes int64

	Health      *HealthHandler
	Listings    *ListingHandler
	Predictions *PredictionHandler
	Model       *ModelHandler
}

// NewRouter builds the Gin engine with middleware in order
// RequestID -> Logger -> Recovery -> Metrics -> CORS.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(cfg.Log))
	router.Use(middleware.Recovery(cfg.Log))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	router.Use(middleware.CORS(cfg.CORSOrigins))

	router.GET("/health", cfg.Health.Health)
	router.GET("/health/ready", cfg.Health.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", cfg.Health.Info)

		listings := v1.Group("/listings")
		{
			listings.GET("/preview", cfg.Listings.Preview)
			listings.GET("/options", cfg.Listings.Options)
			listings.GET("/summary", cfg.Listings.Summary)
		}

		predictions := v1.Group("/predictions")
		{
			predictions.POST("", cfg.Predictions.Predict)
			predictions.POST("/batch", middleware.BodyLimit(cfg.MaxUploadBytes), cfg.Predictions.PredictBatch)
		}

		model := v1.Group("/model")
		{
			model.GET("/metrics", cfg.Model.Metrics)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		apierrors.NotFound(c, "Route not found")
	})

	return router
}
