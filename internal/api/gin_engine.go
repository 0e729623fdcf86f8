package api

import (
	"PaymentWebhooks/pkg/logger"
	"PaymentWebhooks/pkg/metrics"

	"github.com/gin-gonic/gin"
)

func NewGinEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(
		logger.CorrelationMiddleware(),
		metrics.GinMiddleware(),
		logger.GinRequestLogger(),
		gin.Recovery(),
	)
	return engine
}
