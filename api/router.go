package api

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires the board routes. gatherer may be nil to skip /metrics.
func NewRouter(h *Handler, logger *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", h.HealthCheckHandler)
		apiGroup.GET("/board", h.GetBoardHandler)
		apiGroup.POST("/board/reload", h.ReloadBoardHandler)
		apiGroup.POST("/board/moves", h.MoveTaskHandler)
		apiGroup.POST("/columns", h.AddColumnHandler)
		apiGroup.PATCH("/columns/:columnId", h.RenameColumnHandler)
		apiGroup.DELETE("/columns/:columnId", h.DeleteColumnHandler)
		apiGroup.POST("/columns/:columnId/tasks", h.AddTaskHandler)
		apiGroup.DELETE("/columns/:columnId/tasks/:taskId", h.DeleteTaskHandler)
		apiGroup.GET("/reconcile/failures", h.FailuresHandler)
	}

	return router
}
