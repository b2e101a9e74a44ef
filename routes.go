package main

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"portal-chat/internal/api"
	"portal-chat/internal/config"
	"portal-chat/internal/dashboard"
	"portal-chat/internal/handlers"
	"portal-chat/internal/middleware"
	"portal-chat/internal/notify"
	"portal-chat/internal/observability"
	"portal-chat/internal/ws"
)

type routerDeps struct {
	manager  *dashboard.Manager
	orders   api.OrderAPI
	hub      *ws.Hub
	notifier notify.Notifier
}

func newRouter(cfg config.Config, logger *slog.Logger, deps routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.ServiceName),
		observability.RequestIDMiddleware(),
		observability.HTTPMetricsMiddleware(),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": deps.manager.Len()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", ws.NewHandler(deps.hub, cfg.JWTSecret, deps.manager, logger).Handle)

	v1 := router.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))
	handlers.NewDashboardHandler(deps.manager, deps.orders, logger).Register(v1)
	handlers.RegisterDebugRoutes(v1, deps.notifier, cfg.DebugRoutes)

	return router
}
