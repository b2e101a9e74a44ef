package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-chat/internal/middleware"
	"portal-chat/internal/models"
	"portal-chat/internal/notify"
	"portal-chat/internal/observability"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRouter, notifier notify.Notifier, enabled bool) {
	if !enabled {
		return
	}

	router.POST("/debug/notify-test", func(c *gin.Context) {
		if notifier == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifier not configured"})
			return
		}
		viewer, ok := middleware.Viewer(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing viewer"})
			return
		}
		n := models.Notification{
			ViewerEmail: viewer.Email,
			Title:       "Test notification",
			Body:        "Notifications are working",
			Action:      notify.ActionOpenConversation,
		}
		if err := notifier.Notify(c.Request.Context(), n); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": observability.RequestID(c)})
	})
}
