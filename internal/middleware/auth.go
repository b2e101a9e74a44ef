package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-chat/internal/identity"
)

const viewerKey = "viewer"

// AuthMiddleware validates the bearer session token and stores the viewer in
// the gin context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		token, ok := identity.BearerToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		viewer, err := identity.Parse(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		SetViewer(c, viewer)
		c.Next()
	}
}

// SetViewer stores viewer for later handlers.
func SetViewer(c *gin.Context, viewer identity.Viewer) {
	c.Set(viewerKey, viewer)
}

// Viewer returns the viewer stored by AuthMiddleware.
func Viewer(c *gin.Context) (identity.Viewer, bool) {
	v, ok := c.Get(viewerKey)
	if !ok {
		return identity.Viewer{}, false
	}
	viewer, ok := v.(identity.Viewer)
	return viewer, ok
}
