package middleware

import (
	"net/http"

	"pats-cloud/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware gates a route group behind a live session cookie.
func AuthMiddleware(sessions *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.CookieName)
		if err != nil || !sessions.Valid(token) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
