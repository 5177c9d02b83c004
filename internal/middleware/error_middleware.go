package middleware

import (
	"pats-cloud/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler logs errors attached to the context and renders the last one
// as the wire-standard {"error": ...} body, without leaking internals.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s", err.Error())
		}
		if !c.Writer.Written() {
			c.JSON(c.Writer.Status(), gin.H{"error": err.Error()})
		}
	}
}
