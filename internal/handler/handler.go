package handler

import (
	"errors"
	"net/http"

	cloud_errors "pats-cloud/pkg/errors"
	"pats-cloud/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error to the wire's {"error": message} shape.
// Validation and not-found errors carry their own message; anything else is
// a 500 with a generic body so internals never leak.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cloud_errors.ErrUploadNotFound), errors.Is(err, cloud_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case cloud_errors.IsMissingChunk(err), errors.Is(err, cloud_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cloud_errors.ErrInvalidPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
	case errors.Is(err, cloud_errors.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, cloud_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	default:
		if l := logger.GetGlobalLogger(); l != nil {
			l.Errorf("internal error: %s", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
