package api

import (
	"net/http"

	"pizza-service/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps err onto a status code and JSON body. Storage and internal
// failures are logged and answered without details.
func (h *Handler) writeError(c *gin.Context, err error) {
	if ve, ok := apperr.AsValidation(err); ok {
		if len(ve.MissingPizzaIDs) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":           "pizzas not found",
				"missingPizzaIds": ve.MissingPizzaIDs,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
		return
	}

	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", apperr.Kind(err)),
			zap.Error(err))
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest answers a body that could not be decoded
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request body",
		"details": err.Error(),
	})
}
