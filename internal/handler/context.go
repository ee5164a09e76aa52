package handler

import (
	"errors"
	"net/http"

	"chattrix/internal/model"
	"chattrix/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Keys set on the gin context by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// CallerID returns the authenticated user id, or "" when absent.
func CallerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// writeError maps service errors to HTTP responses. Only 5xx are logged as errors.
func writeError(c *gin.Context, log *zap.Logger, op string, err error) {
	log = logger.WithTrace(c.Request.Context(), log)

	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, model.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": model.ErrForbidden.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": model.ErrNotFound.Error()})
	default:
		log.Error(op+": failed",
			zap.String("user_id", CallerID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}
