package handler

import (
	"errors"
	"net/http"

	"chronos/internal/service"
	"chronos/pkg/logger"
	sheetsstore "chronos/pkg/store/sheets"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP responses
func respondError(c *gin.Context, action string, err error) {
	ctx := c.Request.Context()

	var saveErr *sheetsstore.SaveError
	switch {
	case errors.Is(err, service.ErrValidation):
		logger.WarnCtx(ctx, "%s rejected: %v", action, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrLockBusy):
		logger.WarnCtx(ctx, "%s: %v", action, err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &saveErr):
		logger.ErrorCtx(ctx, "failed to %s: %v", action, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to save to the spreadsheet", "failed": saveErr.Failed})
	case errors.Is(err, service.ErrStoreUnavailable):
		logger.ErrorCtx(ctx, "failed to %s: %v", action, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "spreadsheet unavailable"})
	default:
		logger.ErrorCtx(ctx, "failed to %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
