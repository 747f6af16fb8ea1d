package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/service/export"
	"github.com/mamadbah2/floorlog/internal/service/records"
	"github.com/mamadbah2/floorlog/internal/service/reporting"
)

// respondError maps service errors onto HTTP responses. Storage details only
// reach the log.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": verr.Fields})
	case errors.Is(err, records.ErrDateNotAllowed),
		errors.Is(err, reporting.ErrInvalidDate),
		errors.Is(err, reporting.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, records.ErrDuplicateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, records.ErrNotFound), errors.Is(err, reporting.ErrDayNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, export.ErrSheetsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, export.ErrPublishFailed):
		logger.Error("sheets publish failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to publish to google sheets"})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// groupParam resolves :group and answers 404 for unknown groups.
func groupParam(c *gin.Context) (models.Group, bool) {
	group, err := models.ParseGroup(c.Param("group"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return group, true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}
