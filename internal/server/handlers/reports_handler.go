package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/service/export"
	"github.com/mamadbah2/floorlog/internal/service/reporting"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DayService exposes the day-grouped views.
type DayService interface {
	Days(ctx context.Context, filter reporting.Filter) ([]models.DayGroup, error)
	Day(ctx context.Context, date string) (models.DayGroup, error)
	DeleteDay(ctx context.Context, date string) (models.DayDeletion, error)
}

// Exporter renders and publishes day spreadsheets.
type Exporter interface {
	ExportDay(ctx context.Context, date string) (export.Workbook, error)
	PublishDay(ctx context.Context, date string) (int, error)
}

// ReportsHandler serves the day views and exports.
type ReportsHandler struct {
	days     DayService
	exporter Exporter
	logger   *zap.Logger
}

// NewReportsHandler constructs the reports handler.
func NewReportsHandler(days DayService, exporter Exporter, logger *zap.Logger) *ReportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportsHandler{days: days, exporter: exporter, logger: logger}
}

// Days lists day groups, optionally filtered by ?filter= and ?date=.
func (h *ReportsHandler) Days(c *gin.Context) {
	filter, err := reporting.ParseFilter(c.Query("filter"), c.Query("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	days, err := h.days.Days(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// Day returns both groups' records for one date.
func (h *ReportsHandler) Day(c *gin.Context) {
	day, err := h.days.Day(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// DeleteDay removes every record of the date. A partial failure answers 207
// with the per-record outcome.
func (h *ReportsHandler) DeleteDay(c *gin.Context) {
	result, err := h.days.DeleteDay(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if !result.Complete() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

// Export downloads the day's spreadsheet.
func (h *ReportsHandler) Export(c *gin.Context) {
	wb, err := h.exporter.ExportDay(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+wb.FileName+`"`)
	c.Data(http.StatusOK, xlsxContentType, wb.Content)
}

// PublishSheets appends the day's layout to the configured Google Sheet.
func (h *ReportsHandler) PublishSheets(c *gin.Context) {
	date := c.Param("date")
	rows, err := h.exporter.PublishDay(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"date": date, "rows": rows})
}
