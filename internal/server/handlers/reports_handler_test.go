package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/service/export"
	"github.com/mamadbah2/floorlog/internal/service/reporting"
)

type stubDays struct {
	deletion models.DayDeletion
	err      error
}

func (s stubDays) Days(context.Context, reporting.Filter) ([]models.DayGroup, error) {
	return nil, s.err
}

func (s stubDays) Day(context.Context, string) (models.DayGroup, error) {
	return models.DayGroup{}, s.err
}

func (s stubDays) DeleteDay(context.Context, string) (models.DayDeletion, error) {
	return s.deletion, s.err
}

type stubExporter struct {
	err error
}

func (s stubExporter) ExportDay(context.Context, string) (export.Workbook, error) {
	return export.Workbook{}, s.err
}

func (s stubExporter) PublishDay(context.Context, string) (int, error) {
	return 0, s.err
}

func serve(h *ReportsHandler, method, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.DELETE("/reports/days/:date", h.DeleteDay)
	r.GET("/reports/days", h.Days)
	r.POST("/reports/days/:date/sheets", h.PublishSheets)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestDeleteDayPartialIsMultiStatus(t *testing.T) {
	h := NewReportsHandler(stubDays{deletion: models.DayDeletion{
		Date:    "2024-05-01",
		Deleted: []models.RecordRef{{Group: models.Group1, ID: 1, Line: "L90"}},
		Failed:  []models.FailedDeletion{{RecordRef: models.RecordRef{Group: models.Group2, ID: 2, Line: "L84"}, Reason: "timeout"}},
	}}, stubExporter{}, nil)

	rec := serve(h, http.MethodDelete, "/reports/days/2024-05-01")
	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"timeout"`)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"storage", fmt.Errorf("load: %w", errors.New("socket closed")), http.StatusInternalServerError},
		{"sheets disabled", export.ErrSheetsDisabled, http.StatusServiceUnavailable},
		{"sheets failure", fmt.Errorf("publish: %w: %w", export.ErrPublishFailed, errors.New("quota")), http.StatusBadGateway},
		{"day missing", reporting.ErrDayNotFound, http.StatusNotFound},
		{"bad date", reporting.ErrInvalidDate, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewReportsHandler(stubDays{err: tc.err}, stubExporter{err: tc.err}, nil)
			rec := serve(h, http.MethodPost, "/reports/days/2024-05-01/sheets")
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	h := NewReportsHandler(stubDays{err: errors.New("secret dsn detail")}, stubExporter{}, nil)
	rec := serve(h, http.MethodGet, "/reports/days")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret dsn detail")
}
