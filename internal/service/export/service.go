package export

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/repository/sheets"
)

var (
	// ErrSheetsDisabled is returned by PublishDay when no Google Sheets
	// credentials are configured.
	ErrSheetsDisabled = errors.New("google sheets publishing is not configured")
	// ErrPublishFailed wraps errors reported by the Sheets API.
	ErrPublishFailed = errors.New("google sheets publish failed")
)

// DaySource loads the records of one day for both groups.
type DaySource interface {
	Day(ctx context.Context, date string) (models.DayGroup, error)
}

// Workbook is a rendered day export.
type Workbook struct {
	FileName string
	Content  []byte
}

// Service renders day exports and optionally publishes them to Google Sheets.
type Service struct {
	days       DaySource
	sheets     sheets.Repository
	sheetRange string
	logger     *zap.Logger
}

// NewService builds an export service. publisher may be nil when publishing
// is disabled.
func NewService(days DaySource, publisher sheets.Repository, sheetRange string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{days: days, sheets: publisher, sheetRange: sheetRange, logger: logger}
}

// PublishingEnabled reports whether PublishDay can reach Google Sheets.
func (s *Service) PublishingEnabled() bool {
	return s.sheets != nil
}

// ExportDay renders the spreadsheet of one day.
func (s *Service) ExportDay(ctx context.Context, date string) (Workbook, error) {
	day, err := s.days.Day(ctx, date)
	if err != nil {
		return Workbook{}, err
	}

	content, err := RenderXLSX(BuildDaySheet(day))
	if err != nil {
		s.logger.Error("render day workbook failed", zap.String("date", date), zap.Error(err))
		return Workbook{}, fmt.Errorf("render workbook for %s: %w", date, err)
	}

	s.logger.Info("day exported", zap.String("date", date), zap.Int("records", day.Total), zap.Int("bytes", len(content)))
	return Workbook{FileName: FileName(date), Content: content}, nil
}

// PublishDay appends the day's layout to the configured sheet range and
// returns the number of rows sent.
func (s *Service) PublishDay(ctx context.Context, date string) (int, error) {
	if s.sheets == nil {
		return 0, ErrSheetsDisabled
	}

	day, err := s.days.Day(ctx, date)
	if err != nil {
		return 0, err
	}

	rows := BuildDaySheet(day).Rows()
	if err := s.sheets.AppendRows(ctx, s.sheetRange, rows); err != nil {
		s.logger.Error("publish day to sheets failed", zap.String("date", date), zap.Error(err))
		return 0, fmt.Errorf("publish %s: %w: %w", date, ErrPublishFailed, err)
	}

	s.logger.Info("day published to sheets", zap.String("date", date), zap.String("range", s.sheetRange), zap.Int("rows", len(rows)))
	return len(rows), nil
}
