package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/repository"
)

// FilterMode selects the time window of the day listing.
type FilterMode string

const (
	FilterAll         FilterMode = "all"
	FilterThisWeek    FilterMode = "thisWeek"
	FilterThisMonth   FilterMode = "thisMonth"
	FilterSpecificDay FilterMode = "specificDay"
)

// weekStart follows the pt-BR locale week, Sunday through Saturday.
const weekStart = time.Sunday

var (
	// ErrInvalidFilter reports an unknown mode or a bad specificDay date.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidDate reports a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrDayNotFound means no record of either group exists for the date.
	ErrDayNotFound = errors.New("no records for day")
)

// Filter is a day-listing window. Day is only used by FilterSpecificDay.
type Filter struct {
	Mode FilterMode
	Day  string
}

// ParseFilter validates query parameters. An empty mode means FilterAll.
func ParseFilter(mode, day string) (Filter, error) {
	switch FilterMode(mode) {
	case "", FilterAll:
		return Filter{Mode: FilterAll}, nil
	case FilterThisWeek, FilterThisMonth:
		return Filter{Mode: FilterMode(mode)}, nil
	case FilterSpecificDay:
		if !models.ValidDate(day) {
			return Filter{}, fmt.Errorf("%w: specificDay needs date=YYYY-MM-DD", ErrInvalidFilter)
		}
		return Filter{Mode: FilterSpecificDay, Day: day}, nil
	default:
		return Filter{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidFilter, mode)
	}
}

// GroupByDay builds one DayGroup per distinct collection date, newest day
// first, with each group's records ordered by production line.
func GroupByDay(group1, group2 []models.Record) []models.DayGroup {
	byDate := make(map[string]*models.DayGroup)
	get := func(date string) *models.DayGroup {
		day, ok := byDate[date]
		if !ok {
			day = &models.DayGroup{Date: date, Group1: []models.Record{}, Group2: []models.Record{}}
			byDate[date] = day
		}
		return day
	}

	for _, r := range group1 {
		day := get(r.CollectionDate)
		day.Group1 = append(day.Group1, r)
		day.Total++
	}
	for _, r := range group2 {
		day := get(r.CollectionDate)
		day.Group2 = append(day.Group2, r)
		day.Total++
	}

	days := make([]models.DayGroup, 0, len(byDate))
	for _, day := range byDate {
		models.SortByLine(day.Group1)
		models.SortByLine(day.Group2)
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days
}

// ApplyFilter keeps the days inside the filter window. now must already be
// in the business time zone. The input slice is not modified.
func ApplyFilter(days []models.DayGroup, filter Filter, now time.Time) []models.DayGroup {
	var keep func(date string) bool

	switch filter.Mode {
	case FilterThisWeek:
		offset := (int(now.Weekday()) - int(weekStart) + 7) % 7
		start := now.AddDate(0, 0, -offset).Format(models.DateLayout)
		end := now.AddDate(0, 0, 6-offset).Format(models.DateLayout)
		keep = func(date string) bool { return date >= start && date <= end }
	case FilterThisMonth:
		month := now.Format("2006-01")
		keep = func(date string) bool { return len(date) >= 7 && date[:7] == month }
	case FilterSpecificDay:
		keep = func(date string) bool { return date == filter.Day }
	default:
		return days
	}

	out := make([]models.DayGroup, 0, len(days))
	for _, day := range days {
		if keep(day.Date) {
			out = append(out, day)
		}
	}
	return out
}

// Service exposes the day-grouped views used by the dashboard and export.
type Service struct {
	store    repository.Store
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(store repository.Store, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{store: store, location: location, logger: logger, now: time.Now}
}

// Days groups every record by day and applies the filter.
func (s *Service) Days(ctx context.Context, filter Filter) ([]models.DayGroup, error) {
	group1, err := s.store.List(ctx, models.Group1)
	if err != nil {
		return nil, fmt.Errorf("load group1 records: %w", err)
	}
	group2, err := s.store.List(ctx, models.Group2)
	if err != nil {
		return nil, fmt.Errorf("load group2 records: %w", err)
	}

	days := ApplyFilter(GroupByDay(group1, group2), filter, s.now().In(s.location))
	s.logger.Debug("days grouped",
		zap.String("filter", string(filter.Mode)),
		zap.Int("records", len(group1)+len(group2)),
		zap.Int("days", len(days)))
	return days, nil
}

// Day returns the records of a single date.
func (s *Service) Day(ctx context.Context, date string) (models.DayGroup, error) {
	if !models.ValidDate(date) {
		return models.DayGroup{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	group1, group2, err := s.loadDay(ctx, date)
	if err != nil {
		return models.DayGroup{}, err
	}

	days := GroupByDay(group1, group2)
	if len(days) == 0 {
		return models.DayGroup{}, ErrDayNotFound
	}
	return days[0], nil
}

// DeleteDay deletes every record of both groups for the date, one by one and
// without a transaction. The result lists each deleted and each failed record
// so a partial failure stays visible to the caller.
func (s *Service) DeleteDay(ctx context.Context, date string) (models.DayDeletion, error) {
	if !models.ValidDate(date) {
		return models.DayDeletion{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	group1, group2, err := s.loadDay(ctx, date)
	if err != nil {
		return models.DayDeletion{}, err
	}

	result := models.DayDeletion{Date: date, Deleted: []models.RecordRef{}, Failed: []models.FailedDeletion{}}
	for _, r := range append(group1, group2...) {
		ref := models.RecordRef{Group: r.Group, ID: r.ID, Line: r.ProductionLine}
		if err := s.store.Delete(ctx, r.Group, r.ID); err != nil {
			s.logger.Error("day delete failed for record",
				zap.String("date", date),
				zap.String("group", string(r.Group)),
				zap.Int64("id", r.ID),
				zap.Error(err))
			result.Failed = append(result.Failed, models.FailedDeletion{RecordRef: ref, Reason: err.Error()})
			continue
		}
		result.Deleted = append(result.Deleted, ref)
	}

	s.logger.Info("day deleted",
		zap.String("date", date),
		zap.Int("deleted", len(result.Deleted)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *Service) loadDay(ctx context.Context, date string) ([]models.Record, []models.Record, error) {
	group1, err := s.store.ListByDate(ctx, models.Group1, date)
	if err != nil {
		return nil, nil, fmt.Errorf("load group1 records for %s: %w", date, err)
	}
	group2, err := s.store.ListByDate(ctx, models.Group2, date)
	if err != nil {
		return nil, nil, fmt.Errorf("load group2 records for %s: %w", date, err)
	}
	return group1, group2, nil
}
