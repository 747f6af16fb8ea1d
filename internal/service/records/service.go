package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/repository"
)

var (
	// ErrDateNotAllowed rejects submissions for any day but today.
	ErrDateNotAllowed = errors.New("only today's date may be recorded")
	// ErrDuplicateConflict matches every *DuplicateError.
	ErrDuplicateConflict = errors.New("record already exists for line and date")
	// ErrNotFound indicates no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrStorage wraps any persistence failure.
	ErrStorage = errors.New("storage failure")
)

// DuplicateError names the (line, date) key that is already taken.
type DuplicateError struct {
	Group models.Group
	Line  string
	Date  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("line %s already has a record for %s", e.Line, displayDate(e.Date))
}

// Is makes errors.Is(err, ErrDuplicateConflict) hold.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateConflict
}

// Service validates submissions and delegates persistence to the store.
type Service struct {
	store    repository.Store
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a submission service. Dates are compared in location.
func NewService(store repository.Store, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		store:    store,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// Today returns the current business-local date as YYYY-MM-DD.
func (s *Service) Today() string {
	return s.now().In(s.location).Format(models.DateLayout)
}

// List returns every record of the group, newest first.
func (s *Service) List(ctx context.Context, group models.Group) ([]models.Record, error) {
	recs, err := s.store.List(ctx, group)
	if err != nil {
		return nil, s.storageError("list records", err, zap.String("group", string(group)))
	}
	return recs, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, group models.Group, id int64) (models.Record, error) {
	rec, err := s.store.Get(ctx, group, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.Record{}, ErrNotFound
	case err != nil:
		return models.Record{}, s.storageError("get record", err, zap.String("group", string(group)), zap.Int64("id", id))
	}
	return rec, nil
}

// Create validates a submission and stores it. Uniqueness of (date, line) is
// decided by the store's unique constraint, so concurrent submissions for the
// same key produce exactly one winner.
func (s *Service) Create(ctx context.Context, group models.Group, payload map[string]any) (models.Record, error) {
	rec, err := models.DecodeSubmission(group, payload)
	if err != nil {
		return models.Record{}, err
	}

	if today := s.Today(); rec.CollectionDate != today {
		s.logger.Info("submission rejected for date",
			zap.String("group", string(group)),
			zap.String("collection_date", rec.CollectionDate),
			zap.String("today", today))
		return models.Record{}, ErrDateNotAllowed
	}

	created, err := s.store.Create(ctx, rec)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return models.Record{}, &DuplicateError{Group: group, Line: rec.ProductionLine, Date: rec.CollectionDate}
	case err != nil:
		return models.Record{}, s.storageError("create record", err, zap.String("group", string(group)), zap.String("line", rec.ProductionLine))
	}

	s.logger.Info("record created",
		zap.String("group", string(group)),
		zap.Int64("id", created.ID),
		zap.String("line", created.ProductionLine),
		zap.String("collection_date", created.CollectionDate))
	return created, nil
}

// Update applies a partial update. Neither the date nor the duplicate rule is
// re-validated; the store still refuses to move a record onto a taken key.
func (s *Service) Update(ctx context.Context, group models.Group, id int64, payload map[string]any) (models.Record, error) {
	patch, err := models.DecodePatch(group, payload)
	if err != nil {
		return models.Record{}, err
	}

	updated, err := s.store.Update(ctx, group, id, patch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.Record{}, ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		dup := &DuplicateError{Group: group}
		if patch.ProductionLine != nil {
			dup.Line = *patch.ProductionLine
		}
		if patch.CollectionDate != nil {
			dup.Date = *patch.CollectionDate
		}
		if dup.Line == "" || dup.Date == "" {
			if existing, getErr := s.store.Get(ctx, group, id); getErr == nil {
				if dup.Line == "" {
					dup.Line = existing.ProductionLine
				}
				if dup.Date == "" {
					dup.Date = existing.CollectionDate
				}
			}
		}
		return models.Record{}, dup
	case err != nil:
		return models.Record{}, s.storageError("update record", err, zap.String("group", string(group)), zap.Int64("id", id))
	}

	s.logger.Info("record updated", zap.String("group", string(group)), zap.Int64("id", id))
	return updated, nil
}

// Delete removes one record.
func (s *Service) Delete(ctx context.Context, group models.Group, id int64) error {
	err := s.store.Delete(ctx, group, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case err != nil:
		return s.storageError("delete record", err, zap.String("group", string(group)), zap.Int64("id", id))
	}

	s.logger.Info("record deleted", zap.String("group", string(group)), zap.Int64("id", id))
	return nil
}

func (s *Service) storageError(op string, err error, fields ...zap.Field) error {
	s.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func displayDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("02/01/2006")
}
