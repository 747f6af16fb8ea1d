package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/floorlog/internal/domain/models"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write collides with the
	// (collection date, production line) unique key of a group.
	ErrDuplicate = errors.New("record already exists for date and line")
	// ErrAccessCodeMissing is returned when no access code has been seeded.
	ErrAccessCodeMissing = errors.New("access code not configured")
)

// Store is the persistence capability shared by every backend.
type Store interface {
	// List returns every record of the group, newest date first.
	List(ctx context.Context, group models.Group) ([]models.Record, error)
	// ListByDate returns the group's records for one collection date.
	ListByDate(ctx context.Context, group models.Group, date string) ([]models.Record, error)
	Get(ctx context.Context, group models.Group, id int64) (models.Record, error)
	// Create assigns ID and CreatedAt. It fails with ErrDuplicate when the
	// group already holds a record for the same date and line.
	Create(ctx context.Context, record models.Record) (models.Record, error)
	Update(ctx context.Context, group models.Group, id int64, patch models.Patch) (models.Record, error)
	Delete(ctx context.Context, group models.Group, id int64) error

	AccessCode(ctx context.Context) (string, error)
	// SeedAccessCode stores code unless an access code already exists.
	SeedAccessCode(ctx context.Context, code string) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
