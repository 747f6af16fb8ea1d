package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/repository"
)

type key struct {
	date string
	line string
}

type table struct {
	nextID int64
	rows   map[int64]models.Record
	keys   map[key]int64
}

// Store keeps records in process memory. The mutex makes the duplicate check
// and the insert a single step.
type Store struct {
	mu         sync.RWMutex
	tables     map[models.Group]*table
	accessCode string
	now        func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	s := &Store{
		tables: make(map[models.Group]*table, len(models.Groups)),
		now:    time.Now,
	}
	for _, g := range models.Groups {
		s.tables[g] = &table{nextID: 1, rows: map[int64]models.Record{}, keys: map[key]int64{}}
	}
	return s
}

func (s *Store) table(group models.Group) (*table, error) {
	t, ok := s.tables[group]
	if !ok {
		return nil, fmt.Errorf("unknown group %q", group)
	}
	return t, nil
}

func (s *Store) List(ctx context.Context, group models.Group) ([]models.Record, error) {
	return s.collect(group, func(models.Record) bool { return true })
}

func (s *Store) ListByDate(ctx context.Context, group models.Group, date string) ([]models.Record, error) {
	return s.collect(group, func(r models.Record) bool { return r.CollectionDate == date })
}

func (s *Store) collect(group models.Group, keep func(models.Record) bool) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.table(group)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	models.SortRecords(out)
	return out, nil
}

func (s *Store) Get(ctx context.Context, group models.Group, id int64) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.table(group)
	if err != nil {
		return models.Record{}, err
	}
	r, ok := t.rows[id]
	if !ok {
		return models.Record{}, repository.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *Store) Create(ctx context.Context, record models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(record.Group)
	if err != nil {
		return models.Record{}, err
	}
	k := key{record.CollectionDate, record.ProductionLine}
	if _, exists := t.keys[k]; exists {
		return models.Record{}, repository.ErrDuplicate
	}

	stored := record.Clone()
	stored.ID = t.nextID
	stored.CreatedAt = s.now().UTC()
	t.nextID++
	t.rows[stored.ID] = stored
	t.keys[k] = stored.ID
	return stored.Clone(), nil
}

func (s *Store) Update(ctx context.Context, group models.Group, id int64, patch models.Patch) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(group)
	if err != nil {
		return models.Record{}, err
	}
	existing, ok := t.rows[id]
	if !ok {
		return models.Record{}, repository.ErrNotFound
	}

	updated := patch.Apply(existing)
	oldKey := key{existing.CollectionDate, existing.ProductionLine}
	newKey := key{updated.CollectionDate, updated.ProductionLine}
	if newKey != oldKey {
		if _, taken := t.keys[newKey]; taken {
			return models.Record{}, repository.ErrDuplicate
		}
		delete(t.keys, oldKey)
		t.keys[newKey] = id
	}
	t.rows[id] = updated
	return updated.Clone(), nil
}

func (s *Store) Delete(ctx context.Context, group models.Group, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(group)
	if err != nil {
		return err
	}
	existing, ok := t.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(t.keys, key{existing.CollectionDate, existing.ProductionLine})
	delete(t.rows, id)
	return nil
}

func (s *Store) AccessCode(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.accessCode == "" {
		return "", repository.ErrAccessCodeMissing
	}
	return s.accessCode, nil
}

func (s *Store) SeedAccessCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("access code must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessCode == "" {
		s.accessCode = code
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}
