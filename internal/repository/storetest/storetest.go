// Package storetest holds the behaviour every repository.Store backend must
// share. Backend packages run it from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/repository"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) repository.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := map[string]func(t *testing.T, s repository.Store){
		"CreateAssignsIDAndTimestamp": testCreate,
		"DuplicateKeyRejected":        testDuplicate,
		"ConcurrentCreateSingleWin":   testConcurrentCreate,
		"ListOrdering":                testListOrdering,
		"ListByDate":                  testListByDate,
		"UpdatePartial":               testUpdate,
		"UpdateOntoTakenKey":          testUpdateDuplicate,
		"DeleteAndNotFound":           testDelete,
		"GroupsAreIsolated":           testGroupIsolation,
		"AccessCodeSeedOnce":          testAccessCode,
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close(context.Background()) })
			fn(t, s)
		})
	}
}

// Group1Record builds a valid group 1 record for line and date.
func Group1Record(line, date string) models.Record {
	rec := models.Record{
		Group:          models.Group1,
		CollectionDate: date,
		ProductionLine: line,
		SKU:            "SKU-" + line,
		BagWeight:      1.5,
		Measurements:   map[string]float64{},
	}
	for i, f := range models.SchemaFor(models.Group1).Measurements {
		rec.Measurements[f.Key] = float64(i + 1)
	}
	if models.SchemaFor(models.Group1).CarriesSpecialFields(line) {
		rec.PanelParameter = models.Float(2.5)
		rec.Acrisson = models.Float(4)
	}
	return rec
}

// Group2Record builds a valid group 2 record for line and date.
func Group2Record(line, date string) models.Record {
	rec := models.Record{
		Group:          models.Group2,
		CollectionDate: date,
		ProductionLine: line,
		SKU:            "SKU-" + line,
		Measurements:   map[string]float64{},
		PanelParameter: models.Float(1),
		Acrisson:       models.Float(2),
	}
	for i, f := range models.SchemaFor(models.Group2).Measurements {
		rec.Measurements[f.Key] = float64(i) / 2
	}
	return rec
}

func testCreate(t *testing.T, s repository.Store) {
	ctx := context.Background()

	in := Group1Record("L80", "2024-05-01")
	created, err := s.Create(ctx, in)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.Get(ctx, models.Group1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, in.CollectionDate, got.CollectionDate)
	assert.Equal(t, in.ProductionLine, got.ProductionLine)
	assert.Equal(t, in.SKU, got.SKU)
	assert.Equal(t, in.BagWeight, got.BagWeight)
	assert.Equal(t, in.Measurements, got.Measurements)
	require.NotNil(t, got.PanelParameter)
	require.NotNil(t, got.Acrisson)
	assert.Equal(t, 2.5, *got.PanelParameter)
	assert.Equal(t, 4.0, *got.Acrisson)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, 0)

	plain, err := s.Create(ctx, Group1Record("L90", "2024-05-01"))
	require.NoError(t, err)
	got, err = s.Get(ctx, models.Group1, plain.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PanelParameter)
	assert.Nil(t, got.Acrisson)
	assert.NotEqual(t, created.ID, plain.ID)
}

func testDuplicate(t *testing.T, s repository.Store) {
	ctx := context.Background()

	_, err := s.Create(ctx, Group1Record("L90", "2024-05-01"))
	require.NoError(t, err)

	_, err = s.Create(ctx, Group1Record("L90", "2024-05-01"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = s.Create(ctx, Group1Record("L90", "2024-05-02"))
	assert.NoError(t, err)
	_, err = s.Create(ctx, Group1Record("L91", "2024-05-01"))
	assert.NoError(t, err)

	recs, err := s.List(ctx, models.Group1)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func testConcurrentCreate(t *testing.T, s repository.Store) {
	ctx := context.Background()
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		others    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, Group2Record("L84", "2024-05-01"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, repository.ErrDuplicate):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)

	recs, err := s.ListByDate(ctx, models.Group2, "2024-05-01")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func testListOrdering(t *testing.T, s repository.Store) {
	ctx := context.Background()

	for _, in := range []models.Record{
		Group1Record("L90", "2024-05-01"),
		Group1Record("L91", "2024-05-03"),
		Group1Record("L92", "2024-05-01"),
		Group1Record("L93", "2024-05-02"),
	} {
		_, err := s.Create(ctx, in)
		require.NoError(t, err)
	}

	recs, err := s.List(ctx, models.Group1)
	require.NoError(t, err)
	require.Len(t, recs, 4)

	lines := make([]string, len(recs))
	for i, r := range recs {
		lines[i] = r.ProductionLine
	}
	// date descending, then newest id first within a date
	assert.Equal(t, []string{"L91", "L93", "L92", "L90"}, lines)
}

func testListByDate(t *testing.T, s repository.Store) {
	ctx := context.Background()

	_, err := s.Create(ctx, Group1Record("L90", "2024-05-01"))
	require.NoError(t, err)
	_, err = s.Create(ctx, Group1Record("L91", "2024-05-02"))
	require.NoError(t, err)

	recs, err := s.ListByDate(ctx, models.Group1, "2024-05-02")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "L91", recs[0].ProductionLine)

	recs, err = s.ListByDate(ctx, models.Group1, "2023-01-01")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func testUpdate(t *testing.T, s repository.Store) {
	ctx := context.Background()

	created, err := s.Create(ctx, Group1Record("L81", "2024-05-01"))
	require.NoError(t, err)

	sku := "NEW"
	updated, err := s.Update(ctx, models.Group1, created.ID, models.Patch{
		SKU:          &sku,
		Acrisson:     models.NullableFloat{Set: true},
		Measurements: map[string]float64{"surge": 99},
	})
	require.NoError(t, err)
	assert.Equal(t, "NEW", updated.SKU)
	assert.Nil(t, updated.Acrisson)

	got, err := s.Get(ctx, models.Group1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "NEW", got.SKU)
	assert.Nil(t, got.Acrisson)
	require.NotNil(t, got.PanelParameter)
	assert.Equal(t, 2.5, *got.PanelParameter)
	assert.Equal(t, 99.0, got.Measurement("surge"))
	assert.Equal(t, created.Measurement("lineSpeed"), got.Measurement("lineSpeed"))
	assert.Equal(t, created.BagWeight, got.BagWeight)
	assert.Equal(t, created.CollectionDate, got.CollectionDate)

	_, err = s.Update(ctx, models.Group1, created.ID+1000, models.Patch{SKU: &sku})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testUpdateDuplicate(t *testing.T, s repository.Store) {
	ctx := context.Background()

	_, err := s.Create(ctx, Group1Record("L90", "2024-05-01"))
	require.NoError(t, err)
	other, err := s.Create(ctx, Group1Record("L91", "2024-05-01"))
	require.NoError(t, err)

	line := "L90"
	_, err = s.Update(ctx, models.Group1, other.ID, models.Patch{ProductionLine: &line})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := s.Get(ctx, models.Group1, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "L91", got.ProductionLine)

	// moving onto a free key releases the old one
	line = "L92"
	_, err = s.Update(ctx, models.Group1, other.ID, models.Patch{ProductionLine: &line})
	require.NoError(t, err)
	_, err = s.Create(ctx, Group1Record("L91", "2024-05-01"))
	assert.NoError(t, err)
}

func testDelete(t *testing.T, s repository.Store) {
	ctx := context.Background()

	created, err := s.Create(ctx, Group2Record("L85", "2024-05-01"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, models.Group2, created.ID))

	_, err = s.Get(ctx, models.Group2, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, models.Group2, created.ID), repository.ErrNotFound)

	// the key is free again
	_, err = s.Create(ctx, Group2Record("L85", "2024-05-01"))
	assert.NoError(t, err)
}

func testGroupIsolation(t *testing.T, s repository.Store) {
	ctx := context.Background()

	g1, err := s.Create(ctx, Group1Record("L90", "2024-05-01"))
	require.NoError(t, err)
	_, err = s.Create(ctx, Group2Record("L84", "2024-05-01"))
	require.NoError(t, err)

	recs, err := s.List(ctx, models.Group2)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.Group2, recs[0].Group)

	got, err := s.Get(ctx, models.Group1, g1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Group1, got.Group)
	assert.Equal(t, "L90", got.ProductionLine)
}

func testAccessCode(t *testing.T, s repository.Store) {
	ctx := context.Background()

	_, err := s.AccessCode(ctx)
	assert.ErrorIs(t, err, repository.ErrAccessCodeMissing)

	require.NoError(t, s.SeedAccessCode(ctx, " 1234 "))
	require.NoError(t, s.SeedAccessCode(ctx, "9999"))

	code, err := s.AccessCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1234", code)

	assert.NoError(t, s.Ping(ctx))
}
