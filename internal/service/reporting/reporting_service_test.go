package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/repository"
	"github.com/mamadbah2/floorlog/internal/repository/memory"
	"github.com/mamadbah2/floorlog/internal/repository/storetest"
)

func dates(days []models.DayGroup) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Date
	}
	return out
}

func TestGroupByDay(t *testing.T) {
	group1 := []models.Record{
		storetest.Group1Record("L92", "2024-05-01"),
		storetest.Group1Record("L80", "2024-05-01"),
		storetest.Group1Record("L90", "2024-05-03"),
	}
	group2 := []models.Record{
		storetest.Group2Record("L85", "2024-05-02"),
		storetest.Group2Record("L84", "2024-05-01"),
	}

	days := GroupByDay(group1, group2)
	require.Equal(t, []string{"2024-05-03", "2024-05-02", "2024-05-01"}, dates(days))

	may1 := days[2]
	assert.Equal(t, 3, may1.Total)
	require.Len(t, may1.Group1, 2)
	assert.Equal(t, "L80", may1.Group1[0].ProductionLine)
	assert.Equal(t, "L92", may1.Group1[1].ProductionLine)
	require.Len(t, may1.Group2, 1)

	may2 := days[1]
	assert.Empty(t, may2.Group1)
	assert.NotNil(t, may2.Group1)
	assert.Equal(t, 1, may2.Total)

	total := 0
	for _, d := range days {
		total += d.Total
	}
	assert.Equal(t, len(group1)+len(group2), total)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("", "")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f.Mode)

	f, err = ParseFilter("specificDay", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", f.Day)

	_, err = ParseFilter("specificDay", "")
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = ParseFilter("lastYear", "")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestApplyFilter(t *testing.T) {
	days := []models.DayGroup{
		{Date: "2024-06-02"},
		{Date: "2024-05-31"},
		{Date: "2024-05-26"},
		{Date: "2024-05-25"},
		{Date: "2024-05-01"},
		{Date: "2024-04-30"},
	}
	// Wednesday May 29th 2024; its week runs Sunday 26th to Saturday June 1st.
	now := time.Date(2024, 5, 29, 15, 0, 0, 0, time.UTC)

	assert.Len(t, ApplyFilter(days, Filter{Mode: FilterAll}, now), len(days))
	assert.Equal(t, []string{"2024-05-31", "2024-05-26"},
		dates(ApplyFilter(days, Filter{Mode: FilterThisWeek}, now)))
	assert.Equal(t, []string{"2024-05-31", "2024-05-26", "2024-05-25", "2024-05-01"},
		dates(ApplyFilter(days, Filter{Mode: FilterThisMonth}, now)))
	assert.Equal(t, []string{"2024-04-30"},
		dates(ApplyFilter(days, Filter{Mode: FilterSpecificDay, Day: "2024-04-30"}, now)))

	sunday := time.Date(2024, 5, 26, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2024-05-31", "2024-05-26"},
		dates(ApplyFilter(days, Filter{Mode: FilterThisWeek}, sunday)))

	saturday := time.Date(2024, 5, 25, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2024-05-25"},
		dates(ApplyFilter(days, Filter{Mode: FilterThisWeek}, saturday)))
}

func seededService(t *testing.T) (*Service, repository.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, rec := range []models.Record{
		storetest.Group1Record("L90", "2024-05-01"),
		storetest.Group1Record("L81", "2024-05-01"),
		storetest.Group2Record("L84", "2024-05-01"),
		storetest.Group1Record("L90", "2024-05-02"),
	} {
		_, err := store.Create(ctx, rec)
		require.NoError(t, err)
	}

	svc := NewService(store, time.UTC, zaptest.NewLogger(t))
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestServiceDays(t *testing.T) {
	svc, _ := seededService(t)

	days, err := svc.Days(context.Background(), Filter{Mode: FilterAll})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-02", "2024-05-01"}, dates(days))

	days, err = svc.Days(context.Background(), Filter{Mode: FilterSpecificDay, Day: "2024-05-01"})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 3, days[0].Total)
}

func TestServiceDay(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	day, err := svc.Day(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Len(t, day.Group1, 2)
	assert.Len(t, day.Group2, 1)

	_, err = svc.Day(ctx, "2024-01-01")
	assert.ErrorIs(t, err, ErrDayNotFound)
	_, err = svc.Day(ctx, "01-05-2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDeleteDay(t *testing.T) {
	svc, store := seededService(t)
	ctx := context.Background()

	result, err := svc.DeleteDay(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.True(t, result.Complete())
	assert.Len(t, result.Deleted, 3)

	_, err = svc.Day(ctx, "2024-05-01")
	assert.ErrorIs(t, err, ErrDayNotFound)

	remaining, err := store.List(ctx, models.Group1)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "2024-05-02", remaining[0].CollectionDate)
}

// flakyStore fails deletes of group 2 records.
type flakyStore struct {
	repository.Store
}

func (f flakyStore) Delete(ctx context.Context, group models.Group, id int64) error {
	if group == models.Group2 {
		return errors.New("write timeout")
	}
	return f.Store.Delete(ctx, group, id)
}

func TestDeleteDayPartialFailure(t *testing.T) {
	svc, store := seededService(t)
	svc.store = flakyStore{Store: store}

	result, err := svc.DeleteDay(context.Background(), "2024-05-01")
	require.NoError(t, err)
	assert.False(t, result.Complete())
	assert.Len(t, result.Deleted, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, models.Group2, result.Failed[0].Group)
	assert.Equal(t, "L84", result.Failed[0].Line)
	assert.Equal(t, "write timeout", result.Failed[0].Reason)

	day, err := svc.Day(context.Background(), "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 1, day.Total)
}
