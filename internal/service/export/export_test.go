package export

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/repository/storetest"
	"github.com/mamadbah2/floorlog/internal/service/reporting"
)

func sampleDay() models.DayGroup {
	return models.DayGroup{
		Date: "2024-03-07",
		Group1: []models.Record{
			storetest.Group1Record("L92", "2024-03-07"),
			storetest.Group1Record("L80", "2024-03-07"),
		},
		Group2: []models.Record{
			storetest.Group2Record("L84", "2024-03-07"),
		},
		Total: 3,
	}
}

func TestBuildDaySheet(t *testing.T) {
	sheet := BuildDaySheet(sampleDay())

	assert.Equal(t, "07", sheet.Day)
	assert.Equal(t, "MARÇO", sheet.Month)
	require.Len(t, sheet.Blocks, 2)

	g1 := sheet.Blocks[0]
	assert.Equal(t, 4, g1.HeaderRow)
	assert.Len(t, g1.Header, 1+18+4)
	assert.Equal(t, "SKU", g1.Header[g1.Highlight])
	assert.Equal(t, "ACRISSON", g1.Header[len(g1.Header)-1])
	require.Len(t, g1.Rows, 2)
	assert.Equal(t, "L80", g1.Rows[0][0].Value)
	assert.Equal(t, 2.5, g1.Rows[0][len(g1.Rows[0])-2].Value)

	// ordinary group 1 lines leave the special cells blank
	l92 := g1.Rows[1]
	assert.Equal(t, "L92", l92[0].Value)
	assert.Nil(t, l92[len(l92)-1].Value)
	assert.Nil(t, l92[len(l92)-2].Value)

	g2 := sheet.Blocks[1]
	// group 1 data ends on row 6; group 2 data starts five rows later on row 12
	assert.Equal(t, 11, g2.HeaderRow)
	assert.Len(t, g2.Header, 1+20+4)
}

func TestBuildDaySheetWithoutGroup2(t *testing.T) {
	day := sampleDay()
	day.Group2 = nil
	sheet := BuildDaySheet(day)
	assert.Len(t, sheet.Blocks, 1)
}

func TestRenderXLSX(t *testing.T) {
	content, err := RenderXLSX(BuildDaySheet(sampleDay()))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	title, err := f.GetCellValue(SheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, Title, title)

	month, err := f.GetCellValue(SheetName, "E3")
	require.NoError(t, err)
	assert.Equal(t, "MARÇO", month)

	line, err := f.GetCellValue(SheetName, "A5")
	require.NoError(t, err)
	assert.Equal(t, "L80", line)

	speed, err := f.GetCellValue(SheetName, "B5")
	require.NoError(t, err)
	assert.Equal(t, "1.00", speed)

	g2line, err := f.GetCellValue(SheetName, "A12")
	require.NoError(t, err)
	assert.Equal(t, "L84", g2line)

	height, err := f.GetRowHeight(SheetName, 4)
	require.NoError(t, err)
	assert.Equal(t, float64(headerRowHeight), height)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Rotacao_de_Bombas_07-03-2024.xlsx", FileName("2024-03-07"))
}

type stubDays struct {
	day models.DayGroup
	err error
}

func (s stubDays) Day(context.Context, string) (models.DayGroup, error) {
	return s.day, s.err
}

type recordingSheets struct {
	sheetRange string
	rows       [][]interface{}
	err        error
}

func (r *recordingSheets) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	r.sheetRange = sheetRange
	r.rows = rows
	return r.err
}

func TestExportDay(t *testing.T) {
	svc := NewService(stubDays{day: sampleDay()}, nil, "", nil)

	wb, err := svc.ExportDay(context.Background(), "2024-03-07")
	require.NoError(t, err)
	assert.Equal(t, "Rotacao_de_Bombas_07-03-2024.xlsx", wb.FileName)
	assert.NotEmpty(t, wb.Content)

	_, err = NewService(stubDays{err: reporting.ErrDayNotFound}, nil, "", nil).ExportDay(context.Background(), "2024-03-08")
	assert.ErrorIs(t, err, reporting.ErrDayNotFound)
}

func TestPublishDay(t *testing.T) {
	ctx := context.Background()

	disabled := NewService(stubDays{day: sampleDay()}, nil, "Coletas!A:Z", nil)
	assert.False(t, disabled.PublishingEnabled())
	_, err := disabled.PublishDay(ctx, "2024-03-07")
	assert.ErrorIs(t, err, ErrSheetsDisabled)

	sink := &recordingSheets{}
	svc := NewService(stubDays{day: sampleDay()}, sink, "Coletas!A:Z", nil)
	n, err := svc.PublishDay(ctx, "2024-03-07")
	require.NoError(t, err)
	assert.Equal(t, "Coletas!A:Z", sink.sheetRange)
	assert.Len(t, sink.rows, n)
	assert.Equal(t, Title, sink.rows[0][0])
	// title, date row, then header + 2 rows + spacer, header + 1 row + spacer
	assert.Equal(t, 2+4+3, n)

	sink.err = errors.New("quota exceeded")
	_, err = svc.PublishDay(ctx, "2024-03-07")
	assert.ErrorIs(t, err, ErrPublishFailed)
}
