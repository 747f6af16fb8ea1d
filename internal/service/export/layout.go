package export

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mamadbah2/floorlog/internal/domain/models"
)

const (
	// SheetName is the worksheet holding both groups.
	SheetName = "Rotação de Bombas"
	// Title is written merged across the first row.
	Title = "COLETA DIÁRIA DE ROTAÇÕES DAS BOMBAS DO SISTEMA NORDSON"

	group1HeaderRow = 4
	// offset from the last group 1 row to the first group 2 row
	groupGap = 5
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

var upperPT = cases.Upper(language.BrazilianPortuguese)

// Cell is one spreadsheet value. A nil Value renders as an empty cell.
type Cell struct {
	Value  any
	Number bool
}

// Block is a header row followed by one row per record.
type Block struct {
	HeaderRow int
	Header    []string
	// Highlight is the index of the first highlighted header column.
	Highlight int
	Rows      [][]Cell
}

// DaySheet is the renderer-neutral layout of one day's export.
type DaySheet struct {
	Date   string
	Day    string
	Month  string
	Blocks []Block
}

// BuildDaySheet lays out a day: group 1 header on row 4, group 2 rows starting
// five rows below the last group 1 row. Each block lists the line, the process measurements,
// then sku, bag weight, panel parameter and acrisson.
func BuildDaySheet(day models.DayGroup) DaySheet {
	sheet := DaySheet{Date: day.Date}
	if t, err := time.Parse(models.DateLayout, day.Date); err == nil {
		sheet.Day = t.Format("02")
		sheet.Month = upperPT.String(monthNames[t.Month()-1])
	}

	group1 := sortedCopy(day.Group1)
	sheet.Blocks = append(sheet.Blocks, buildBlock(models.SchemaFor(models.Group1), group1, group1HeaderRow))

	if len(day.Group2) > 0 {
		group2 := sortedCopy(day.Group2)
		firstRow := group1HeaderRow + 1 + len(group1) + groupGap
		headerRow := firstRow - 1
		sheet.Blocks = append(sheet.Blocks, buildBlock(models.SchemaFor(models.Group2), group2, headerRow))
	}
	return sheet
}

func buildBlock(schema *models.Schema, records []models.Record, headerRow int) Block {
	header := []string{""}
	for _, f := range schema.Measurements {
		header = append(header, f.Label)
	}
	highlight := len(header)
	header = append(header, "SKU", "PESO SACOLA\nVARPE", "PARÂMETRO\nDO PAINEL", "ACRISSON")

	block := Block{HeaderRow: headerRow, Header: header, Highlight: highlight}
	for _, r := range records {
		row := []Cell{{Value: r.ProductionLine}}
		for _, f := range schema.Measurements {
			row = append(row, Cell{Value: r.Measurement(f.Key), Number: true})
		}
		row = append(row, Cell{Value: r.SKU}, Cell{Value: r.BagWeight, Number: true})

		special := schema.CarriesSpecialFields(r.ProductionLine)
		row = append(row, optionalCell(r.PanelParameter, special), optionalCell(r.Acrisson, special))
		block.Rows = append(block.Rows, row)
	}
	return block
}

func optionalCell(v *float64, show bool) Cell {
	if !show || v == nil {
		return Cell{}
	}
	return Cell{Value: *v, Number: true}
}

// Rows flattens the layout for row-oriented sinks such as Google Sheets.
func (s DaySheet) Rows() [][]interface{} {
	rows := [][]interface{}{
		{Title},
		{s.Date, "DIA", s.Day, "MÊS", s.Month},
	}
	for _, b := range s.Blocks {
		header := make([]interface{}, len(b.Header))
		for i, h := range b.Header {
			header[i] = h
		}
		rows = append(rows, header)
		for _, r := range b.Rows {
			values := make([]interface{}, len(r))
			for i, c := range r {
				if c.Value == nil {
					values[i] = ""
				} else {
					values[i] = c.Value
				}
			}
			rows = append(rows, values)
		}
		rows = append(rows, []interface{}{})
	}
	return rows
}

// FileName is the download name of the day's workbook.
func FileName(date string) string {
	if t, err := time.Parse(models.DateLayout, date); err == nil {
		date = t.Format("02-01-2006")
	}
	return "Rotacao_de_Bombas_" + date + ".xlsx"
}

func sortedCopy(records []models.Record) []models.Record {
	out := append([]models.Record(nil), records...)
	models.SortByLine(out)
	return out
}
