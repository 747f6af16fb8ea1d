package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	headerRowHeight = 45
	highlightColor  = "4472C4"
	headerColor     = "D9D9D9"
)

// RenderXLSX writes the day sheet into a single-worksheet workbook.
func RenderXLSX(sheet DaySheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename worksheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	width := 0
	for _, b := range sheet.Blocks {
		if len(b.Header) > width {
			width = len(b.Header)
		}
	}

	if err := writeTitle(f, sheet, width, styles); err != nil {
		return nil, err
	}
	for _, b := range sheet.Blocks {
		if err := writeBlock(f, b, styles); err != nil {
			return nil, err
		}
	}
	if err := setColumnWidths(f, width); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type styleSet struct {
	title, label, header, highlight, text, number int
}

func newStyles(f *excelize.File) (styleSet, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	defs := []*excelize.Style{
		{Font: &excelize.Font{Bold: true, Size: 14}, Alignment: center},
		{Font: &excelize.Font{Bold: true}, Alignment: center, Border: border},
		{
			Font: &excelize.Font{Bold: true}, Alignment: center, Border: border,
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		},
		{
			Font: &excelize.Font{Bold: true, Color: "FFFFFF"}, Alignment: center, Border: border,
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{highlightColor}},
		},
		{Alignment: center, Border: border},
		{Alignment: center, Border: border, NumFmt: 2},
	}

	var set styleSet
	targets := []*int{&set.title, &set.label, &set.header, &set.highlight, &set.text, &set.number}
	for i, def := range defs {
		id, err := f.NewStyle(def)
		if err != nil {
			return styleSet{}, fmt.Errorf("create cell style: %w", err)
		}
		*targets[i] = id
	}
	return set, nil
}

func writeTitle(f *excelize.File, sheet DaySheet, width int, styles styleSet) error {
	last, err := excelize.CoordinatesToCellName(width, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, "A1", Title); err != nil {
		return err
	}
	if err := f.MergeCell(SheetName, "A1", last); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", last, styles.title); err != nil {
		return err
	}
	if err := f.SetRowHeight(SheetName, 1, 30); err != nil {
		return err
	}

	labels := map[string]string{"B3": "DIA", "C3": sheet.Day, "D3": "MÊS", "E3": sheet.Month}
	for cell, value := range labels {
		if err := f.SetCellValue(SheetName, cell, value); err != nil {
			return err
		}
	}
	return f.SetCellStyle(SheetName, "B3", "E3", styles.label)
}

func writeBlock(f *excelize.File, b Block, styles styleSet) error {
	for i, label := range b.Header {
		cell, err := excelize.CoordinatesToCellName(i+1, b.HeaderRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, label); err != nil {
			return err
		}
		style := styles.header
		if i >= b.Highlight {
			style = styles.highlight
		}
		if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
			return err
		}
	}
	if err := f.SetRowHeight(SheetName, b.HeaderRow, headerRowHeight); err != nil {
		return err
	}

	for r, row := range b.Rows {
		rowNum := b.HeaderRow + 1 + r
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, rowNum)
			if err != nil {
				return err
			}
			if value.Value != nil {
				if err := f.SetCellValue(SheetName, cell, value.Value); err != nil {
					return err
				}
			}
			style := styles.text
			if value.Number {
				style = styles.number
			}
			if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func setColumnWidths(f *excelize.File, width int) error {
	if width == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "A", 10); err != nil {
		return err
	}
	if width > 1 {
		return f.SetColWidth(SheetName, "B", last, 14)
	}
	return nil
}
