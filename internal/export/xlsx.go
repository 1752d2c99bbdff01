package export

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
)

const (
	maxColWidth = 50
	headerFill  = "D7E4BC"
	amountFmt   = 2 // built-in "0.00"
)

// WriteXLSX writes an Invoice_Data sheet with a styled header row.
// Normalized amounts and quantities are stored as numbers.
func WriteXLSX(records []mapper.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: amountFmt})
	if err != nil {
		return nil, fmt.Errorf("amount style: %w", err)
	}

	cols := Columns(records)
	widths := make([]int, len(cols))
	for i, h := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
		widths[i] = utf8.RuneCountInString(h)
	}
	if len(cols) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(cols), 1)
		if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
			return nil, err
		}
	}

	for ri, r := range records {
		rowNum := ri + 2
		for ci, c := range row(r, cols) {
			cell, _ := excelize.CoordinatesToCellName(ci+1, rowNum)
			v, numeric := cellValue(c)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, err
			}
			if numeric && c.Kind == constants.KindAmount {
				if err := f.SetCellStyle(SheetName, cell, cell, amountStyle); err != nil {
					return nil, err
				}
			}
			if n := utf8.RuneCountInString(c.Value); n > widths[ci] {
				widths[ci] = n
			}
		}
	}

	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, name, name, float64(min(w+2, maxColWidth))); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue returns a float for normalized numeric cells, the text otherwise.
func cellValue(c mapper.Cell) (any, bool) {
	if !c.Normalized || c.Value == "" {
		return c.Value, false
	}
	switch c.Kind {
	case constants.KindAmount, constants.KindQuantity:
		if v, err := strconv.ParseFloat(c.Value, 64); err == nil {
			return v, true
		}
	}
	return c.Value, false
}
