// Package xlsxexport renders report tables as Excel workbooks.
package xlsxexport

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"medibill/internal/domain"
)

const (
	defaultSheet = "Sheet1"
	// Built-in number formats.
	numFmtMoney = 4  // #,##0.00
	numFmtDate  = 22 // m/d/yy h:mm
	maxSheetLen = 31
)

// Render writes the table to a single-sheet workbook. Money columns are
// stored as numbers with a two-decimal format so they stay summable.
func Render(t *domain.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Sheet)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DCE6F1"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return nil, fmt.Errorf("creating money style: %w", err)
	}
	date, err := f.NewStyle(&excelize.Style{NumFmt: numFmtDate})
	if err != nil {
		return nil, fmt.Errorf("creating date style: %w", err)
	}

	if err := writeRow(f, sheet, 1, toCells(t.Columns)); err != nil {
		return nil, err
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
			return nil, fmt.Errorf("styling header: %w", err)
		}
	}

	for i, row := range t.Rows {
		r := i + 2
		cells := make([]interface{}, len(row))
		for c, v := range row {
			cells[c] = cellValue(v)
		}
		if err := writeRow(f, sheet, r, cells); err != nil {
			return nil, err
		}
		for c, v := range row {
			style := 0
			switch v.(type) {
			case decimal.Decimal:
				style = money
			case time.Time, *time.Time:
				style = date
			}
			if style == 0 {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return nil, fmt.Errorf("styling %s: %w", cell, err)
			}
		}
	}

	if len(t.Columns) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(t.Columns))
		if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
			return nil, fmt.Errorf("setting column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, start, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

func toCells(columns []string) []interface{} {
	out := make([]interface{}, len(columns))
	for i, c := range columns {
		out[i] = c
	}
	return out
}

func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.Round(2).InexactFloat64()
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	case domain.BillStatus:
		return string(x)
	case domain.DiscountType:
		return string(x)
	default:
		return v
	}
}

func sheetName(name string) string {
	if name == "" {
		return defaultSheet
	}
	if len(name) > maxSheetLen {
		return name[:maxSheetLen]
	}
	return name
}
