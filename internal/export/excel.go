// Package export renders API results into spreadsheet files.
package export

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned when a workbook would contain no sheets.
var ErrNoSheets = errors.New("no sheets to write")

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ExcelBytes renders sheets into a single .xlsx workbook. Sheet order is
// preserved and the first sheet is the active one.
func ExcelBytes(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // In-memory workbook, nothing to leak on close.

	for i, sheet := range sheets {
		if i == 0 {
			// Reuse the default sheet instead of leaving an empty one behind.
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return nil, fmt.Errorf("naming sheet %s: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("creating sheet %s: %w", sheet.Name, err)
		}

		if err := writeRow(f, sheet.Name, 1, sheet.Header); err != nil {
			return nil, err
		}
		for r, row := range sheet.Rows {
			if err := writeRow(f, sheet.Name, r+2, row); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("rendering workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRow writes values into one row of a sheet, starting at column A.
func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("addressing row %d of %s: %w", row, sheet, err)
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d of %s: %w", row, sheet, err)
	}
	return nil
}
