package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// Table is a rectangular report ready to be written as a spreadsheet
type Table struct {
	Title   string
	Headers []string
	Rows    [][]interface{}
}

// WriteExcel renders t as a single-sheet xlsx workbook into w
func WriteExcel(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if t.Title != "" {
		if err := f.SetSheetName(sheetName, t.Title); err != nil {
			return err
		}
	}
	sheet := f.GetSheetName(0)

	for i, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("row %d: %w", r+1, err)
			}
		}
	}

	return f.Write(w)
}
