package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReadXLSXFile reads one sheet of a sponsor XLSX workbook into a raw row
// matrix. Sponsor deliveries frequently arrive as XLSX workbooks before any
// CSV extraction step, so ingest parses both and normalizes to the same
// raw-row shape ReadCSVFile produces.
func ReadXLSXFile(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("ingest: workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
