package workbook

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"budgetconv/internal/core"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encode renders the table as a file of the given format.
func Encode(t core.Table, format Format) ([]byte, error) {
	switch format {
	case XLSX:
		return EncodeXLSX(t)
	case CSV:
		return EncodeCSV(t)
	default:
		return nil, fmt.Errorf("encode: %w: %q", ErrUnsupportedFormat, format)
	}
}

// EncodeXLSX writes the table to a single "converted" sheet. Extra columns
// holding numbers are written as numeric cells.
func EncodeXLSX(t core.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("open stream writer: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	cols := t.Columns()
	head := make([]interface{}, len(cols))
	for i, c := range cols {
		head[i] = c
	}
	if err := sw.SetRow("A1", head, excelize.RowOpts{StyleID: bold}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	firstExtra := len(cols) - len(t.ExtraColumns)
	for i := range t.Rows {
		vals := t.Values(i)
		row := make([]interface{}, len(vals))
		for j, v := range vals {
			row[j] = v
			if j >= firstExtra {
				if n, ok := core.ParseNumber(v); ok {
					row[j] = n
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeCSV writes the table as UTF-8 CSV with a byte order mark so
// spreadsheet applications detect the encoding of Thai text.
func EncodeCSV(t core.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(t.Records()); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
