package workbook

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"budgetconv/internal/core"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// ReadRows returns every row of the first sheet as displayed text.
func ReadRows(r io.Reader, format Format) ([]core.RawRow, error) {
	switch format {
	case XLSX:
		return readXLSX(r)
	case XLS:
		return readXLS(r)
	case CSV:
		return readCSV(r)
	default:
		return nil, fmt.Errorf("read rows: %w: %q", ErrUnsupportedFormat, format)
	}
}

func readXLSX(r io.Reader) ([]core.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xlsx data: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx workbook: %w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: xlsx workbook has no sheets", ErrUnreadable)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w: %w", sheets[0], ErrUnreadable, err)
	}
	out := make([]core.RawRow, len(rows))
	for i, row := range rows {
		out[i] = core.RawRow(row)
	}
	return out, nil
}

func readXLS(r io.Reader) ([]core.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xls data: %w", err)
	}
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w: %w", ErrUnreadable, err)
	}
	if len(wb.GetSheets()) == 0 {
		return nil, fmt.Errorf("%w: xls workbook has no sheets", ErrUnreadable)
	}
	sheet, err := wb.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("read xls sheet: %w: %w", ErrUnreadable, err)
	}

	var out []core.RawRow
	for _, row := range sheet.GetRows() {
		var raw core.RawRow
		for _, cell := range row.GetCols() {
			raw = append(raw, cell.GetString())
		}
		out = append(out, trimTrailing(raw))
	}
	return out, nil
}

func readCSV(r io.Reader) ([]core.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv data: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w: %w", ErrUnreadable, err)
	}
	out := make([]core.RawRow, len(records))
	for i, rec := range records {
		out[i] = trimTrailing(core.RawRow(rec))
	}
	return out, nil
}

// trimTrailing drops empty trailing cells, matching what excelize returns.
func trimTrailing(row core.RawRow) core.RawRow {
	n := len(row)
	for n > 0 && strings.TrimSpace(row[n-1]) == "" {
		n--
	}
	return row[:n]
}
