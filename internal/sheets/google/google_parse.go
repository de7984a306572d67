package google

import (
	"fmt"
	"strings"

	"budgetconv/internal/core"

	"github.com/xuri/excelize/v2"
)

// toRawRows converts a values matrix (as returned by Sheets API) into raw rows.
// Rows keep their position so absolute row indexes match the sheet.
func toRawRows(values [][]interface{}) []core.RawRow {
	out := make([]core.RawRow, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return out
}

func toStrings(in []interface{}) core.RawRow {
	out := make(core.RawRow, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

// tableValues renders the header and rows. Extra columns that parse as
// numbers are sent as numbers; everything else stays text.
func tableValues(t core.Table) [][]interface{} {
	cols := t.Columns()
	out := make([][]interface{}, 0, len(t.Rows)+1)
	head := make([]interface{}, len(cols))
	for i, c := range cols {
		head[i] = c
	}
	out = append(out, head)

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
		out = append(out, row)
	}
	return out
}

// quoteSheet quotes a tab name for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// a1Range returns "'sheet'!A1:<last col><rows>".
func a1Range(sheet string, cols, rows int) (string, error) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	end, err := excelize.CoordinatesToCellName(cols, rows)
	if err != nil {
		return "", fmt.Errorf("range for %d columns x %d rows: %w", cols, rows, err)
	}
	return quoteSheet(sheet) + "!A1:" + end, nil
}
