package core

import "regexp"

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

const (
	yearScanRows = 25
	yearScanCols = 6
)

// ExtractYear finds the budget year in the title block of the raw sheet.
// Cell A6 is checked first, then the top-left 25x6 region row by row.
// It returns "" when no year is found.
func ExtractYear(rows []RawRow) string {
	if len(rows) > 5 {
		if y := yearPattern.FindString(rows[5].Cell(0)); y != "" {
			return y
		}
	}
	for r := 0; r < len(rows) && r < yearScanRows; r++ {
		for c := 0; c < yearScanCols; c++ {
			if y := yearPattern.FindString(rows[r].Cell(c)); y != "" {
				return y
			}
		}
	}
	return ""
}
