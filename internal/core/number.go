// Package core provides the budget sheet transform and its domain types.
//
// This file contains helpers for recognising numeric cells so encoders can
// write amounts as numbers instead of text.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseNumber converts a formatted cell such as "1,234.50", "-12" or
// "(300.00)" to a float64. Thousands separators must be well formed.
// Percentages, dates and free text are rejected.
//
// Examples:
//
//	ParseNumber("1,234.50") -> 1234.5, true
//	ParseNumber("(300)")    -> -300, true
//	ParseNumber("12.5%")    -> 0, false
func ParseNumber(s string) (float64, bool) {
	s = normalizeCell(s)
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		if neg {
			return 0, false
		}
		neg = true
		s = s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if hasFrac && (fracPart == "" || !allDigits(fracPart)) {
		return 0, false
	}
	if strings.Contains(intPart, ",") {
		groups := strings.Split(intPart, ",")
		if len(groups[0]) == 0 || len(groups[0]) > 3 || !allDigits(groups[0]) {
			return 0, false
		}
		for _, g := range groups[1:] {
			if len(g) != 3 || !allDigits(g) {
				return 0, false
			}
		}
		intPart = strings.Join(groups, "")
	}
	if intPart == "" || !allDigits(intPart) {
		return 0, false
	}

	num := intPart
	if hasFrac {
		num += "." + fracPart
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
