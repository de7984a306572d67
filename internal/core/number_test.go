package core

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"50", 50, true},
		{"1,234.50", 1234.5, true},
		{" 12.25 ", 12.25, true},
		{"-3", -3, true},
		{"(300.00)", -300, true},
		{"0", 0, true},
		{"1,234,567", 1234567, true},
		{"12.5%", 0, false},
		{"1,23", 0, false},
		{"12,3456", 0, false},
		{"1.2.3", 0, false},
		{"1.", 0, false},
		{"-(3)", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"๑๒", 0, false}, // Thai digits stay text
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.in)
		if ok != tc.ok || (ok && got != tc.out) {
			t.Fatalf("%q expected (%v, %v), got (%v, %v)", tc.in, tc.out, tc.ok, got, ok)
		}
	}
}
