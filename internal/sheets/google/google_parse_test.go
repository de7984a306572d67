package google

import (
	"reflect"
	"testing"

	"budgetconv/internal/core"
)

func TestToRawRows(t *testing.T) {
	values := [][]interface{}{
		{"Budget report 2025"},
		{},
		{"G501 : Personnel", nil, 1200.5},
	}
	got := toRawRows(values)
	want := []core.RawRow{
		{"Budget report 2025"},
		{},
		{"G501 : Personnel", "", "1200.5"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestTableValues(t *testing.T) {
	tbl := core.Table{
		IncludeYear:  true,
		ExtraColumns: []string{"Budget", "Spent%"},
		Rows: []core.OutputRow{{
			Year: "2025", BudgetCode: "G501", BudgetType: "Personnel",
			ExpenseCode: "5101", ExpenseDetail: "Salaries",
			Extra: []string{"1,200.50", "45%"},
		}},
	}
	got := tableValues(tbl)
	if len(got) != 2 {
		t.Fatalf("expected header and one row, got %d", len(got))
	}
	if got[0][0] != "Year" || got[0][5] != "Budget" {
		t.Fatalf("unexpected header: %v", got[0])
	}
	row := got[1]
	if row[3] != "5101" {
		t.Errorf("expense code must stay text, got %#v", row[3])
	}
	if row[5] != 1200.5 {
		t.Errorf("budget should be numeric, got %#v", row[5])
	}
	if row[6] != "45%" {
		t.Errorf("percent should stay text, got %#v", row[6])
	}
}

func TestA1Range(t *testing.T) {
	tests := []struct {
		sheet      string
		cols, rows int
		want       string
	}{
		{"converted", 10, 3, "'converted'!A1:J3"},
		{"it's", 1, 0, "'it''s'!A1:A1"},
		{"wide", 28, 2, "'wide'!A1:AB2"},
	}
	for _, tt := range tests {
		got, err := a1Range(tt.sheet, tt.cols, tt.rows)
		if err != nil {
			t.Fatalf("a1Range(%q): %v", tt.sheet, err)
		}
		if got != tt.want {
			t.Errorf("a1Range(%q, %d, %d) = %q, want %q", tt.sheet, tt.cols, tt.rows, got, tt.want)
		}
	}
}
