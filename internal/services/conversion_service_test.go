package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"budgetconv/internal/core"
	applog "budgetconv/internal/log"
	"budgetconv/internal/sheets/memory"
	"budgetconv/internal/workbook"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

// budgetCSV builds a source in the standard layout: nine title rows, the
// header at row 9, the group at row 10, a subtotal at row 11 and items after.
func budgetCSV(items ...string) string {
	var b strings.Builder
	for i := 0; i < 9; i++ {
		if i == 5 {
			b.WriteString("Fiscal year 2025\n")
			continue
		}
		b.WriteString("title\n")
	}
	b.WriteString("Budget_Account,Budget,Remaining_Balance\n")
	b.WriteString("G501_1 : Personnel,,\n")
	b.WriteString("subtotal,999,999\n")
	for _, it := range items {
		b.WriteString(it + "\n")
	}
	return b.String()
}

func TestConvert_CSVToCSV(t *testing.T) {
	svc := NewConversionService(nil, nil, quietLogger())
	art, err := svc.Convert(context.Background(), Request{
		Name:         "report.csv",
		Input:        strings.NewReader(budgetCSV("5101 Salaries,1000,250", "5102 Overtime pay,200,0")),
		OutputFormat: workbook.CSV,
		KeepSuffix:   true,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if art.Name != "report_converted.csv" {
		t.Errorf("unexpected name %q", art.Name)
	}
	if art.Year != "2025" {
		t.Errorf("unexpected year %q", art.Year)
	}
	if art.Stats.ItemRows != 2 || art.Stats.GroupRows != 1 {
		t.Errorf("unexpected stats %+v", art.Stats)
	}
	want := "2025,G501_1,Personnel,5101,Salaries,1000,250"
	if !bytes.Contains(art.Data, []byte(want)) {
		t.Errorf("missing %q in %q", want, art.Data)
	}
}

func TestConvert_StripSuffixAndDefaultXLSX(t *testing.T) {
	svc := NewConversionService(nil, nil, quietLogger())
	art, err := svc.Convert(context.Background(), Request{
		Name:  "report.csv",
		Input: strings.NewReader(budgetCSV("5101 Salaries,1000,250")),
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if art.Name != "report_converted.xlsx" || art.ContentType != workbook.XLSX.ContentType() {
		t.Errorf("unexpected artifact %q %q", art.Name, art.ContentType)
	}
	if got := art.Table.Rows[0].BudgetCode; got != "G501" {
		t.Errorf("expected suffix stripped, got %q", got)
	}
	if !bytes.HasPrefix(art.Data, []byte("PK")) {
		t.Errorf("xlsx artifact should be a zip container")
	}
}

func TestConvert_Errors(t *testing.T) {
	svc := NewConversionService(nil, nil, quietLogger())
	tests := []struct {
		name  string
		req   Request
		check func(error) bool
	}{
		{
			name:  "unknown extension",
			req:   Request{Name: "report.pdf", Input: strings.NewReader("")},
			check: func(err error) bool { return errors.Is(err, workbook.ErrUnsupportedFormat) },
		},
		{
			name: "unsplittable line",
			req:  Request{Name: "r.csv", Input: strings.NewReader(budgetCSV("5101,1,1")), OutputFormat: workbook.CSV},
			check: func(err error) bool {
				var pe *core.ParseError
				return errors.As(err, &pe) && pe.Row == 12
			},
		},
		{
			name:  "too few rows",
			req:   Request{Name: "r.csv", Input: strings.NewReader("a\nb\n"), OutputFormat: workbook.CSV},
			check: core.IsInputError,
		},
		{
			name:  "gsheet without backend",
			req:   Request{Name: "r", InputFormat: workbook.GSheet},
			check: func(err error) bool { return errors.Is(err, ErrBackendUnavailable) },
		},
		{
			name:  "xls output",
			req:   Request{Name: "r.csv", Input: strings.NewReader(budgetCSV("5101 A,1,1")), OutputFormat: workbook.XLS},
			check: func(err error) bool { return errors.Is(err, workbook.ErrUnsupportedFormat) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Convert(context.Background(), tt.req)
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConvert_SheetBackend(t *testing.T) {
	var rows []core.RawRow
	for _, line := range strings.Split(strings.TrimSpace(budgetCSV("5101 Salaries,1000,250")), "\n") {
		rows = append(rows, core.RawRow(strings.Split(line, ",")))
	}
	store := memory.New("Budget", map[string][]core.RawRow{"Budget": rows})
	svc := NewConversionService(store, store, quietLogger())

	art, err := svc.Convert(context.Background(), Request{
		Name:         "Budget",
		InputFormat:  workbook.GSheet,
		OutputFormat: workbook.GSheet,
		KeepSuffix:   true,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if art.Ref != "mem:1" || art.Data != nil {
		t.Fatalf("expected published ref, got %+v", art)
	}
	pub := store.Published()
	if len(pub) != 1 || len(pub[0].Rows) != 1 || pub[0].Rows[0].ExpenseDetail != "Salaries" {
		t.Fatalf("unexpected published tables: %+v", pub)
	}
}

type failingSource struct{}

func (failingSource) ReadRows(context.Context, string) ([]core.RawRow, error) {
	return nil, fmt.Errorf("quota exceeded")
}

func TestConvert_SourceFailure(t *testing.T) {
	svc := NewConversionService(failingSource{}, nil, quietLogger())
	_, err := svc.Convert(context.Background(), Request{Name: "x", InputFormat: workbook.GSheet})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected source error, got %v", err)
	}
	if core.IsInputError(err) {
		t.Fatal("source failure must not be classified as input error")
	}
}
