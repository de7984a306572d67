package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"budgetconv/internal/workbook"
)

func TestParseOptions(t *testing.T) {
	def := FormDefaults{OutputFormat: workbook.XLSX, KeepSuffix: true}
	tests := []struct {
		name       string
		values     url.Values
		wantFormat workbook.Format
		wantKeep   bool
		wantErr    error
	}{
		{"defaults", url.Values{}, workbook.XLSX, true, nil},
		{"csv strip", url.Values{"format": {"CSV"}, "keep_suffix": {"false"}}, workbook.CSV, false, nil},
		{"checkbox on", url.Values{"keep_suffix": {"on"}}, workbook.XLSX, true, nil},
		{"sqlite alias", url.Values{"format": {"db"}}, workbook.SQLite, true, nil},
		{"xls rejected", url.Values{"format": {"xls"}}, "", false, workbook.ErrUnsupportedFormat},
		{"bad bool", url.Values{"keep_suffix": {"maybe"}}, "", false, ErrBadForm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOptions(tt.values, def)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.OutputFormat != tt.wantFormat || got.KeepSuffix != tt.wantKeep {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestCleanFileName(t *testing.T) {
	tests := map[string]string{
		"report.xlsx":            "report.xlsx",
		`C:\Users\me\budget.xls`: "budget.xls",
		"../../etc/passwd.csv":   "passwd.csv",
		"  งบประมาณ 2568.xlsx  ": "งบประมาณ 2568.xlsx",
		"":                       "",
		"/":                      "",
	}
	for in, want := range tests {
		if got := cleanFileName(in); got != want {
			t.Errorf("cleanFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRawBodyTooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/convert?name=a.csv", strings.NewReader(strings.Repeat("x", 100)))
	_, err := ParseRawBody(httptest.NewRecorder(), req, 10, FormDefaults{OutputFormat: workbook.XLSX})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestContentDisposition(t *testing.T) {
	if got := contentDisposition("report_converted.xlsx"); got != `attachment; filename=report_converted.xlsx` {
		t.Errorf("ascii name: %q", got)
	}
	if got := contentDisposition("งบ_converted.xlsx"); !strings.Contains(got, "filename*=utf-8''") {
		t.Errorf("non-ascii name should use RFC 2231 encoding: %q", got)
	}
}
