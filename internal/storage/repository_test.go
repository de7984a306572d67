package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"budgetconv/internal/core"
)

func sampleTable() core.Table {
	return core.Table{
		IncludeYear:  true,
		ExtraColumns: []string{"Budget", "Remaining_Balance"},
		Rows: []core.OutputRow{
			{Year: "2025", BudgetCode: "G501", BudgetType: "Personnel", ExpenseCode: "5101", ExpenseDetail: "Salaries", Extra: []string{"1000", "250"}, SourceRow: 12},
			{Year: "2025", BudgetCode: "G501", BudgetType: "Personnel", ExpenseCode: "5102", ExpenseDetail: "Overtime pay", Extra: []string{"200", "0"}, SourceRow: 13},
		},
	}
}

func TestExportSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "budget.db")
	if err := ExportSQLite(context.Background(), path, sampleTable()); err != nil {
		t.Fatalf("export: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM budget_lines`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}

	var code, detail, extraJSON string
	var src int
	err = db.QueryRow(`SELECT expense_code, expense_detail, source_row, extra_json FROM budget_lines ORDER BY id DESC LIMIT 1`).
		Scan(&code, &detail, &src, &extraJSON)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if code != "5102" || detail != "Overtime pay" || src != 13 {
		t.Fatalf("unexpected row: %s %s %d", code, detail, src)
	}
	var extra map[string]string
	if err := json.Unmarshal([]byte(extraJSON), &extra); err != nil {
		t.Fatalf("extra_json: %v", err)
	}
	if extra["Budget"] != "200" || extra["Remaining_Balance"] != "0" {
		t.Fatalf("unexpected extra: %v", extra)
	}

	var last string
	if err := db.QueryRow(`SELECT name FROM export_columns ORDER BY position DESC LIMIT 1`).Scan(&last); err != nil {
		t.Fatalf("columns: %v", err)
	}
	if last != "Remaining_Balance" {
		t.Fatalf("expected last column Remaining_Balance, got %q", last)
	}
}

func TestExportSQLiteRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")
	if err := ExportSQLite(context.Background(), path, sampleTable()); err != nil {
		t.Fatalf("first export: %v", err)
	}
	err := ExportSQLite(context.Background(), path, sampleTable())
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestExportSQLiteEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := ExportSQLite(context.Background(), path, core.Table{}); err != nil {
		t.Fatalf("export: %v", err)
	}
}

func TestApplySchemaIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	for i := 0; i < 2; i++ {
		version, err := applySchema(path)
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if version != 1 {
			t.Fatalf("pass %d: version = %d, want 1", i, version)
		}
	}
}
