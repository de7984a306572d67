package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"budgetconv/internal/core"

	_ "modernc.org/sqlite"
)

// ErrExists is returned when the export target already exists.
var ErrExists = errors.New("export database already exists")

// ExportSQLite writes the table into a fresh SQLite database at path. The
// file must not exist yet; rows are inserted in a single transaction.
func ExportSQLite(ctx context.Context, path string, t core.Table) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	version, err := applySchema(path)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertColumns(ctx, tx, t.Columns()); err != nil {
		return err
	}
	if err := insertLines(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}

	slog.DebugContext(ctx, "Exported table to SQLite", "path", path, "rows", len(t.Rows), "schema_version", version)
	return nil
}

func insertColumns(ctx context.Context, tx *sql.Tx, cols []string) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO export_columns (position, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare column insert: %w", err)
	}
	defer stmt.Close()
	for i, c := range cols {
		if _, err := stmt.ExecContext(ctx, i, c); err != nil {
			return fmt.Errorf("insert column %q: %w", c, err)
		}
	}
	return nil
}

func insertLines(ctx context.Context, tx *sql.Tx, t core.Table) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO budget_lines
			(source_row, year, budget_code, budget_type, expense_code, expense_detail, extra_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare line insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range t.Rows {
		extra := make(map[string]string, len(t.ExtraColumns))
		for j, name := range t.ExtraColumns {
			if j < len(r.Extra) {
				extra[name] = r.Extra[j]
			}
		}
		extraJSON, err := json.Marshal(extra)
		if err != nil {
			return fmt.Errorf("encode extra columns for row %d: %w", r.SourceRow, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.SourceRow, r.Year, r.BudgetCode, r.BudgetType,
			r.ExpenseCode, r.ExpenseDetail, string(extraJSON),
		); err != nil {
			return fmt.Errorf("insert row %d: %w", r.SourceRow, err)
		}
	}
	return nil
}
