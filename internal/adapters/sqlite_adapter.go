package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"budgetconv/internal/core"
	ports "budgetconv/internal/sheets"
	"budgetconv/internal/storage"
	"budgetconv/internal/workbook"
)

var (
	_ ports.Encoder = SQLiteEncoder{}
	_ ports.Encoder = WorkbookEncoder{}
)

// SQLiteEncoder exports a table into a temporary SQLite file and returns its bytes.
type SQLiteEncoder struct {
	// TempDir overrides os.TempDir when set.
	TempDir string
}

func (e SQLiteEncoder) Encode(ctx context.Context, t core.Table) ([]byte, error) {
	dir, err := os.MkdirTemp(e.TempDir, "budgetconv-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "export.db")
	if err := storage.ExportSQLite(ctx, path, t); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return data, nil
}

// WorkbookEncoder adapts workbook.Encode to the Encoder port.
type WorkbookEncoder struct {
	Format workbook.Format
}

func (e WorkbookEncoder) Encode(_ context.Context, t core.Table) ([]byte, error) {
	return workbook.Encode(t, e.Format)
}

// EncoderFor returns the encoder for an artifact format.
func EncoderFor(f workbook.Format) (ports.Encoder, error) {
	switch f {
	case workbook.XLSX, workbook.CSV:
		return WorkbookEncoder{Format: f}, nil
	case workbook.SQLite:
		return SQLiteEncoder{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", workbook.ErrUnsupportedFormat, f)
	}
}
