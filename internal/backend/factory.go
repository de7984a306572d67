package backend

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "budgetconv/internal/sheets/google"
	"budgetconv/internal/sheets/memory"
)

type constructor func(ctx context.Context, cfg Config, logger *slog.Logger) (Backend, error)

var constructors = map[BackendType]constructor{
	SheetsBackend: openGoogleSheets,
	MemoryBackend: openMemory,
}

type sheetFactory struct {
	logger *slog.Logger
}

// NewFactory returns a Factory that logs backend selection to logger.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &sheetFactory{logger: logger}
}

// CreateBackend opens the backend selected by cfg.Type. NoBackend yields an
// empty result so the gsheet format reports itself unavailable.
func (f *sheetFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Type == NoBackend {
		f.logger.Info("No sheet backend configured, gsheet format disabled")
		return &BackendResult{}, nil
	}

	open, ok := constructors[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
	b, err := open(ctx, cfg, f.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Type, err)
	}
	return &BackendResult{Backend: b}, nil
}

func openGoogleSheets(ctx context.Context, cfg Config, logger *slog.Logger) (Backend, error) {
	cli, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.GoogleOutputSheetName)
	if err != nil {
		return nil, err
	}
	logger.Info("Sheet backend ready",
		"backend", SheetsBackend,
		"source_sheet", cfg.GoogleSheetName,
		"output_sheet", cfg.GoogleOutputSheetName)
	return cli, nil
}

func openMemory(_ context.Context, cfg Config, logger *slog.Logger) (Backend, error) {
	dir := cfg.DataDirectory
	if dir == "" {
		dir = "data"
	}
	logger.Info("Sheet backend ready", "backend", MemoryBackend, "data_directory", dir)
	return memory.NewFromFiles(dir), nil
}
