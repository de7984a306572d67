package cli

import (
	"context"
	"log/slog"
	"testing"

	"budgetconv/internal/config"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
	if slog.Default() != logger.Logger {
		t.Error("logger should become the default")
	}

	logger = SetupLogger("error")
	if logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled at error level")
	}
}

func TestInitBackend_None(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	res := InitBackend(context.Background(), SetupLogger("error"), &config.Config{SheetsBackend: config.SheetsBackendNone})
	if res.Source() != nil {
		t.Error("none backend should have no source")
	}
}
