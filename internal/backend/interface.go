package backend

import (
	"context"

	"budgetconv/internal/sheets"
)

// Backend is a remote spreadsheet that rows are read from and converted
// tables are published to.
type Backend interface {
	sheets.RowSource
	sheets.TableSink
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
// Backend is nil when no sheet backend is configured.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Source returns the backend as a RowSource, or nil.
func (r *BackendResult) Source() sheets.RowSource {
	if r == nil || r.Backend == nil {
		return nil
	}
	return r.Backend
}

// Sink returns the backend as a TableSink, or nil.
func (r *BackendResult) Sink() sheets.TableSink {
	if r == nil || r.Backend == nil {
		return nil
	}
	return r.Backend
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOutputSheetName string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	NoBackend     BackendType = "none"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case NoBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
