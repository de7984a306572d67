package sheets

import (
	"context"

	"budgetconv/internal/core"
)

// Ports for outbound adapters.
type (
	// RowSource reads the raw grid of a hosted sheet.
	RowSource interface {
		// ReadRows returns every row of the named tab. An empty name selects the default tab.
		ReadRows(ctx context.Context, sheet string) ([]core.RawRow, error)
	}

	// TableSink publishes a converted table and returns a reference to it.
	TableSink interface {
		Publish(ctx context.Context, t core.Table) (ref string, err error)
	}

	// Encoder renders a converted table into artifact bytes.
	Encoder interface {
		Encode(ctx context.Context, t core.Table) ([]byte, error)
	}
)
