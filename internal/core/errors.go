package core

import (
	"errors"
	"fmt"
)

// ErrNoDetail is wrapped by ParseError when a line carries a code but no detail.
var ErrNoDetail = errors.New("line has no detail after the code")

// EmptyInputError reports that no row survived pruning.
type EmptyInputError struct {
	Rows int // rows in the source
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("no rows left after pruning (source has %d rows)", e.Rows)
}

// ParseError reports a row that could not be classified or split.
type ParseError struct {
	Row  int // absolute source row index
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: cannot split %q into expense code and detail: %v", e.Row, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports input whose shape does not match the fixed layout.
type SchemaError struct {
	Row    int // absolute row index, -1 when not row specific
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return e.Reason
}

// IsInputError reports whether err comes from the shape or content of the
// input rather than from I/O.
func IsInputError(err error) bool {
	var (
		empty  *EmptyInputError
		parse  *ParseError
		schema *SchemaError
	)
	return errors.As(err, &empty) || errors.As(err, &parse) || errors.As(err, &schema)
}
