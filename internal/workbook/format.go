// Package workbook reads raw spreadsheet grids and encodes converted tables.
package workbook

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a spreadsheet container.
type Format string

const (
	XLSX   Format = "xlsx"
	XLS    Format = "xls"
	CSV    Format = "csv"
	SQLite Format = "sqlite"
	GSheet Format = "gsheet"
)

// SheetName is the name of the sheet holding converted rows.
const SheetName = "converted"

var (
	// ErrUnsupportedFormat is returned for formats a reader or encoder cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnreadable wraps failures to parse a file's content as its declared
	// format: a corrupt workbook, a misleading extension or malformed CSV.
	ErrUnreadable = errors.New("file is not a readable workbook")
	// ErrOutputCollision is returned when two sources would write the same file.
	ErrOutputCollision = errors.New("output name collision")
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case XLSX, XLS, CSV, SQLite, GSheet:
		return f, nil
	case "db", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatFromName picks the input format from a file extension.
func FormatFromName(name string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "xlsx", "xlsm":
		return XLSX, nil
	case "xls":
		return XLS, nil
	case "csv":
		return CSV, nil
	default:
		return "", fmt.Errorf("%w: file extension %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Readable reports whether rows can be read from files of this format.
func (f Format) Readable() bool {
	return f == XLSX || f == XLS || f == CSV
}

// Encodable reports whether a table can be encoded to bytes in this format.
func (f Format) Encodable() bool {
	return f == XLSX || f == CSV || f == SQLite
}

// Extension returns the file extension for artifacts of this format.
func (f Format) Extension() string {
	switch f {
	case SQLite:
		return ".db"
	default:
		return "." + string(f)
	}
}

// ContentType returns the MIME type served for artifacts of this format.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case XLS:
		return "application/vnd.ms-excel"
	case CSV:
		return "text/csv; charset=utf-8"
	case SQLite:
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}

// OutputName derives "<stem>_converted.<ext>" from the uploaded file name.
func OutputName(source string, f Format) string {
	stem, _ := splitSource(source)
	return stem + "_converted" + f.Extension()
}

// SourceOutputName keeps the source extension in the stem, so "report.xls"
// becomes "report_xls_converted.<ext>".
func SourceOutputName(source string, f Format) string {
	stem, ext := splitSource(source)
	if ext == "" {
		return OutputName(source, f)
	}
	return stem + "_" + ext + "_converted" + f.Extension()
}

// PlanOutputs assigns an output path to every source. dest places a file
// name for source i. Sources that would share a path fall back to
// SourceOutputName; a path still shared after that fails every source but
// the first with ErrOutputCollision.
func PlanOutputs(sources []string, f Format, dest func(i int, name string) string) ([]string, []error) {
	paths := make([]string, len(sources))
	count := make(map[string]int, len(sources))
	for i, src := range sources {
		paths[i] = dest(i, OutputName(src, f))
		count[paths[i]]++
	}
	for i, src := range sources {
		if count[paths[i]] > 1 {
			paths[i] = dest(i, SourceOutputName(src, f))
		}
	}

	errs := make([]error, len(sources))
	owner := make(map[string]int, len(sources))
	for i, p := range paths {
		if j, ok := owner[p]; ok {
			errs[i] = fmt.Errorf("%w: %s and %s both write %s", ErrOutputCollision, sources[j], sources[i], p)
			continue
		}
		owner[p] = i
	}
	return paths, errs
}

func splitSource(source string) (stem, ext string) {
	base := filepath.Base(strings.ReplaceAll(source, "\\", "/"))
	ext = filepath.Ext(base)
	stem = strings.TrimSuffix(base, ext)
	if stem == "" || stem == "." || stem == "/" {
		stem = "budget"
	}
	return stem, strings.ToLower(strings.TrimPrefix(ext, "."))
}
