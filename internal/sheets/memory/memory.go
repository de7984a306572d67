package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"budgetconv/internal/core"
	ports "budgetconv/internal/sheets"
)

var (
	_ ports.RowSource = (*Store)(nil)
	_ ports.TableSink = (*Store)(nil)
)

// Store keeps named sheets and published tables in memory.
type Store struct {
	mu           sync.Mutex
	defaultSheet string
	sheets       map[string][]core.RawRow
	published    []core.Table
}

func New(defaultSheet string, sheets map[string][]core.RawRow) *Store {
	s := &Store{defaultSheet: defaultSheet, sheets: make(map[string][]core.RawRow, len(sheets))}
	for name, rows := range sheets {
		s.sheets[name] = cloneRows(rows)
	}
	return s
}

// NewFromFiles loads every *.csv file in base as a sheet named after the
// file stem. The alphabetically first sheet becomes the default.
func NewFromFiles(base string) *Store {
	paths, _ := filepath.Glob(filepath.Join(base, "*.csv"))
	sort.Strings(paths)
	sheets := make(map[string][]core.RawRow, len(paths))
	def := ""
	for _, p := range paths {
		rows := readCSV(p)
		if rows == nil {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if def == "" {
			def = name
		}
		sheets[name] = rows
	}
	return New(def, sheets)
}

// ReadRows returns a copy of the named sheet.
func (s *Store) ReadRows(_ context.Context, sheet string) ([]core.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sheet == "" {
		sheet = s.defaultSheet
	}
	rows, ok := s.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return cloneRows(rows), nil
}

// Publish stores the table and returns a synthetic reference.
func (s *Store) Publish(_ context.Context, t core.Table) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, t)
	return fmt.Sprintf("mem:%d", len(s.published)), nil
}

// Published returns the tables published so far.
func (s *Store) Published() []core.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Table(nil), s.published...)
}

func readCSV(path string) []core.RawRow {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil
	}
	out := make([]core.RawRow, len(records))
	for i, rec := range records {
		out[i] = core.RawRow(rec)
	}
	return out
}

func cloneRows(in []core.RawRow) []core.RawRow {
	out := make([]core.RawRow, len(in))
	for i, r := range in {
		out[i] = append(core.RawRow(nil), r...)
	}
	return out
}
