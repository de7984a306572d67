package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// "G501 : Personnel" or "G501_1 : Personnel"
	groupWithType = regexp.MustCompile(`^(G\d{3})(_[^:\s]+)?\s*:\s*(.+)$`)
	// "G501" with the type in a later cell of the same row
	groupBare = regexp.MustCompile(`^(G\d{3})(_[^:\s]+)?$`)
)

// group is the forward-fill accumulator threaded through the row pass.
type group struct {
	code string
	kind string
}

type indexedRow struct {
	index int
	row   RawRow
}

// header describes where the interesting columns sit in the source grid.
type header struct {
	line       int
	extra      []int
	extraNames []string
}

// Transform prunes the fixed layout rows, promotes the header, classifies
// the remaining rows and returns one OutputRow per item row.
func Transform(rows []RawRow, opts Options) (Result, error) {
	if len(rows) < opts.SkipLeading {
		return Result{}, &SchemaError{
			Row:    -1,
			Reason: fmt.Sprintf("source has %d rows, layout needs at least %d", len(rows), opts.SkipLeading),
		}
	}

	kept := prune(rows, opts)
	if len(kept) == 0 {
		return Result{}, &EmptyInputError{Rows: len(rows)}
	}

	hdr, err := buildHeader(kept[0], opts)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Table: Table{IncludeYear: opts.IncludeYear, ExtraColumns: hdr.extraNames},
		Stats: Stats{Pruned: len(rows) - len(kept)},
	}

	var cur group
	for _, ir := range kept[1:] {
		line := ir.row.Cell(hdr.line)
		if line == "" {
			res.Stats.Skipped++
			continue
		}

		if g, ok := classifyGroup(ir.row, hdr.line, line, opts.KeepSuffix); ok {
			cur = g
			res.Stats.GroupRows++
			continue
		}

		code, detail, ok := splitLine(line)
		if !ok {
			return Result{}, &ParseError{Row: ir.index, Line: line, Err: ErrNoDetail}
		}

		out := OutputRow{
			Year:          opts.Year,
			BudgetCode:    cur.code,
			BudgetType:    cur.kind,
			ExpenseCode:   code,
			ExpenseDetail: detail,
			Extra:         make([]string, len(hdr.extra)),
			SourceRow:     ir.index,
		}
		for j, col := range hdr.extra {
			out.Extra[j] = ir.row.Cell(col)
		}
		res.Table.Rows = append(res.Table.Rows, out)
		res.Stats.ItemRows++
	}

	return res, nil
}

// prune drops rows by absolute position. Indexes past the end are ignored.
func prune(rows []RawRow, opts Options) []indexedRow {
	drop := make(map[int]bool, len(opts.DropRows))
	for _, i := range opts.DropRows {
		drop[i] = true
	}
	kept := make([]indexedRow, 0, len(rows))
	for i := opts.SkipLeading; i < len(rows); i++ {
		if drop[i] {
			continue
		}
		kept = append(kept, indexedRow{index: i, row: rows[i]})
	}
	return kept
}

func buildHeader(ir indexedRow, opts Options) (header, error) {
	renames := make(map[string]string, len(opts.Renames))
	for from, to := range opts.Renames {
		renames[normalizeHeader(from)] = to
	}

	names := make([]string, len(ir.row))
	seen := make(map[string]int)
	blank := true
	for i, cell := range ir.row {
		name := normalizeHeader(cell)
		if name == "" {
			continue
		}
		blank = false
		if to, ok := renames[name]; ok {
			name = to
		}
		if n := seen[name]; n > 0 {
			base := name
			for seen[name] > 0 {
				name = base + "." + strconv.Itoa(n)
				n++
			}
			seen[base] = n
		}
		seen[name] = 1
		names[i] = name
	}
	if blank {
		return header{}, &SchemaError{Row: ir.index, Reason: "header row is empty"}
	}

	hdr := header{line: -1}
	switch {
	case opts.LineColumn != "":
		want := normalizeHeader(opts.LineColumn)
		for i, cell := range ir.row {
			if names[i] == want || normalizeHeader(cell) == want {
				hdr.line = i
				break
			}
		}
		if hdr.line < 0 {
			return header{}, &SchemaError{
				Row:    ir.index,
				Reason: fmt.Sprintf("line column %q not found in header %v", opts.LineColumn, nonEmpty(names)),
			}
		}
	default:
		hdr.line = 0
		for i, n := range names {
			if n == ColBudgetAccount {
				hdr.line = i
				break
			}
		}
	}

	reserved := map[string]bool{
		ColYear: true, ColBudgetCode: true, ColBudgetType: true,
		ColExpenseCode: true, ColExpenseDetail: true,
	}
	used := map[int]bool{hdr.line: true}
	add := func(i int) {
		used[i] = true
		hdr.extra = append(hdr.extra, i)
		hdr.extraNames = append(hdr.extraNames, names[i])
	}
	for _, known := range knownColumns {
		for i, n := range names {
			if n == known && !used[i] {
				add(i)
				break
			}
		}
	}
	if opts.KeepUnknownColumns {
		for i, n := range names {
			if n == "" || used[i] || reserved[n] {
				continue
			}
			add(i)
		}
	}
	return hdr, nil
}

func classifyGroup(row RawRow, lineCol int, line string, keepSuffix bool) (group, bool) {
	if m := groupWithType.FindStringSubmatch(line); m != nil {
		return group{code: groupCode(m[1], m[2], keepSuffix), kind: strings.TrimSpace(m[3])}, true
	}
	if m := groupBare.FindStringSubmatch(line); m != nil {
		g := group{code: groupCode(m[1], m[2], keepSuffix)}
		for i := lineCol + 1; i < len(row); i++ {
			if v := row.Cell(i); v != "" {
				g.kind = v
				break
			}
		}
		return g, true
	}
	return group{}, false
}

func groupCode(base, suffix string, keepSuffix bool) string {
	if keepSuffix {
		return base + suffix
	}
	return base
}

// splitLine splits "5101 Travel expense" into its leading code and the rest.
func splitLine(line string) (code, detail string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}

func normalizeCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

func normalizeHeader(s string) string {
	return norm.NFC.String(normalizeCell(s))
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
