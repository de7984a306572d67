package core

// Canonical output column names.
const (
	ColYear          = "Year"
	ColBudgetCode    = "Budget_Code"
	ColBudgetType    = "Budget_Type"
	ColExpenseCode   = "Expense_Code"
	ColExpenseDetail = "Expense_Detail"
	ColBudgetAccount = "Budget_Account"
)

// DefaultRenames maps the source workbook's Thai headers to output column names.
var DefaultRenames = map[string]string{
	"รหัสบัญชีงบประมาณ": ColBudgetAccount,
	"งบประมาณ":          "Budget",
	"PR/กันงบ":          "PR/Reserved_Budget",
	"ตั้งหนี้/จ่าย":     "Accured/Paid",
	"คงเหลือ":           "Remaining_Balance",
	"ใช้ไป%":            "Spent%",
}

// knownColumns are emitted right after the canonical columns, in this order.
var knownColumns = []string{
	"Budget",
	"PR/Reserved_Budget",
	"Accured/Paid",
	"Remaining_Balance",
	"Spent%",
}

type (
	// RawRow is one row of the source grid. Its position in the input
	// slice is its 0-based row index.
	RawRow []string

	// OutputRow is one normalized expense line.
	OutputRow struct {
		Year          string
		BudgetCode    string
		BudgetType    string
		ExpenseCode   string
		ExpenseDetail string
		// Extra holds the values of Table.ExtraColumns, aligned by index.
		Extra []string
		// SourceRow is the absolute row index in the source file.
		SourceRow int
	}

	// Table is the normalized output of a transform.
	Table struct {
		IncludeYear  bool
		ExtraColumns []string
		Rows         []OutputRow
	}

	// Stats counts what a transform saw.
	Stats struct {
		Pruned    int
		GroupRows int
		ItemRows  int
		Skipped   int
	}

	// Result bundles the table with its stats.
	Result struct {
		Table Table
		Stats Stats
	}

	// Options control the fixed-layout rules. Use DefaultOptions as a base.
	Options struct {
		// SkipLeading drops rows [0, SkipLeading).
		SkipLeading int
		// DropRows lists further absolute row indexes to drop.
		DropRows []int
		// LineColumn names the column holding group codes and item lines.
		// Empty selects Budget_Account when present, else the first column.
		LineColumn string
		// KeepSuffix keeps "_<n>" in Budget_Code (G501_1 vs G501).
		KeepSuffix bool
		// IncludeYear emits the Year column.
		IncludeYear bool
		// Year is the value written to the Year column.
		Year string
		// KeepUnknownColumns emits header columns outside the known set.
		KeepUnknownColumns bool
		// Renames maps source header names to output names.
		Renames map[string]string
	}
)

// DefaultOptions returns the rules for the standard budget export layout.
func DefaultOptions() Options {
	return Options{
		SkipLeading:        9,
		DropRows:           []int{11},
		KeepSuffix:         true,
		IncludeYear:        true,
		KeepUnknownColumns: true,
		Renames:            DefaultRenames,
	}
}

// Cell returns the trimmed cell at column i, or "" when the row is short.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return normalizeCell(r[i])
}

// IsBlank reports whether every cell is empty after normalization.
func (r RawRow) IsBlank() bool {
	for i := range r {
		if r.Cell(i) != "" {
			return false
		}
	}
	return true
}

// Columns returns the output header in emission order.
func (t Table) Columns() []string {
	cols := make([]string, 0, 5+len(t.ExtraColumns))
	if t.IncludeYear {
		cols = append(cols, ColYear)
	}
	cols = append(cols, ColBudgetCode, ColBudgetType, ColExpenseCode, ColExpenseDetail)
	return append(cols, t.ExtraColumns...)
}

// Values returns the cells of row i aligned with Columns.
func (t Table) Values(i int) []string {
	r := t.Rows[i]
	vals := make([]string, 0, 5+len(t.ExtraColumns))
	if t.IncludeYear {
		vals = append(vals, r.Year)
	}
	vals = append(vals, r.BudgetCode, r.BudgetType, r.ExpenseCode, r.ExpenseDetail)
	for j := range t.ExtraColumns {
		v := ""
		if j < len(r.Extra) {
			v = r.Extra[j]
		}
		vals = append(vals, v)
	}
	return vals
}

// Records renders the table as a grid with the header first.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Columns())
	for i := range t.Rows {
		out = append(out, t.Values(i))
	}
	return out
}

// Get returns the value of column col in row i, and whether the column exists.
func (t Table) Get(i int, col string) (string, bool) {
	for j, c := range t.Columns() {
		if c == col {
			return t.Values(i)[j], true
		}
	}
	return "", false
}
