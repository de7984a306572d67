package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budgetconv/internal/amqp"
	"budgetconv/internal/core"
	applog "budgetconv/internal/log"
	"budgetconv/internal/services"
	"budgetconv/internal/sheets/memory"
	"budgetconv/internal/workbook"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func budgetCSV(items ...string) string {
	var b strings.Builder
	for i := 0; i < 9; i++ {
		if i == 5 {
			b.WriteString("Fiscal year 2024\n")
			continue
		}
		b.WriteString("title\n")
	}
	b.WriteString("Budget_Account,Budget\n")
	b.WriteString("G502 : Operations,\n")
	b.WriteString("subtotal,10\n")
	for _, it := range items {
		b.WriteString(it + "\n")
	}
	return b.String()
}

func newTestWorker(t *testing.T, conv Converter) (*ConversionWorker, string, string) {
	t.Helper()
	inbox := filepath.Join(t.TempDir(), "inbox")
	outbox := filepath.Join(t.TempDir(), "outbox")
	if err := os.MkdirAll(inbox, 0o755); err != nil {
		t.Fatal(err)
	}
	if conv == nil {
		conv = services.NewConversionService(nil, nil, quietLogger())
	}
	return NewConversionWorker(conv, inbox, outbox, workbook.CSV, quietLogger()), inbox, outbox
}

func writeInbox(t *testing.T, inbox, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(inbox, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestHandleJob_WritesArtifact(t *testing.T) {
	w, inbox, outbox := newTestWorker(t, nil)
	writeInbox(t, inbox, "ops.csv", budgetCSV("6101 Office supplies,40"))

	job := amqp.NewConversionJobMessage("ops.csv", "", "", false)
	if err := w.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outbox, "ops_converted.csv"))
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	text := string(bytes.TrimPrefix(data, []byte("\ufeff")))
	if !strings.Contains(text, "2024,G502,Operations,6101,Office supplies,40") {
		t.Errorf("unexpected artifact:\n%s", text)
	}
}

func TestHandleJob_ExplicitOutputAndFormat(t *testing.T) {
	w, inbox, outbox := newTestWorker(t, nil)
	writeInbox(t, inbox, "ops.csv", budgetCSV("6101 Office supplies,40"))

	job := amqp.NewConversionJobMessage("ops.csv", "2024/ops.xlsx", "xlsx", true)
	if err := w.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(outbox, "2024", "ops.xlsx"))
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("xlsx artifact should be a zip container")
	}
}

func TestHandleJob_Failures(t *testing.T) {
	tests := []struct {
		name          string
		source        string
		output        string
		format        string
		content       string
		wantPermanent bool
	}{
		{name: "traversal in source", source: "../secret.csv", wantPermanent: true},
		{name: "absolute source", source: "/etc/passwd", wantPermanent: true},
		{name: "missing source", source: "nope.csv", wantPermanent: true},
		{name: "traversal in output", source: "ops.csv", output: "../../x.csv", content: budgetCSV("6101 Pens,1"), wantPermanent: true},
		{name: "unknown format", source: "ops.csv", format: "pdf", content: budgetCSV("6101 Pens,1"), wantPermanent: true},
		{name: "xls output", source: "ops.csv", format: "xls", content: budgetCSV("6101 Pens,1"), wantPermanent: true},
		{name: "unparseable line", source: "ops.csv", content: budgetCSV("6101,1"), wantPermanent: true},
		{name: "unsupported input extension", source: "ops.txt", content: "x", wantPermanent: true},
		{name: "corrupt xlsx", source: "broken.xlsx", content: "this is not a zip archive", wantPermanent: true},
		{name: "csv named xls", source: "ops.xls", content: budgetCSV("6101 Pens,1"), wantPermanent: true},
		{name: "gsheet without backend", source: "gsheet:raw", wantPermanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, inbox, _ := newTestWorker(t, nil)
			if tt.content != "" {
				writeInbox(t, inbox, tt.source, tt.content)
			}
			job := amqp.NewConversionJobMessage(tt.source, tt.output, tt.format, true)

			err := w.HandleJob(context.Background(), job)
			if err == nil {
				t.Fatal("expected error")
			}
			if amqp.IsPermanent(err) != tt.wantPermanent {
				t.Errorf("IsPermanent(%v) = %v, want %v", err, amqp.IsPermanent(err), tt.wantPermanent)
			}
		})
	}
}

type failingConverter struct{ err error }

func (f failingConverter) Convert(context.Context, services.Request) (*services.Artifact, error) {
	return nil, f.err
}

func TestHandleJob_TransientErrorIsRetryable(t *testing.T) {
	w, inbox, _ := newTestWorker(t, failingConverter{err: errors.New("sheets api: 503")})
	writeInbox(t, inbox, "ops.csv", "x")

	err := w.HandleJob(context.Background(), amqp.NewConversionJobMessage("ops.csv", "", "", true))
	if err == nil || amqp.IsPermanent(err) {
		t.Errorf("expected retryable error, got %v", err)
	}
}

func TestHandleJob_InputErrorIsPermanent(t *testing.T) {
	w, inbox, _ := newTestWorker(t, failingConverter{err: &core.EmptyInputError{Rows: 9}})
	writeInbox(t, inbox, "ops.csv", "x")

	err := w.HandleJob(context.Background(), amqp.NewConversionJobMessage("ops.csv", "", "", true))
	if !amqp.IsPermanent(err) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestHandleJob_GSheetPublishes(t *testing.T) {
	rows := make([]core.RawRow, 0)
	for _, line := range strings.Split(strings.TrimSpace(budgetCSV("6101 Office supplies,40")), "\n") {
		rows = append(rows, core.RawRow(strings.Split(line, ",")))
	}
	store := memory.New("raw", map[string][]core.RawRow{"raw": rows})
	conv := services.NewConversionService(store, store, quietLogger())
	w, _, outbox := newTestWorker(t, conv)

	job := amqp.NewConversionJobMessage("gsheet:raw", "", "gsheet", true)
	if err := w.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}
	if got := len(store.Published()); got != 1 {
		t.Fatalf("published %d tables, want 1", got)
	}
	if entries, _ := os.ReadDir(outbox); len(entries) != 0 {
		t.Errorf("outbox should stay empty, got %d entries", len(entries))
	}
}

func TestConvertDir(t *testing.T) {
	w, inbox, outbox := newTestWorker(t, nil)
	writeInbox(t, inbox, "a.csv", budgetCSV("6101 Pens,1"))
	writeInbox(t, inbox, "b.csv", budgetCSV("6102 Paper,2"))
	writeInbox(t, inbox, "broken.csv", budgetCSV("6103,3"))
	writeInbox(t, inbox, "notes.txt", "ignored")

	sum, err := w.ConvertDir(context.Background(), 2, workbook.CSV, true)
	if err != nil {
		t.Fatalf("ConvertDir() error = %v", err)
	}
	if sum.Converted != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 2 converted and 1 failed", sum)
	}
	for _, name := range []string{"a_converted.csv", "b_converted.csv"} {
		if _, err := os.Stat(filepath.Join(outbox, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
}

func TestConvertDir_SameStemKeepsBothOutputs(t *testing.T) {
	w, inbox, outbox := newTestWorker(t, nil)
	writeInbox(t, inbox, "ops.csv", budgetCSV("6101 Pens,1"))
	writeInbox(t, inbox, "ops.xlsx", "this is not a zip archive")
	writeInbox(t, inbox, "misc.csv", budgetCSV("6102 Paper,2"))

	sum, err := w.ConvertDir(context.Background(), 2, workbook.CSV, true)
	if err != nil {
		t.Fatalf("ConvertDir() error = %v", err)
	}
	if sum.Converted != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 2 converted and 1 failed", sum)
	}
	for _, name := range []string{"ops_csv_converted.csv", "misc_converted.csv"} {
		if _, err := os.Stat(filepath.Join(outbox, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outbox, "ops_converted.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ops_converted.csv should not be written, stat err = %v", err)
	}
}

func TestResolveInside(t *testing.T) {
	base := t.TempDir()
	tests := []struct {
		rel     string
		wantErr bool
	}{
		{"file.csv", false},
		{"sub/dir/file.csv", false},
		{"sub/../file.csv", false},
		{"../file.csv", true},
		{"sub/../../file.csv", true},
		{"/abs/file.csv", true},
		{".", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got, err := resolveInside(base, tt.rel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveInside(%q) error = %v, wantErr %v", tt.rel, err, tt.wantErr)
			}
			if !tt.wantErr && !strings.HasPrefix(got, base) {
				t.Errorf("resolveInside(%q) = %q, not inside %q", tt.rel, got, base)
			}
		})
	}
}
