// Package worker converts files dropped into an inbox directory, either on
// demand from queued jobs or as a one-off sweep of the whole inbox.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"budgetconv/internal/amqp"
	"budgetconv/internal/core"
	applog "budgetconv/internal/log"
	"budgetconv/internal/services"
	"budgetconv/internal/workbook"
)

// gsheetPrefix marks a job source that names a tab of the configured sheet
// backend instead of an inbox file.
const gsheetPrefix = "gsheet:"

// ErrOutsideDir is returned when a job path escapes its base directory.
var ErrOutsideDir = errors.New("path escapes base directory")

// Converter runs one conversion.
type Converter interface {
	Convert(ctx context.Context, req services.Request) (*services.Artifact, error)
}

// ConversionWorker handles conversion jobs between an inbox and an outbox.
type ConversionWorker struct {
	conv          Converter
	inbox         string
	outbox        string
	defaultFormat workbook.Format
	logger        *applog.Logger
}

// Summary counts the outcome of a sweep.
type Summary struct {
	Converted int
	Failed    int
}

func NewConversionWorker(conv Converter, inbox, outbox string, defaultFormat workbook.Format, logger *applog.Logger) *ConversionWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if defaultFormat == "" {
		defaultFormat = workbook.XLSX
	}
	return &ConversionWorker{
		conv:          conv,
		inbox:         inbox,
		outbox:        outbox,
		defaultFormat: defaultFormat,
		logger:        logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleJob converts the job's source and writes the artifact to the outbox.
// Failures that would repeat on retry are marked with amqp.Permanent.
func (w *ConversionWorker) HandleJob(ctx context.Context, msg *amqp.ConversionJobMessage) error {
	logger := w.logger.With(applog.FieldJobID, msg.JobID, applog.FieldFileName, msg.Source)

	outFormat := w.defaultFormat
	if msg.Format != "" {
		f, err := workbook.ParseFormat(msg.Format)
		if err != nil {
			return amqp.Permanent(err)
		}
		outFormat = f
	}
	if outFormat == workbook.XLS {
		return amqp.Permanent(fmt.Errorf("%w: xls is read only", workbook.ErrUnsupportedFormat))
	}

	req := services.Request{
		OutputFormat: outFormat,
		KeepSuffix:   msg.KeepSuffix,
	}

	if sheet, ok := strings.CutPrefix(msg.Source, gsheetPrefix); ok {
		req.Name = sheet
		req.InputFormat = workbook.GSheet
		req.Sheet = sheet
	} else {
		path, err := resolveInside(w.inbox, msg.Source)
		if err != nil {
			return amqp.Permanent(err)
		}
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return amqp.Permanent(fmt.Errorf("open source: %w", err))
			}
			return fmt.Errorf("open source: %w", err)
		}
		defer f.Close()
		req.Name = filepath.Base(path)
		req.Input = f
	}

	art, err := w.conv.Convert(ctx, req)
	if err != nil {
		if isPermanent(err) {
			return amqp.Permanent(err)
		}
		return err
	}

	if art.Ref != "" {
		logger.InfoContext(ctx, "Conversion published", applog.FieldArtifactRef, art.Ref,
			applog.FieldItemRows, art.Stats.ItemRows)
		return nil
	}

	outName := msg.Output
	if outName == "" {
		outName = art.Name
	}
	outPath, err := resolveInside(w.outbox, outName)
	if err != nil {
		return amqp.Permanent(err)
	}
	if err := writeFileAtomic(outPath, art.Data); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	logger.InfoContext(ctx, "Conversion written",
		applog.FieldArtifactRef, outPath,
		applog.FieldItemRows, art.Stats.ItemRows,
		applog.FieldBytes, len(art.Data))
	return nil
}

// ConvertDir converts every readable file directly inside the inbox with up
// to concurrency conversions in flight. Files whose output names would clash
// ("a.xlsx" and "a.csv") keep their source extension in the output name. Failures are logged and counted; the
// returned error is only set for a failure to list the inbox or a canceled
// context.
func (w *ConversionWorker) ConvertDir(ctx context.Context, concurrency int, outFormat workbook.Format, keepSuffix bool) (Summary, error) {
	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		return Summary{}, fmt.Errorf("list inbox: %w", err)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var converted, failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if f, err := workbook.FormatFromName(e.Name()); err != nil || !f.Readable() {
			continue
		}
		names = append(names, e.Name())
	}
	outputs, clashes := workbook.PlanOutputs(names, outFormat, func(_ int, name string) string { return name })

	for i, name := range names {
		if clashes[i] != nil {
			failed.Add(1)
			w.logger.ErrorContext(ctx, "Conversion skipped",
				applog.FieldFileName, name,
				applog.FieldError, clashes[i])
			continue
		}
		output := outputs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			job := amqp.NewConversionJobMessage(name, output, string(outFormat), keepSuffix)
			if err := w.HandleJob(ctx, job); err != nil {
				failed.Add(1)
				w.logger.ErrorContext(ctx, "Conversion failed",
					applog.FieldFileName, name,
					applog.FieldError, err)
				return nil
			}
			converted.Add(1)
			return nil
		})
	}

	err = g.Wait()
	return Summary{Converted: int(converted.Load()), Failed: int(failed.Load())}, err
}

// isPermanent reports whether a conversion error would repeat on retry.
func isPermanent(err error) bool {
	return core.IsInputError(err) ||
		errors.Is(err, workbook.ErrUnreadable) ||
		errors.Is(err, workbook.ErrUnsupportedFormat) ||
		errors.Is(err, services.ErrBackendUnavailable)
}

// resolveInside joins rel onto base and rejects results outside base.
func resolveInside(base, rel string) (string, error) {
	if rel == "" {
		return "", errors.New("empty path")
	}
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: %q is absolute", ErrOutsideDir, rel)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(absBase, rel)
	r, err := filepath.Rel(absBase, joined)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) || r == "." {
		return "", fmt.Errorf("%w: %q", ErrOutsideDir, rel)
	}
	return joined, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".part-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
