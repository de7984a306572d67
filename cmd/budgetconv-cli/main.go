// Command budgetconv-cli converts budget workbooks from the command line.
//
//	budgetconv-cli -format csv -out ./converted report-2025.xlsx report-2024.xls
//	budgetconv-cli -enqueue 2025/report.xlsx
//	budgetconv-cli -format xlsx gsheet:raw
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"budgetconv/internal/amqp"
	"budgetconv/internal/cli"
	"budgetconv/internal/config"
	applog "budgetconv/internal/log"
	"budgetconv/internal/services"
	"budgetconv/internal/workbook"
)

const gsheetPrefix = "gsheet:"

type options struct {
	format     workbook.Format
	outDir     string
	keepSuffix bool
	enqueue    bool
	jobs       int
	files      []string
}

// publisher is the part of the AMQP client used for -enqueue.
type publisher interface {
	PublishConversionJob(ctx context.Context, msg *amqp.ConversionJobMessage) error
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)

	opts, err := parseFlags(os.Args[1:], cfg, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.enqueue {
		if cfg.AMQPURL == "" {
			fmt.Fprintln(os.Stderr, "AMQP_URL is required with -enqueue")
			os.Exit(1)
		}
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		if err := enqueue(ctx, client, opts, os.Stdout); err != nil {
			logger.Error("Enqueue failed", applog.FieldError, err)
			os.Exit(1)
		}
		return
	}

	var conv *services.ConversionService
	if needsSheets(opts) {
		sheets := cli.InitBackend(ctx, logger, cfg)
		defer sheets.Close()
		conv = services.NewConversionService(sheets.Source(), sheets.Sink(), logger)
	} else {
		conv = services.NewConversionService(nil, nil, logger)
	}

	if err := convertAll(ctx, conv, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("budgetconv-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", cfg.OutputFormat, "output format: xlsx, csv, sqlite or gsheet")
	out := fs.String("out", "", "output directory (default: next to each input)")
	keep := fs.Bool("keep-suffix", cfg.KeepSuffix, "keep the _<n> suffix of group codes")
	enq := fs.Bool("enqueue", false, "publish conversion jobs to AMQP instead of converting locally")
	jobs := fs.Int("j", cfg.WorkerConcurrency, "files converted in parallel")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: budgetconv-cli [flags] file... | gsheet:<tab>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	f, err := workbook.ParseFormat(*format)
	if err != nil {
		return options{}, err
	}
	if f == workbook.XLS {
		return options{}, fmt.Errorf("%w: xls is read only", workbook.ErrUnsupportedFormat)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return options{}, errors.New("no input files")
	}
	if *jobs < 1 {
		*jobs = 1
	}
	return options{
		format:     f,
		outDir:     *out,
		keepSuffix: *keep,
		enqueue:    *enq,
		jobs:       *jobs,
		files:      fs.Args(),
	}, nil
}

func needsSheets(opts options) bool {
	if opts.format == workbook.GSheet {
		return true
	}
	for _, f := range opts.files {
		if strings.HasPrefix(f, gsheetPrefix) {
			return true
		}
	}
	return false
}

// convertAll converts every input with up to opts.jobs in flight. All inputs
// are attempted; every failure is returned.
func convertAll(ctx context.Context, conv converter, opts options, stdout io.Writer) error {
	lines := make([]string, len(opts.files))
	paths, errs := planOutputs(opts)

	var g errgroup.Group
	g.SetLimit(opts.jobs)
	for i, file := range opts.files {
		if errs[i] != nil {
			continue
		}
		g.Go(func() error {
			lines[i], errs[i] = convertOne(ctx, conv, opts, file, paths[i])
			return nil
		})
	}
	g.Wait()

	for i, line := range lines {
		if errs[i] != nil {
			fmt.Fprintf(stdout, "%s: error: %v\n", opts.files[i], errs[i])
			continue
		}
		fmt.Fprintln(stdout, line)
	}
	return errors.Join(errs...)
}

type converter interface {
	Convert(ctx context.Context, req services.Request) (*services.Artifact, error)
}

// planOutputs picks the artifact path of every input so that no two inputs
// write the same file.
func planOutputs(opts options) ([]string, []error) {
	sources := make([]string, len(opts.files))
	for i, file := range opts.files {
		sources[i] = strings.TrimPrefix(file, gsheetPrefix)
	}
	return workbook.PlanOutputs(sources, opts.format, func(i int, name string) string {
		return filepath.Join(outputDir(opts, opts.files[i]), name)
	})
}

func outputDir(opts options, file string) string {
	switch {
	case opts.outDir != "":
		return opts.outDir
	case strings.HasPrefix(file, gsheetPrefix):
		return "."
	default:
		return filepath.Dir(file)
	}
}

func convertOne(ctx context.Context, conv converter, opts options, file, path string) (string, error) {
	req := services.Request{OutputFormat: opts.format, KeepSuffix: opts.keepSuffix}

	if sheet, ok := strings.CutPrefix(file, gsheetPrefix); ok {
		req.Name = sheet
		req.InputFormat = workbook.GSheet
		req.Sheet = sheet
	} else {
		f, err := os.Open(file)
		if err != nil {
			return "", err
		}
		defer f.Close()
		req.Name = filepath.Base(file)
		req.Input = f
	}

	art, err := conv.Convert(ctx, req)
	if err != nil {
		return "", err
	}
	if art.Ref != "" {
		return fmt.Sprintf("%s -> %s (%d rows)", file, art.Ref, art.Stats.ItemRows), nil
	}

	if path == "" {
		path = filepath.Join(outputDir(opts, file), art.Name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s -> %s (%d rows)", file, path, art.Stats.ItemRows), nil
}

func enqueue(ctx context.Context, pub publisher, opts options, stdout io.Writer) error {
	for _, file := range opts.files {
		msg := amqp.NewConversionJobMessage(file, "", string(opts.format), opts.keepSuffix)
		if err := pub.PublishConversionJob(ctx, msg); err != nil {
			return fmt.Errorf("enqueue %s: %w", file, err)
		}
		fmt.Fprintf(stdout, "%s queued as %s\n", file, msg.JobID)
	}
	return nil
}
