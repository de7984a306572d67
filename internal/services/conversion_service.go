package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"budgetconv/internal/adapters"
	"budgetconv/internal/core"
	applog "budgetconv/internal/log"
	ports "budgetconv/internal/sheets"
	"budgetconv/internal/workbook"
)

// ErrBackendUnavailable is returned when a request needs the hosted sheet
// backend and none is configured.
var ErrBackendUnavailable = errors.New("sheet backend not configured")

// Request describes one conversion.
type Request struct {
	// Name is the source file name; it drives format detection and the
	// artifact name.
	Name  string
	Input io.Reader
	// InputFormat overrides detection from Name. GSheet reads Sheet from
	// the configured RowSource instead of Input.
	InputFormat  workbook.Format
	Sheet        string
	OutputFormat workbook.Format
	KeepSuffix   bool
}

// Artifact is the result of a conversion.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	// Ref is set instead of Data when the table was published to a sheet.
	Ref   string
	Table core.Table
	Stats core.Stats
	Year  string
}

// ConversionService runs read -> transform -> encode for one source file.
type ConversionService struct {
	source     ports.RowSource
	sink       ports.TableSink
	encoderFor func(workbook.Format) (ports.Encoder, error)
	logger     *applog.Logger
	structured *applog.StructuredLogger
}

// NewConversionService creates the service. source and sink may be nil when
// no hosted sheet backend is configured.
func NewConversionService(source ports.RowSource, sink ports.TableSink, logger *applog.Logger) *ConversionService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentConvert)
	return &ConversionService{
		source:     source,
		sink:       sink,
		encoderFor: adapters.EncoderFor,
		logger:     logger,
		structured: applog.NewStructuredLogger(logger),
	}
}

// Convert reads the source rows, extracts the fiscal year, transforms the
// grid and renders the artifact in the requested output format.
func (s *ConversionService) Convert(ctx context.Context, req Request) (*Artifact, error) {
	start := time.Now()

	inFormat := req.InputFormat
	if inFormat == "" {
		f, err := workbook.FormatFromName(req.Name)
		if err != nil {
			return nil, err
		}
		inFormat = f
	}
	outFormat := req.OutputFormat
	if outFormat == "" {
		outFormat = workbook.XLSX
	}

	rows, err := s.readRows(ctx, req, inFormat)
	if err != nil {
		component := applog.ComponentWorkbook
		if inFormat == workbook.GSheet {
			component = applog.ComponentSheets
		}
		s.structured.LogError(ctx, "Failed to read source", err, component, applog.OpRead,
			applog.NewFields().WithFile(req.Name, string(inFormat), string(outFormat)))
		return nil, err
	}

	opts := core.DefaultOptions()
	opts.KeepSuffix = req.KeepSuffix
	opts.Year = core.ExtractYear(rows)

	res, err := core.Transform(rows, opts)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", req.Name, err)
	}

	art := &Artifact{
		Name:        workbook.OutputName(req.Name, outFormat),
		ContentType: outFormat.ContentType(),
		Table:       res.Table,
		Stats:       res.Stats,
		Year:        opts.Year,
	}
	if err := s.render(ctx, art, outFormat); err != nil {
		op := applog.OpEncode
		if outFormat == workbook.GSheet {
			op = applog.OpPublish
		}
		s.structured.LogError(ctx, "Failed to render artifact", err, applog.ComponentConvert, op,
			applog.NewFields().WithFile(req.Name, string(inFormat), string(outFormat)))
		return nil, err
	}

	s.structured.LogConversion(ctx, req.Name, string(inFormat), string(outFormat),
		len(rows), res.Stats.ItemRows, res.Stats.GroupRows, res.Stats.Skipped, opts.Year)
	s.logger.DebugContext(ctx, "Conversion timing",
		applog.FieldFileName, req.Name,
		applog.FieldBytes, len(art.Data),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return art, nil
}

func (s *ConversionService) readRows(ctx context.Context, req Request, f workbook.Format) ([]core.RawRow, error) {
	if f == workbook.GSheet {
		if s.source == nil {
			return nil, ErrBackendUnavailable
		}
		rows, err := s.source.ReadRows(ctx, req.Sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", req.Sheet, err)
		}
		return rows, nil
	}
	if !f.Readable() {
		return nil, fmt.Errorf("read: %w: %q", workbook.ErrUnsupportedFormat, f)
	}
	if req.Input == nil {
		return nil, errors.New("read: no input")
	}
	return workbook.ReadRows(req.Input, f)
}

func (s *ConversionService) render(ctx context.Context, art *Artifact, f workbook.Format) error {
	if f == workbook.GSheet {
		if s.sink == nil {
			return ErrBackendUnavailable
		}
		ref, err := s.sink.Publish(ctx, art.Table)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		art.Ref = ref
		return nil
	}
	enc, err := s.encoderFor(f)
	if err != nil {
		return err
	}
	data, err := enc.Encode(ctx, art.Table)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	art.Data = data
	return nil
}
