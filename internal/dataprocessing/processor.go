package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tradeledger/internal/config"
	apperrors "tradeledger/internal/errors"
	"tradeledger/pkg/contracts/domain"
)

// Processor defines the interface for ledger processing operations
type Processor interface {
	// ProcessFile loads the workbook at filePath and runs every stage
	ProcessFile(ctx context.Context, filePath string) (*Result, error)
}

// RunStats describes one pipeline run.
type RunStats struct {
	SheetName string
	DataRows  int
	Columns   []string
	Clean     CleanStats
	Groups    int
	Retained  int
	Duration  time.Duration
}

// Result is the outcome of one pipeline run.
type Result struct {
	Rows     []domain.LedgerRow
	Warnings []CellCoercionWarning
	Stats    RunStats
}

// Summary returns the caller-facing metadata with a bounded preview.
func (r *Result) Summary(previewRows int) domain.LedgerSummary {
	return domain.NewLedgerSummary(r.Rows, previewRows)
}

// LedgerProcessor runs the loader, cleaner, merger and aggregator in order.
// It holds no per-run state and is safe for concurrent use.
type LedgerProcessor struct {
	logger     *slog.Logger
	opts       ProcessingOptions
	cleaner    *Cleaner
	aggregator *Aggregator
	tracer     trace.Tracer
}

// NewLedgerProcessor creates a processor with the given options.
func NewLedgerProcessor(logger *slog.Logger, opts ProcessingOptions) (*LedgerProcessor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid processing options: %w", err)
	}
	if opts.ScrubMode == "" {
		opts.ScrubMode = ScrubIdentity
	}

	return &LedgerProcessor{
		logger:     logger.With(slog.String("component", "ledger_processor")),
		opts:       opts,
		cleaner:    NewCleaner(opts),
		aggregator: NewAggregator(opts.QuantityThreshold, opts.ValueThreshold),
		tracer:     otel.Tracer("tradeledger/dataprocessing"),
	}, nil
}

// OptionsFromConfig maps the pipeline section of the configuration.
func OptionsFromConfig(cfg config.PipelineConfig) (ProcessingOptions, error) {
	mode, err := ParseScrubMode(cfg.ScrubMode)
	if err != nil {
		return ProcessingOptions{}, apperrors.NewConfigError("invalid pipeline configuration", err)
	}

	opts := DefaultOptions()
	opts.SheetName = cfg.SheetName
	opts.HeaderRow = cfg.HeaderRow
	opts.ScrubMode = mode
	opts.QuantityThreshold = decimal.NewFromFloat(cfg.QuantityThreshold)
	opts.ValueThreshold = decimal.NewFromFloat(cfg.ValueThreshold)
	opts.PreviewRows = cfg.PreviewRows
	if cfg.ExcludedCodes != nil {
		opts.ExcludedCodes = cfg.ExcludedCodes
	}
	if len(cfg.DropColumns) > 0 {
		opts.DropColumns = cfg.DropColumns
	}

	if err := opts.Validate(); err != nil {
		return ProcessingOptions{}, apperrors.NewConfigError("invalid pipeline configuration", err)
	}
	return opts, nil
}

// Options returns the options the processor was built with.
func (p *LedgerProcessor) Options() ProcessingOptions {
	return p.opts
}

// ProcessFile loads the configured worksheet from filePath and processes it.
func (p *LedgerProcessor) ProcessFile(ctx context.Context, filePath string) (*Result, error) {
	sheet, err := ParseFile(filePath, p.opts.SheetName)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to load ledger workbook",
			slog.String("file", filePath),
			slog.String("error", err.Error()))
		return nil, err
	}
	return p.Process(ctx, sheet)
}

// ProcessReader is ProcessFile for a workbook held in memory.
func (p *LedgerProcessor) ProcessReader(ctx context.Context, r io.Reader) (*Result, error) {
	sheet, err := ParseReader(r, p.opts.SheetName)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, sheet)
}

// Process runs normalization, cleaning, merging and aggregation over a
// loaded sheet. Either the whole sheet yields a result or an error is
// returned; cell-level problems only produce warnings.
func (p *LedgerProcessor) Process(ctx context.Context, sheet *Sheet) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "ledger.process")
	defer span.End()

	start := time.Now()

	table, err := Normalize(sheet, p.opts.HeaderRow)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	legs, warnings, cleanStats := p.cleaner.Clean(table)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups := p.aggregator.Group(Merge(legs))
	material := p.aggregator.Filter(groups)

	rows := make([]domain.LedgerRow, len(material))
	for i, g := range material {
		rows[i] = g.ToLedgerRow()
	}

	result := &Result{
		Rows:     rows,
		Warnings: warnings,
		Stats: RunStats{
			SheetName: sheet.Name,
			DataRows:  len(table.Rows),
			Columns:   table.Columns,
			Clean:     cleanStats,
			Groups:    len(groups),
			Retained:  len(material),
			Duration:  time.Since(start),
		},
	}

	span.SetAttributes(
		attribute.String("ledger.sheet", sheet.Name),
		attribute.Int("ledger.data_rows", result.Stats.DataRows),
		attribute.Int("ledger.groups", result.Stats.Groups),
		attribute.Int("ledger.retained", result.Stats.Retained),
		attribute.Int("ledger.warnings", len(warnings)),
	)

	p.logWarnings(ctx, warnings)

	p.logger.InfoContext(ctx, "ledger processed",
		slog.String("sheet", sheet.Name),
		slog.Int("data_rows", result.Stats.DataRows),
		slog.Int("dropped_columns", len(cleanStats.DroppedColumns)),
		slog.Int("scrubbed_legs", cleanStats.ScrubbedLegs),
		slog.Int("dropped_rows", cleanStats.DroppedRows),
		slog.Int("groups", result.Stats.Groups),
		slog.Int("retained", result.Stats.Retained),
		slog.Duration("duration", result.Stats.Duration))

	return result, nil
}

// maxLoggedWarnings bounds per-cell log lines for very dirty sheets.
const maxLoggedWarnings = 20

func (p *LedgerProcessor) logWarnings(ctx context.Context, warnings []CellCoercionWarning) {
	if len(warnings) == 0 {
		return
	}

	p.logger.WarnContext(ctx, "numeric cells treated as missing",
		slog.Int("count", len(warnings)))

	for i, w := range warnings {
		if i == maxLoggedWarnings {
			break
		}
		p.logger.DebugContext(ctx, "cell coercion failed",
			slog.Int("line", w.Line),
			slog.String("column", w.Column),
			slog.String("value", w.Value))
	}
}
