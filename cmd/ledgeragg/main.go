package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tradeledger/internal/config"
	"tradeledger/internal/dataprocessing"
	"tradeledger/internal/exporter"
	"tradeledger/internal/infrastructure"
	"tradeledger/internal/validation"
	"tradeledger/pkg/contracts"
	"tradeledger/pkg/contracts/domain"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// runSummary is printed as JSON after every successful run.
type runSummary struct {
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Sheet  string `json:"sheet"`
	domain.LedgerSummary
	DataRows     int   `json:"data_rows"`
	Groups       int   `json:"groups"`
	Warnings     int   `json:"warnings"`
	ScrubbedLegs int   `json:"scrubbed_legs"`
	DroppedRows  int   `json:"dropped_rows"`
	DurationMS   int64 `json:"duration_ms"`
}

func main() {
	// .env is optional for the CLI
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ledgeragg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "%s\n\nUsage: ledgeragg -in ledger.xlsx|- [-out summary.csv|-] [flags]\n\n", contracts.GetVersionString())
		fs.PrintDefaults()
	}

	in := fs.String("in", "", "input .xlsx trade ledger, \"-\" for stdin (required)")
	out := fs.String("out", "", "output CSV path, \"-\" for stdout; empty skips the CSV")
	headerRow := fs.Int("header-row", 0, "0-based index of the header among non-blank rows")
	scrubMode := fs.String("scrub-mode", string(dataprocessing.ScrubIdentity), "handling of excluded system codes: scrub-identity or drop-row")
	sheet := fs.String("sheet", "", "worksheet name; empty selects the first sheet")
	preview := fs.Int("preview", config.DefaultPreviewRows, "number of preview records in the summary")
	bom := fs.Bool("bom", false, "prefix the CSV with a UTF-8 byte order mark")
	escape := fs.Bool("escape-formulas", false, "neutralize spreadsheet formulas in text cells")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn, error")
	version := fs.Bool("version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}
	if *in == "" {
		fmt.Fprintln(stderr, "ledgeragg: -in is required")
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "ledgeragg: %v\n", err)
		return exitUsage
	}

	// Explicit flags win over environment and config file values
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "header-row":
			cfg.Pipeline.HeaderRow = *headerRow
		case "scrub-mode":
			cfg.Pipeline.ScrubMode = *scrubMode
		case "sheet":
			cfg.Pipeline.SheetName = *sheet
		case "preview":
			cfg.Pipeline.PreviewRows = *preview
		case "bom":
			cfg.Storage.CSVBOM = *bom
		case "escape-formulas":
			cfg.Storage.EscapeFormulas = *escape
		}
	})

	logger, err := infrastructure.NewLogger(config.LoggingConfig{
		Level:  *logLevel,
		Format: "text",
		Output: "console",
	}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "ledgeragg: %v\n", err)
		return exitFailure
	}

	opts, err := dataprocessing.OptionsFromConfig(cfg.Pipeline)
	if err != nil {
		fmt.Fprintf(stderr, "ledgeragg: %v\n", err)
		return exitUsage
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	summary, err := aggregate(ctx, logger, cfg, opts, *in, *out, stdin, stdout, stderr)
	if err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Ledger aggregation failed",
			slog.String("input", *in))
		fmt.Fprintf(stderr, "ledgeragg: %v\n", err)
		return exitFailure
	}

	logger.InfoContext(ctx, "Ledger aggregated",
		slog.String("input", *in),
		slog.Int("total_records", summary.TotalRecords),
		slog.Int("warnings", summary.Warnings))
	return exitOK
}

// aggregate runs the pipeline on one workbook, then writes the CSV and the
// JSON summary concurrently. With in == "-" the workbook is read from stdin.
// With out == "-" the CSV owns stdout and the summary is written to stderr.
func aggregate(ctx context.Context, logger *slog.Logger, cfg *config.Config, opts dataprocessing.ProcessingOptions, in, out string, stdin io.Reader, stdout, stderr io.Writer) (*runSummary, error) {
	validator := validation.NewFileValidator(logger, config.AllowedUploadExt, cfg.Security.MaxUploadBytes)
	processor, err := dataprocessing.NewLedgerProcessor(logger, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var result *dataprocessing.Result
	if in == "-" {
		data, err := readWorkbook(validator, stdin, cfg.Security.MaxUploadBytes)
		if err != nil {
			return nil, err
		}
		result, err = processor.ProcessReader(ctx, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	} else {
		if err := validator.ValidateLedgerFile(in); err != nil {
			return nil, err
		}
		result, err = processor.ProcessFile(ctx, in)
		if err != nil {
			return nil, err
		}
	}

	summary := &runSummary{
		Input:         in,
		Output:        out,
		Sheet:         result.Stats.SheetName,
		LedgerSummary: result.Summary(opts.PreviewRows),
		DataRows:      result.Stats.DataRows,
		Groups:        result.Stats.Groups,
		Warnings:      len(result.Warnings),
		ScrubbedLegs:  result.Stats.Clean.ScrubbedLegs,
		DroppedRows:   result.Stats.Clean.DroppedRows,
		DurationMS:    time.Since(start).Milliseconds(),
	}

	csvOpts := exporter.DefaultLedgerOptions()
	csvOpts.BOMPrefix = cfg.Storage.CSVBOM
	csvOpts.EscapeFormulas = cfg.Storage.EscapeFormulas

	summaryDst := stdout
	g, _ := errgroup.WithContext(ctx)
	switch out {
	case "":
	case "-":
		summaryDst = stderr
		g.Go(func() error {
			if err := exporter.WriteLedgerTo(stdout, result.Rows, csvOpts); err != nil {
				return fmt.Errorf("failed to write CSV: %w", err)
			}
			return nil
		})
	default:
		g.Go(func() error {
			writer := exporter.NewCSVWriter(&config.Paths{})
			if _, err := writer.WriteLedger(out, result.Rows, csvOpts); err != nil {
				return fmt.Errorf("failed to write CSV: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return writeSummary(summaryDst, summary)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// readWorkbook buffers a piped workbook, applying the upload size limit and
// signature check that local files get from ValidateLedgerFile.
func readWorkbook(validator *validation.FileValidator, r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook from stdin: %w", err)
	}
	if err := validator.ValidateSize(int64(len(data))); err != nil {
		return nil, err
	}
	if err := validator.ValidateSignature(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return data, nil
}

func writeSummary(w io.Writer, summary *runSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
