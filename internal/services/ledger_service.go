package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tradeledger/internal/config"
	"tradeledger/internal/dataprocessing"
	apperrors "tradeledger/internal/errors"
	"tradeledger/internal/exporter"
	"tradeledger/internal/files"
	"tradeledger/internal/infrastructure"
	"tradeledger/internal/validation"
	"tradeledger/pkg/contracts/domain"
)

// uploadName is the name every upload is stored under inside its request
// directory. The client's name only shapes the artifact name.
const uploadName = "upload" + config.AllowedUploadExt

// ArtifactStore is the storage the ledger service needs.
type ArtifactStore interface {
	NewRequest() (*files.Request, error)
	SaveUpload(req *files.Request, name string, src io.Reader) (string, int64, error)
	Register(req *files.Request, name string) (files.Artifact, error)
	Discard(req *files.Request)
	Resolve(id, name string) (files.Artifact, error)
	ResolveLatest(name string) (files.Artifact, error)
}

// UploadResult describes a processed upload.
type UploadResult struct {
	RequestID   string
	Artifact    files.Artifact
	DownloadURL string
	Summary     domain.LedgerSummary
	Warnings    int
	Stats       dataprocessing.RunStats
}

// LedgerService runs uploaded ledgers through the pipeline and stores the
// resulting CSV for download.
type LedgerService struct {
	processor   dataprocessing.Processor
	store       ArtifactStore
	writer      *exporter.CSVWriter
	validator   *validation.FileValidator
	csvOptions  exporter.LedgerOptions
	previewRows int
	metrics     *infrastructure.BusinessMetrics
	tracer      trace.Tracer
	logger      *slog.Logger
}

// LedgerServiceConfig carries the collaborators of a LedgerService.
type LedgerServiceConfig struct {
	Processor   dataprocessing.Processor
	Store       ArtifactStore
	Writer      *exporter.CSVWriter
	Validator   *validation.FileValidator
	CSVOptions  exporter.LedgerOptions
	PreviewRows int
	Metrics     *infrastructure.BusinessMetrics
}

// NewLedgerService creates a ledger service
func NewLedgerService(cfg LedgerServiceConfig, logger *slog.Logger) (*LedgerService, error) {
	if cfg.Processor == nil {
		return nil, ErrNoProcessor
	}
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Writer == nil {
		cfg.Writer = exporter.NewCSVWriter(&config.Paths{})
	}
	if cfg.Validator == nil {
		cfg.Validator = validation.NewFileValidator(logger, config.AllowedUploadExt, config.DefaultMaxUploadBytes)
	}

	logger = infrastructure.WithComponent(logger, "ledger_service")
	logger.Info("LedgerService initialized",
		slog.Int("preview_rows", cfg.PreviewRows),
		slog.Bool("csv_bom", cfg.CSVOptions.BOMPrefix),
		slog.Bool("escape_formulas", cfg.CSVOptions.EscapeFormulas))

	return &LedgerService{
		processor:   cfg.Processor,
		store:       cfg.Store,
		writer:      cfg.Writer,
		validator:   cfg.Validator,
		csvOptions:  cfg.CSVOptions,
		previewRows: cfg.PreviewRows,
		metrics:     cfg.Metrics,
		tracer:      otel.Tracer("tradeledger/services"),
		logger:      logger,
	}, nil
}

// ProcessUpload validates and stores an uploaded workbook, runs the
// pipeline on it and writes the ledger CSV next to it. On any failure the
// request directory is removed and no artifact is left behind.
func (s *LedgerService) ProcessUpload(ctx context.Context, filename string, src io.Reader) (result *UploadResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.upload",
		trace.WithAttributes(attribute.String("upload.filename", filename)))
	defer span.End()

	logger := s.logger.With(slog.String("trace_id", infrastructure.GetTraceID(ctx)))

	var req *files.Request
	defer func() {
		if err == nil {
			return
		}
		s.store.Discard(req)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		infrastructure.RecordLedgerRun(ctx, s.metrics, infrastructure.LedgerRunStats{
			Outcome:  uploadOutcome(err),
			Duration: time.Since(start),
		})
		infrastructure.WithError(logger, err).WarnContext(ctx, "Upload failed",
			slog.String("filename", filename),
			slog.String("outcome", uploadOutcome(err)))
	}()

	if err := s.validator.ValidateUploadName(filename); err != nil {
		return nil, err
	}

	req, err = s.store.NewRequest()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("request.id", req.ID))

	uploadPath, size, err := s.store.SaveUpload(req, uploadName, src)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("upload.size_bytes", size))
	if err := s.validator.ValidateLedgerFile(uploadPath); err != nil {
		return nil, err
	}

	run, err := s.processor.ProcessFile(ctx, uploadPath)
	if err != nil {
		return nil, err
	}

	artifactName := validation.ArtifactName(filename, config.ArtifactPrefix, config.ArtifactExt)
	if _, err := s.writer.WriteLedger(req.Path(artifactName), run.Rows, s.csvOptions); err != nil {
		return nil, apperrors.NewStorageError("failed to write ledger csv", err)
	}

	artifact, err := s.store.Register(req, artifactName)
	if err != nil {
		return nil, err
	}
	infrastructure.AddSpanEvent(ctx, "artifact.registered",
		attribute.String("artifact.name", artifact.Name),
		attribute.Int64("artifact.size_bytes", artifact.Size))

	result = &UploadResult{
		RequestID:   req.ID,
		Artifact:    artifact,
		DownloadURL: DownloadURL(req.ID, artifactName),
		Summary:     run.Summary(s.previewRows),
		Warnings:    len(run.Warnings),
		Stats:       run.Stats,
	}

	infrastructure.RecordLedgerRun(ctx, s.metrics, infrastructure.LedgerRunStats{
		Outcome:  infrastructure.OutcomeSuccess,
		Rows:     run.Stats.DataRows,
		Groups:   run.Stats.Groups,
		Retained: run.Stats.Retained,
		Warnings: len(run.Warnings),
		Scrubbed: run.Stats.Clean.ScrubbedLegs,
		Duration: time.Since(start),
	})
	span.SetAttributes(
		attribute.Int("ledger.rows", run.Stats.DataRows),
		attribute.Int("ledger.retained", run.Stats.Retained),
	)

	logger.InfoContext(ctx, "Upload processed",
		slog.String("request_id", req.ID),
		slog.String("filename", filename),
		slog.String("artifact", artifactName),
		slog.Int("rows", run.Stats.DataRows),
		slog.Int("retained", run.Stats.Retained),
		slog.Int("warnings", len(run.Warnings)),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// ResolveArtifact finds a downloadable artifact. An empty id resolves the
// most recent artifact with that name.
func (s *LedgerService) ResolveArtifact(ctx context.Context, id, name string) (files.Artifact, error) {
	var (
		artifact files.Artifact
		err      error
	)
	if id == "" {
		artifact, err = s.store.ResolveLatest(name)
	} else {
		artifact, err = s.store.Resolve(id, name)
	}

	infrastructure.RecordArtifactDownload(ctx, s.metrics, err == nil)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
			return files.Artifact{}, apperrors.ErrArtifactNotFound
		}
		return files.Artifact{}, fmt.Errorf("failed to resolve artifact: %w", err)
	}

	s.logger.DebugContext(ctx, "Artifact resolved",
		slog.String("request_id", artifact.ID),
		slog.String("file", artifact.Name))
	return artifact, nil
}

// DownloadURL is the path an artifact is served from.
func DownloadURL(id, name string) string {
	return path.Join(config.DownloadEndpoint, url.PathEscape(id), url.PathEscape(name))
}

func uploadOutcome(err error) string {
	var apiErr *apperrors.APIError
	var maxBytesErr *http.MaxBytesError
	switch {
	case apperrors.IsMalformedInput(err):
		return infrastructure.OutcomeMalformed
	case errors.As(err, &maxBytesErr):
		return infrastructure.OutcomeRejected
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		return infrastructure.OutcomeRejected
	case apperrors.IsType(err, apperrors.ErrTypeValidation):
		return infrastructure.OutcomeRejected
	default:
		return infrastructure.OutcomeFailed
	}
}
