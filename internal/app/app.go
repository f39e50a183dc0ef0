package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"tradeledger/internal/config"
	"tradeledger/internal/dataprocessing"
	apperrors "tradeledger/internal/errors"
	"tradeledger/internal/exporter"
	"tradeledger/internal/files"
	"tradeledger/internal/infrastructure"
	customMiddleware "tradeledger/internal/middleware"
	"tradeledger/internal/services"
	handlers "tradeledger/internal/transport/http"
	"tradeledger/internal/validation"
	"tradeledger/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Store         *files.Store
	LedgerService *services.LedgerService
	HealthService *services.HealthService
	ErrorHandler  *apperrors.ErrorHandler
}

// NewApplication wires every component of the service. When providers is
// nil telemetry is initialized from cfg.Telemetry.
func NewApplication(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", "tradeledger"),
		slog.String("version", contracts.Version),
		slog.String("backend", contracts.Backend))

	paths, err := config.GetPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	logger.Info("Scratch area ready", slog.String("scratch_dir", paths.ScratchDir))

	if providers == nil {
		providers, err = infrastructure.InitializeOTel(cfg.Telemetry, contracts.Version, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		ErrorHandler:  apperrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	store, err := files.NewStore(a.Paths, a.Config.Storage.ArtifactTTL, a.Config.Storage.CleanupInterval, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}
	a.Store = store

	opts, err := dataprocessing.OptionsFromConfig(a.Config.Pipeline)
	if err != nil {
		return fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	processor, err := dataprocessing.NewLedgerProcessor(a.Logger, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger processor: %w", err)
	}

	csvOpts := exporter.DefaultLedgerOptions()
	csvOpts.BOMPrefix = a.Config.Storage.CSVBOM
	csvOpts.EscapeFormulas = a.Config.Storage.EscapeFormulas

	ledgerService, err := services.NewLedgerService(services.LedgerServiceConfig{
		Processor:   processor,
		Store:       store,
		Writer:      exporter.NewCSVWriter(a.Paths),
		Validator:   validation.NewFileValidator(a.Logger, config.AllowedUploadExt, a.Config.Security.MaxUploadBytes),
		CSVOptions:  csvOpts,
		PreviewRows: a.Config.Pipeline.PreviewRows,
		Metrics:     metrics,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger service: %w", err)
	}
	a.LedgerService = ledgerService

	a.HealthService = services.NewHealthService(contracts.Version, a.Paths.ScratchDir, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → StripSlashes → OTel → Logger → Recoverer → headers → CORS
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)
	r.Use(customMiddleware.NewTelemetry(a.OTelProviders.Tracer, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(apperrors.RecoveryMiddleware(a.ErrorHandler))
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.Config.Security, a.Logger))
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get("/healthz", healthHandler.LivenessCheck)
	r.Get("/readyz", healthHandler.ReadinessCheck)

	if a.OTelProviders.PrometheusHTTP != nil && a.Config.Telemetry.PrometheusPath != "" {
		r.Handle(a.Config.Telemetry.PrometheusPath, a.OTelProviders.PrometheusHTTP)
	}

	a.setupAPIRoutes(r, healthHandler)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, healthHandler *handlers.HealthHandler) {
	ledgerHandler := handlers.NewLedgerHandler(a.LedgerService, a.Config.Security.MaxUploadBytes, a.Logger, a.ErrorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/version", healthHandler.Version)

		r.Group(func(r chi.Router) {
			if a.Config.Security.RateLimit.Enabled {
				r.Use(customMiddleware.NewRateLimiter(
					a.Config.Security.RateLimit.RPS,
					a.Config.Security.RateLimit.Burst,
					a.ErrorHandler,
					a.Logger,
				).Handler)
			}
			r.Post("/upload", ledgerHandler.Upload)
		})

		r.Get("/download/{id}/{filename}", ledgerHandler.Download)
		r.Get("/download/{filename}", ledgerHandler.DownloadLatest)
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves HTTP and sweeps expired artifacts until ctx is cancelled or
// the process receives SIGINT or SIGTERM, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("address", a.Server.Addr),
		slog.String("version", contracts.Version),
		slog.String("level", a.Config.Logging.Level))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.Store.RunJanitor(gctx, a.Config.Storage.CleanupInterval, func(n int) {
			infrastructure.RecordArtifactsExpired(gctx, a.Metrics, n)
		})
	})

	g.Go(func() error {
		<-gctx.Done()
		// gctx is already cancelled; shutdown needs a fresh deadline
		return a.Stop(context.WithoutCancel(gctx))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.Logger.Info("Application stopped")
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	return nil
}
