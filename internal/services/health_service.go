package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"tradeledger/internal/config"
	"tradeledger/internal/validation"
	"tradeledger/pkg/contracts"
	api "tradeledger/pkg/contracts/api/v1"
)

// Probe states
const (
	StatusHealthy  = "healthy"
	StatusAlive    = "alive"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// HealthService provides health check functionality
type HealthService struct {
	version    string
	scratchDir string
	validator  *validation.FileValidator
	startTime  time.Time
	logger     *slog.Logger
}

// NewHealthService creates a new health service. Readiness requires the
// scratch directory to be writable.
func NewHealthService(version, scratchDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "health_service"))

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("scratch_dir", scratchDir))

	return &HealthService{
		version:    version,
		scratchDir: scratchDir,
		validator:  validation.NewFileValidator(logger, config.AllowedUploadExt, 0),
		startTime:  time.Now(),
		logger:     logger,
	}
}

// HealthCheck returns the body of GET /api/health
func (hs *HealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	return api.HealthResponse{
		Status:  StatusHealthy,
		Backend: config.Backend,
		Version: hs.version,
	}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) api.ProbeResponse {
	return api.ProbeResponse{
		Status:    StatusAlive,
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Seconds(),
		GoVersion: runtime.Version(),
	}
}

// ReadinessCheck reports whether uploads can be accepted. The returned
// error is non-nil when the service is not ready.
func (hs *HealthService) ReadinessCheck(ctx context.Context) (api.ProbeResponse, error) {
	status := api.ProbeResponse{
		Status:  StatusReady,
		Version: hs.version,
		Checks:  map[string]string{"scratch_dir": StatusReady},
	}

	if err := hs.validator.ValidateOutputDirectory(hs.scratchDir); err != nil {
		hs.logger.WarnContext(ctx, "Readiness check failed",
			slog.String("scratch_dir", hs.scratchDir),
			slog.String("error", err.Error()))
		status.Status = StatusNotReady
		status.Checks["scratch_dir"] = StatusNotReady
		return status, fmt.Errorf("%w: %v", ErrScratchNotWritable, err)
	}

	return status, nil
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	info := contracts.GetVersionInfo()
	info.Version = hs.version
	return info
}
