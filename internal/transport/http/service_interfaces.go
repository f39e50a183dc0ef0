package http

import (
	"context"
	"io"

	"tradeledger/internal/files"
	"tradeledger/internal/services"
	"tradeledger/pkg/contracts"
	api "tradeledger/pkg/contracts/api/v1"
)

// LedgerServiceInterface defines the interface for ledger operations
type LedgerServiceInterface interface {
	ProcessUpload(ctx context.Context, filename string, src io.Reader) (*services.UploadResult, error)
	ResolveArtifact(ctx context.Context, id, name string) (files.Artifact, error)
}

// HealthServiceInterface defines the interface for health probes
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) api.HealthResponse
	LivenessCheck(ctx context.Context) api.ProbeResponse
	ReadinessCheck(ctx context.Context) (api.ProbeResponse, error)
	Version() contracts.VersionInfo
}
