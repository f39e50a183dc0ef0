package config

// Application constants
const (
	// Application Info
	AppName    = "Trade Ledger Aggregator"
	AppVersion = "3.0.0"
	Backend    = "Go"

	// Upload limits
	DefaultMaxUploadBytes = 16 * 1024 * 1024
	UploadFormField       = "file"
	AllowedUploadExt      = ".xlsx"

	// Pipeline defaults
	ScrubModeIdentity        = "scrub-identity"
	ScrubModeDropRow         = "drop-row"
	DefaultQuantityThreshold = 10000
	DefaultValueThreshold    = 1000000
	DefaultPreviewRows       = 5

	// Artifact naming
	ArtifactPrefix = "processed_"
	ArtifactExt    = ".csv"

	// API Endpoints
	APIBasePath      = "/api"
	HealthEndpoint   = "/api/health"
	UploadEndpoint   = "/api/upload"
	DownloadEndpoint = "/api/download"
	MetricsEndpoint  = "/metrics"
)

// DefaultAllowedOrigins returns the browser origins served by default.
func DefaultAllowedOrigins() []string {
	return []string{
		"http://localhost:5173",
		"http://127.0.0.1:5173",
		"https://project2frontend-theta.vercel.app",
	}
}
