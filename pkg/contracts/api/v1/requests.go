// Package api contains the HTTP contract of the ledger service.
// Version v1 is the shape the browser frontend consumes.
package api

// DownloadRequest identifies one generated artifact.
type DownloadRequest struct {
	ID       string `json:"id" validate:"required,uuid4"`
	Filename string `json:"filename" validate:"required,max=255,safefilename,endswith=.csv"`
}

// LegacyDownloadRequest identifies an artifact by name only.
type LegacyDownloadRequest struct {
	Filename string `json:"filename" validate:"required,max=255,safefilename,endswith=.csv"`
}

// UploadResponse is returned after a ledger was processed.
type UploadResponse struct {
	Success      bool                     `json:"success"`
	Message      string                   `json:"message"`
	TotalRecords int                      `json:"total_records"`
	Columns      []string                 `json:"columns"`
	Preview      []map[string]interface{} `json:"preview"`
	DownloadURL  string                   `json:"download_url"`
	Warnings     int                      `json:"warnings"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Version string `json:"version"`
}

// ProbeResponse is the body of the liveness and readiness probes.
type ProbeResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Uptime    float64           `json:"uptime_seconds,omitempty"`
	GoVersion string            `json:"go_version,omitempty"`
}
