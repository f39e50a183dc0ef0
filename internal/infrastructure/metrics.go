package infrastructure

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Upload outcomes used as the "outcome" metric attribute.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Ledger pipeline metrics
	UploadsTotal       metric.Int64Counter
	RowsProcessed      metric.Int64Counter
	GroupsRetained     metric.Int64Counter
	CoercionWarnings   metric.Int64Counter
	ScrubbedLegs       metric.Int64Counter
	ProcessingDuration metric.Float64Histogram

	// Artifact metrics
	ArtifactDownloads metric.Int64Counter
	ArtifactsExpired  metric.Int64Counter

	// System metrics
	SystemErrors metric.Int64Counter
}

// LedgerRunStats is the metric view of one pipeline run.
type LedgerRunStats struct {
	Outcome  string
	Rows     int
	Groups   int
	Retained int
	Warnings int
	Scrubbed int
	Duration time.Duration
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.HTTPRequestsTotal, "http_requests", "Total number of HTTP requests"},
		{&m.UploadsTotal, "ledger_uploads", "Ledger uploads by outcome"},
		{&m.RowsProcessed, "ledger_rows_processed", "Data rows read from uploaded ledgers"},
		{&m.GroupsRetained, "ledger_groups_retained", "Material groups written to artifacts"},
		{&m.CoercionWarnings, "ledger_coercion_warnings", "Numeric cells that could not be parsed"},
		{&m.ScrubbedLegs, "ledger_scrubbed_legs", "Trade legs whose identity was scrubbed"},
		{&m.ArtifactDownloads, "ledger_artifact_downloads", "Artifact download attempts"},
		{&m.ArtifactsExpired, "ledger_artifacts_expired", "Request directories removed by the janitor"},
		{&m.SystemErrors, "system_errors", "Total number of system errors"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.ProcessingDuration, err = meter.Float64Histogram(
		"ledger_processing_duration",
		metric.WithDescription("Pipeline duration per upload in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordLedgerRun records the outcome and volume of one pipeline run
func RecordLedgerRun(ctx context.Context, m *BusinessMetrics, stats LedgerRunStats) {
	if m == nil {
		return
	}

	outcome := metric.WithAttributes(attribute.String("outcome", stats.Outcome))
	m.UploadsTotal.Add(ctx, 1, outcome)
	m.ProcessingDuration.Record(ctx, stats.Duration.Seconds(), outcome)

	if stats.Outcome != OutcomeSuccess {
		return
	}
	m.RowsProcessed.Add(ctx, int64(stats.Rows))
	m.GroupsRetained.Add(ctx, int64(stats.Retained))
	m.CoercionWarnings.Add(ctx, int64(stats.Warnings))
	m.ScrubbedLegs.Add(ctx, int64(stats.Scrubbed))
}

// RecordHTTPRequest records a finished HTTP request
func RecordHTTPRequest(ctx context.Context, m *BusinessMetrics, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.status_code", strconv.Itoa(status)),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
	if status >= 500 {
		m.SystemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "http")))
	}
}

// RecordActiveRequestChange records changes in the in-flight request count
func RecordActiveRequestChange(ctx context.Context, m *BusinessMetrics, delta int64) {
	if m == nil {
		return
	}
	m.HTTPActiveRequests.Add(ctx, delta)
}

// RecordArtifactDownload records a download attempt
func RecordArtifactDownload(ctx context.Context, m *BusinessMetrics, found bool) {
	if m == nil {
		return
	}
	m.ArtifactDownloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", found)))
}

// RecordArtifactsExpired records request directories removed by a sweep
func RecordArtifactsExpired(ctx context.Context, m *BusinessMetrics, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ArtifactsExpired.Add(ctx, int64(n))
}
