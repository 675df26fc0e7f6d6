package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion metrics
var (
	// IngestUploadsTotal tracks processed uploads by source and status
	IngestUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcmmap_ingest_uploads_total",
			Help: "Total number of ingested uploads by source and status",
		},
		[]string{"source", "status"},
	)

	// IngestRowsTotal tracks rows by outcome (created, skipped, failed)
	IngestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcmmap_ingest_rows_total",
			Help: "Total number of ingested rows by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// IngestDuration tracks upload processing time
	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grcmmap_ingest_duration_seconds",
			Help:    "Upload ingestion duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	// FindingsBySeverityTotal tracks created findings by normalized severity
	FindingsBySeverityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcmmap_findings_created_total",
			Help: "Total number of created findings by severity",
		},
		[]string{"severity"},
	)

	// ControlLinksTotal tracks finding-to-control links produced by mapping
	ControlLinksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcmmap_control_links_total",
			Help: "Total number of controls linked to newly ingested findings",
		},
		[]string{"control"},
	)

	// AssetRaceRetriesTotal counts inserts that lost a race on the address
	// and were resolved by re-reading the winner
	AssetRaceRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grcmmap_asset_race_retries_total",
			Help: "Total number of asset inserts resolved by re-query after a unique conflict",
		},
	)

	// ArchiveFailuresTotal counts raw uploads that could not be archived
	ArchiveFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grcmmap_archive_failures_total",
			Help: "Total number of raw uploads that failed to archive",
		},
	)
)

// Reporting metrics
var (
	// ReportsGeneratedTotal tracks report renders by status
	ReportsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcmmap_reports_generated_total",
			Help: "Total number of executive report renders by status",
		},
		[]string{"status"},
	)

	// SummariesTotal tracks finding summaries by mode (canned, live, unavailable)
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcmmap_finding_summaries_total",
			Help: "Total number of finding summaries by mode",
		},
		[]string{"mode"},
	)
)

// Rate limiting metrics
var (
	// RateLimitDecisionsTotal tracks distributed limiter decisions by scope and result
	RateLimitDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcmmap_ratelimit_decisions_total",
			Help: "Total number of distributed rate limit decisions by scope and result",
		},
		[]string{"scope", "result"},
	)
)

// Outcome label values.
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"

	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusEmpty   = "empty"

	SummaryModeCanned      = "canned"
	SummaryModeLive        = "live"
	SummaryModeUnavailable = "unavailable"

	RateLimitAllowed = "allowed"
	RateLimitDenied  = "denied"
	RateLimitError   = "error"
)
