package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupCacheReads records recency cache reads by result (hit|miss).
	LookupCacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronobserver_lookup_cache_reads_total",
			Help: "Total number of recency cache reads",
		},
		[]string{"result"},
	)

	// LookupCacheWriteFailures counts cache writes that were skipped because the backend failed.
	LookupCacheWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronobserver_lookup_cache_write_failures_total",
			Help: "Total number of failed recency cache writes",
		},
		[]string{"operation"},
	)

	// LookupRecordsCreated counts durable lookup records committed.
	LookupRecordsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tronobserver_lookup_records_created_total",
			Help: "Total number of lookup records persisted",
		},
	)

	// LedgerRequests records ledger API calls by endpoint and outcome (success|failure).
	LedgerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tronobserver_ledger_requests_total",
			Help: "Total number of ledger API requests",
		},
		[]string{"endpoint", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tronobserver_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// MaintenanceRuns counts background maintenance job runs by job and result.
var MaintenanceRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tronobserver_maintenance_runs_total",
		Help: "Total number of maintenance job runs",
	},
	[]string{"job", "result"},
)
