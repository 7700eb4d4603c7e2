// Package metrics exposes Prometheus collectors for the mirror pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mirrorDocumentsFetchedTotal  *prometheus.CounterVec
	mirrorFetchBytesTotal        *prometheus.CounterVec
	mirrorDocumentsSkippedTotal  *prometheus.CounterVec
	mirrorFetchErrorsTotal       *prometheus.CounterVec
	mirrorPDFsCompressedTotal    *prometheus.CounterVec
	mirrorCompressionSavedBytes  prometheus.Counter
	mirrorSyncObjectsTotal       *prometheus.CounterVec
	mirrorSyncBytesUploadedTotal prometheus.Counter
	mirrorCDNInvalidationsTotal  prometheus.Counter
	mirrorStageDurationSeconds   *prometheus.HistogramVec
	mirrorRunsTotal              *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		mirrorDocumentsFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_documents_fetched_total",
				Help: "Total number of PDFs downloaded, labeled by document category.",
			},
			[]string{"category"},
		)

		mirrorFetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_fetch_bytes_total",
				Help: "Total number of PDF bytes downloaded, labeled by document category.",
			},
			[]string{"category"},
		)

		mirrorDocumentsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_documents_skipped_total",
				Help: "Documents skipped because a current copy already exists locally.",
			},
			[]string{"category"},
		)

		mirrorFetchErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_fetch_errors_total",
				Help: "Per-bill fetch failures, labeled by document category.",
			},
			[]string{"category"},
		)

		mirrorPDFsCompressedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_pdfs_compressed_total",
				Help: "Compression outcomes, labeled by result (compressed, unchanged, skipped, error).",
			},
			[]string{"result"},
		)

		mirrorCompressionSavedBytes = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mirror_compression_saved_bytes_total",
				Help: "Total bytes saved by ghostscript compression.",
			},
		)

		mirrorSyncObjectsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_sync_objects_total",
				Help: "Objects acted on during deploy, labeled by action (upload, delete, skip).",
			},
			[]string{"action"},
		)

		mirrorSyncBytesUploadedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mirror_sync_bytes_uploaded_total",
				Help: "Total bytes uploaded to the bucket.",
			},
		)

		mirrorCDNInvalidationsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mirror_cdn_invalidations_total",
				Help: "CDN cache invalidation requests issued.",
			},
		)

		mirrorStageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mirror_stage_duration_seconds",
				Help:    "Histogram of pipeline stage wall-clock durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		)

		mirrorRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_runs_total",
				Help: "Total pipeline runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDocumentFetched increments fetch counters for a downloaded PDF.
func ObserveDocumentFetched(category string, bytes int) {
	if mirrorDocumentsFetchedTotal == nil {
		return
	}
	mirrorDocumentsFetchedTotal.WithLabelValues(category).Inc()
	if bytes > 0 {
		mirrorFetchBytesTotal.WithLabelValues(category).Add(float64(bytes))
	}
}

// ObserveDocumentSkipped increments the skip counter.
func ObserveDocumentSkipped(category string) {
	if mirrorDocumentsSkippedTotal == nil {
		return
	}
	mirrorDocumentsSkippedTotal.WithLabelValues(category).Inc()
}

// ObserveFetchError increments the per-category fetch failure counter.
func ObserveFetchError(category string) {
	if mirrorFetchErrorsTotal == nil {
		return
	}
	mirrorFetchErrorsTotal.WithLabelValues(category).Inc()
}

// ObserveCompression records a compression outcome and bytes saved.
func ObserveCompression(result string, savedBytes int64) {
	if mirrorPDFsCompressedTotal == nil {
		return
	}
	mirrorPDFsCompressedTotal.WithLabelValues(result).Inc()
	if savedBytes > 0 {
		mirrorCompressionSavedBytes.Add(float64(savedBytes))
	}
}

// ObserveSyncAction records one sync plan action being applied.
func ObserveSyncAction(action string, bytes int64) {
	if mirrorSyncObjectsTotal == nil {
		return
	}
	mirrorSyncObjectsTotal.WithLabelValues(action).Inc()
	if action == "upload" && bytes > 0 {
		mirrorSyncBytesUploadedTotal.Add(float64(bytes))
	}
}

// ObserveCDNInvalidation counts an issued invalidation request.
func ObserveCDNInvalidation() {
	if mirrorCDNInvalidationsTotal == nil {
		return
	}
	mirrorCDNInvalidationsTotal.Inc()
}

// ObserveStageDuration records a stage's wall-clock duration.
func ObserveStageDuration(stage string, d time.Duration) {
	if mirrorStageDurationSeconds == nil {
		return
	}
	mirrorStageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun increments the run counter for the given outcome.
func ObserveRun(outcome string) {
	if mirrorRunsTotal == nil {
		return
	}
	mirrorRunsTotal.WithLabelValues(outcome).Inc()
}
