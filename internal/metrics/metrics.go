// ABOUTME: Prometheus metrics for report generation runs.
// ABOUTME: Tracks pipeline stage volumes and provides the /metrics HTTP handler.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the Prometheus instruments for the report pipeline. All
// instruments live on a private registry so the handler only exposes our
// own series.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	lastRunTimestamp prometheus.Gauge
	inventoryRecords *prometheus.GaugeVec
	scanFindings     prometheus.Gauge
	matchedPairs     prometheus.Gauge
	reportRows       prometheus.Gauge
}

// NewRecorder creates and registers the pipeline metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cvreport_runs_total",
				Help: "Number of report generation runs by outcome",
			},
			[]string{"outcome"},
		),

		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cvreport_run_duration_seconds",
				Help:    "Duration of report generation runs",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),

		lastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cvreport_last_run_timestamp",
				Help: "Unix timestamp of the last completed run",
			},
		),

		inventoryRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cvreport_inventory_records",
				Help: "Container inventory records seen in the last run by stage",
			},
			[]string{"stage"},
		),

		scanFindings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cvreport_scan_findings",
				Help: "Vulnerability findings loaded in the last run",
			},
		),

		matchedPairs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cvreport_matched_pairs",
				Help: "Inventory and finding pairs matched in the last run",
			},
		),

		reportRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cvreport_report_rows",
				Help: "Report rows emitted by the last run",
			},
		),
	}

	r.registry.MustRegister(
		r.runsTotal,
		r.runDuration,
		r.lastRunTimestamp,
		r.inventoryRecords,
		r.scanFindings,
		r.matchedPairs,
		r.reportRows,
	)
	return r
}

// RecordRun records the outcome and duration of a completed run.
func (r *Recorder) RecordRun(outcome string, seconds float64) {
	r.runsTotal.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(seconds)
}

// SetLastRunTimestamp records when the most recent run finished.
func (r *Recorder) SetLastRunTimestamp(unix int64) {
	r.lastRunTimestamp.Set(float64(unix))
}

// RecordStages records the per-stage volumes of the most recent run.
func (r *Recorder) RecordStages(raw, cleansed, findings, matched, rows int) {
	r.inventoryRecords.WithLabelValues("raw").Set(float64(raw))
	r.inventoryRecords.WithLabelValues("cleansed").Set(float64(cleansed))
	r.scanFindings.Set(float64(findings))
	r.matchedPairs.Set(float64(matched))
	r.reportRows.Set(float64(rows))
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
