package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects run counters on its own registry. Batch runs are short lived, so the
// registry is exported once as a node-exporter textfile at the end instead of being scraped.
type Recorder struct {
	registry *prometheus.Registry

	ItemsTotal       *prometheus.CounterVec
	CaptureTierTotal *prometheus.CounterVec
	RetriesTotal     *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	TableRows        prometheus.Gauge
}

// NewRecorder creates a recorder with every metric registered
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_items_total",
				Help: "Products processed, by phase and outcome.",
			},
			[]string{"phase", "retailer", "status"},
		),
		CaptureTierTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_capture_tier_total",
				Help: "Successful full-page captures by strategy tier.",
			},
			[]string{"tier"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_capture_retries_total",
				Help: "Capture retries, by failure severity.",
			},
			[]string{"severity"},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_analysis_duration_seconds",
				Help:    "Duration of reasoning service calls.",
				Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
			},
			[]string{"provider"},
		),
		TableRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_table_rows",
				Help: "Rows in the consolidated table after the last reconciliation.",
			},
		),
	}
}

// Item counts one product outcome
func (r *Recorder) Item(phase, retailer, status string) {
	r.ItemsTotal.WithLabelValues(phase, retailer, status).Inc()
}

// Tier counts one successful capture by tier
func (r *Recorder) Tier(tier string) {
	r.CaptureTierTotal.WithLabelValues(tier).Inc()
}

// Retry counts one retry
func (r *Recorder) Retry(critical bool) {
	severity := "ordinary"
	if critical {
		severity = "critical"
	}
	r.RetriesTotal.WithLabelValues(severity).Inc()
}

// Analysis observes one reasoning call
func (r *Recorder) Analysis(provider string, d time.Duration) {
	r.AnalysisDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the registry in the text exposition format to path
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics folder: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
