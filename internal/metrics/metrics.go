package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Recorder tracks scenario outcomes on its own registry so repeated
// construction in tests never collides with the global one.
type Recorder struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
}

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gmail_e2e_scenario_runs_total",
			Help: "Total number of scenario runs by outcome",
		}, []string{"scenario", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gmail_e2e_scenario_duration_seconds",
			Help:    "Scenario wall-clock duration",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"scenario"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gmail_e2e_scenario_last_run_timestamp_seconds",
			Help: "Unix time of the most recent run of each scenario",
		}, []string{"scenario"}),
	}
	r.registry.MustRegister(r.runs, r.duration, r.lastRun)
	return r
}

// Observe records one scenario run.
func (r *Recorder) Observe(scenario, outcome string, elapsed time.Duration) {
	r.runs.WithLabelValues(scenario, outcome).Inc()
	if outcome != OutcomeSkipped {
		r.duration.WithLabelValues(scenario).Observe(elapsed.Seconds())
	}
	r.lastRun.WithLabelValues(scenario).SetToCurrentTime()
}

// Outcome maps a scenario error onto an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomePassed
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metrics in text exposition format,
// atomically, for the node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
