package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gotrs-io/gmail-e2e/internal/browser"
	"github.com/gotrs-io/gmail-e2e/internal/config"
	"github.com/gotrs-io/gmail-e2e/internal/markers"
	"github.com/gotrs-io/gmail-e2e/internal/metrics"
	"github.com/gotrs-io/gmail-e2e/internal/scenarios"
)

// Session is what the runner needs from an open browser session.
type Session interface {
	scenarios.Page
	CaptureFailure(name string) (string, error)
	Close(keepVideo bool) error
}

// SessionFactory opens a fresh session for one scenario.
type SessionFactory func(cfg *config.TestConfig, log logrus.FieldLogger) (Session, error)

// OpenBrowser is the production SessionFactory.
func OpenBrowser(cfg *config.TestConfig, log logrus.FieldLogger) (Session, error) {
	s, err := browser.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Result is the outcome of a single scenario.
type Result struct {
	Scenario   string        `json:"scenario" yaml:"scenario"`
	Outcome    string        `json:"outcome" yaml:"outcome"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Screenshot string        `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
}

// Report summarises one pass over the selected scenarios.
type Report struct {
	RunID   string    `json:"run_id" yaml:"run_id"`
	Started time.Time `json:"started" yaml:"started"`
	Results []Result  `json:"results" yaml:"results"`
}

// Failed counts failed results.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == metrics.OutcomeFailed {
			n++
		}
	}
	return n
}

// Runner executes scenarios one at a time, each in its own session.
type Runner struct {
	cfg       *config.TestConfig
	log       logrus.FieldLogger
	metrics   *metrics.Recorder
	selection markers.Selection
	open      SessionFactory
	scenarios []scenarios.Scenario
}

// Option customises a Runner.
type Option func(*Runner)

// WithSessionFactory replaces the browser opener.
func WithSessionFactory(f SessionFactory) Option {
	return func(r *Runner) { r.open = f }
}

// WithScenarios replaces the scenario list.
func WithScenarios(list ...scenarios.Scenario) Option {
	return func(r *Runner) { r.scenarios = list }
}

// WithRecorder shares a metrics recorder across runners.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = rec }
}

// New creates a runner for the scenarios matched by sel.
func New(cfg *config.TestConfig, log logrus.FieldLogger, sel markers.Selection, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		log:       log,
		metrics:   metrics.NewRecorder(),
		selection: sel,
		open:      OpenBrowser,
		scenarios: scenarios.All(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns the runner's recorder.
func (r *Runner) Metrics() *metrics.Recorder {
	return r.metrics
}

// RunOnce runs every selected scenario in order. The returned error joins
// every scenario failure; the report is always populated.
func (r *Runner) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: time.Now()}
	log := r.log.WithField("run_id", report.RunID)

	var errs []error
	for _, sc := range r.scenarios {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !r.selection.Matches(sc.Markers...) {
			log.WithField("scenario", sc.Name).Debug("deselected by markers")
			r.metrics.Observe(sc.Name, metrics.OutcomeSkipped, 0)
			report.Results = append(report.Results, Result{Scenario: sc.Name, Outcome: metrics.OutcomeSkipped})
			continue
		}
		res := r.runScenario(ctx, log.WithField("scenario", sc.Name), sc)
		report.Results = append(report.Results, res)
		if res.Outcome == metrics.OutcomeFailed {
			errs = append(errs, fmt.Errorf("%s: %s", sc.Name, res.Error))
		}
	}

	if r.cfg.MetricsFile != "" {
		if err := r.metrics.WriteTextfile(r.cfg.MetricsFile); err != nil {
			log.WithError(err).Warn("metrics textfile not written")
		}
	}
	log.WithFields(logrus.Fields{
		"scenarios": len(report.Results),
		"failed":    report.Failed(),
	}).Info("run finished")
	return report, errors.Join(errs...)
}

func (r *Runner) runScenario(ctx context.Context, log logrus.FieldLogger, sc scenarios.Scenario) Result {
	start := time.Now()
	res := Result{Scenario: sc.Name}

	log.Info("scenario started")
	err := r.execute(ctx, log, sc, &res)
	res.Duration = time.Since(start)
	res.Outcome = metrics.Outcome(err)
	r.metrics.Observe(sc.Name, res.Outcome, res.Duration)

	if err != nil {
		res.Error = err.Error()
		log.WithError(err).WithField("duration", res.Duration).Error("scenario failed")
	} else {
		log.WithField("duration", res.Duration).Info("scenario passed")
	}
	return res
}

func (r *Runner) execute(ctx context.Context, log logrus.FieldLogger, sc scenarios.Scenario, res *Result) (err error) {
	s, err := r.open(r.cfg, log)
	if err != nil {
		return fmt.Errorf("failed to setup browser: %w", err)
	}
	defer func() {
		if err != nil {
			if path, shotErr := s.CaptureFailure(sc.Name); shotErr == nil {
				res.Screenshot = path
			}
		}
		if closeErr := s.Close(err != nil); closeErr != nil {
			log.WithError(closeErr).Warn("browser teardown")
		}
	}()
	return sc.Run(ctx, s, r.cfg.BaseURL)
}
