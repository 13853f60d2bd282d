package runner

import (
	"context"
	"time"
)

// Task represents a job that can be scheduled
type Task interface {
	// Name returns the unique name of the task
	Name() string

	// Schedule returns the cron schedule expression for this task
	Schedule() string

	// Run executes the task
	Run(ctx context.Context) error

	// Timeout returns the maximum time this task should run
	Timeout() time.Duration
}

// SuiteTask runs the selected scenarios on a schedule.
type SuiteTask struct {
	runner   *Runner
	schedule string
	timeout  time.Duration
}

// NewSuiteTask wraps r so it runs on the given cron schedule.
func NewSuiteTask(r *Runner, schedule string, timeout time.Duration) *SuiteTask {
	return &SuiteTask{runner: r, schedule: schedule, timeout: timeout}
}

func (t *SuiteTask) Name() string           { return "gmail-e2e-suite" }
func (t *SuiteTask) Schedule() string       { return t.schedule }
func (t *SuiteTask) Timeout() time.Duration { return t.timeout }

func (t *SuiteTask) Run(ctx context.Context) error {
	_, err := t.runner.RunOnce(ctx)
	return err
}
