package runner

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs tasks on their cron schedules. A task whose previous run
// is still going is skipped rather than overlapped.
type Scheduler struct {
	cron   *cron.Cron
	tasks  []Task
	logger logrus.FieldLogger
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. Schedules use the standard five field
// syntax plus descriptors such as "@every 15m".
func NewScheduler(logger logrus.FieldLogger, tasks ...Task) *Scheduler {
	cronLog := cron.PrintfLogger(logger)
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		tasks:  tasks,
		logger: logger,
	}
}

// Register adds every task to cron without starting it.
func (s *Scheduler) Register(ctx context.Context) error {
	for _, task := range s.tasks {
		s.logger.Infof("Registering task: %s with schedule: %s", task.Name(), task.Schedule())

		_, err := s.cron.AddFunc(task.Schedule(), func() {
			s.executeTask(ctx, task)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", task.Name(), err)
		}
	}
	return nil
}

// Start registers tasks, starts cron and blocks until a signal or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Register(ctx); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started")

	return s.waitForShutdown(ctx)
}

// executeTask runs a single task with timeout and error handling
func (s *Scheduler) executeTask(ctx context.Context, task Task) {
	s.wg.Add(1)
	defer s.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	log := s.logger.WithField("task", task.Name())
	log.Info("executing task")

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		log.WithError(err).Errorf("task failed after %v", duration)
	} else {
		log.Infof("task completed successfully in %v", duration)
	}
}

// Stop shuts down cron and waits for running tasks to complete.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	ctx := s.cron.Stop()
	s.wg.Wait()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// waitForShutdown waits for termination signals
func (s *Scheduler) waitForShutdown(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		s.logger.Infof("received signal: %v", sig)
		s.Stop()
		return nil
	case <-ctx.Done():
		s.logger.Info("context cancelled")
		s.Stop()
		return ctx.Err()
	}
}
