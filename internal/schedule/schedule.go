// ABOUTME: Cron scheduler triggering report runs for the current date.
// ABOUTME: Wraps robfig/cron with logging and graceful shutdown.

package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/pccs/cvreport/internal/engine"
	"github.com/pccs/cvreport/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner is the part of the engine the scheduler needs.
type Runner interface {
	Run(ctx context.Context, date string) (engine.RunResult, error)
}

// Scheduler triggers a report run on a cron schedule, always for the
// current date.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *logrus.Logger
}

// New creates a scheduler running the given cron expression.
func New(spec string, runner Runner, logger *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		runner: runner,
		logger: logger,
	}

	_, err := s.cron.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Report scheduler started")
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Report scheduler stopped")
}

func (s *Scheduler) runOnce() {
	date := time.Now().Format(storage.DateFormat)
	log := s.logger.WithField("date", date)
	log.Info("Scheduled report run starting")

	result, err := s.runner.Run(context.Background(), date)
	if err != nil {
		log.WithError(err).Error("Scheduled report run failed")
		return
	}
	log.WithFields(logrus.Fields{
		"rows":    result.Rows,
		"skipped": result.Skipped,
	}).Info("Scheduled report run finished")
}
