package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-cli/internal/logger"
)

// Job is one refresh run. Its context expires after the job timeout.
type Job func(ctx context.Context) error

// Scheduler periodically runs a refresh job, starting immediately.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	timeout   time.Duration
	log       logger.Logger
}

// New creates a new Scheduler. Each run gets at most timeout; zero means the interval.
func New(interval, timeout time.Duration, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = interval
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		interval:  interval,
		timeout:   timeout,
		log:       log.WithField("component", "scheduler"),
	}
}

// Start schedules job and starts the underlying scheduler in the background.
func (s *Scheduler) Start(ctx context.Context, job Job) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		start := time.Now()
		if err := job(runCtx); err != nil {
			s.log.Warnf("refresh failed: %v", err)
			return
		}
		s.log.Debugf("refresh completed in %s", time.Since(start))
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
