// Package scheduler wraps robfig/cron for the periodic auto-manage cycle.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. Standard 5-field expressions and
// the @every descriptors are accepted.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  zerolog.Logger
}

// New creates a stopped Scheduler. Jobs inherit ctx so Stop plus context
// cancellation ends in-flight work.
func New(ctx context.Context, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		ctx:  ctx,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob registers a job. Job errors are logged, never fatal: a failed cycle
// must not take the schedule down with it.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Info().Str("job", job.Name()).Msg("job started")
		if err := job.Run(s.ctx); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("job failed")
			return
		}
		s.log.Info().Str("job", job.Name()).Msg("job finished")
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("job", job.Name()).Str("schedule", schedule).Msg("job registered")
	return nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
