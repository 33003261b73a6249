// Package scheduler drives the cron-timed background jobs, chiefly the
// heartbeat beat. Jobs run on the cron goroutine; anything needing
// single-flight protection enforces it itself.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one schedulable unit of work
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule (seconds field enabled)
// Schedule examples:
//   - "@hourly"            - one beat per hour
//   - "@every 30m"         - one beat per half hour
//   - "0 0 */6 * * *"      - one beat every six hours
//   - "0 */5 * * * *"      - every 5 minutes, for local smoke runs
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		start := time.Now()
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Dur("duration_ms", time.Since(start)).
				Msg("Job failed")
			return
		}
		s.log.Debug().
			Str("job", job.Name()).
			Dur("duration_ms", time.Since(start)).
			Msg("Job completed")
	})

	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}
