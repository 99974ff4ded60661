// Package schedule repeats a job on a cron expression.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is one scheduled unit of work. Its context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context)

// Scheduler runs a Job on a standard five-field cron spec. A tick that fires
// while the previous run is still in progress is skipped.
type Scheduler struct {
	cron *cron.Cron
	spec string
	id   cron.EntryID
	job  cron.Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New parses spec and prepares a scheduler. loc defaults to time.Local.
func New(spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("schedule: nil job")
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule: parse %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	logger := log.With().Str("component", "cron").Logger()
	cl := cron.PrintfLogger(&logger)

	s := &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithLogger(cl)),
		spec: spec,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		start := time.Now()
		log.Info().Str("spec", spec).Msg("scheduled run starting")
		job(s.ctx)
		log.Info().Str("spec", spec).Dur("took", time.Since(start)).Msg("scheduled run finished")
	}))
	s.id = s.cron.Schedule(sched, s.job)
	return s, nil
}

// Next returns the next activation time after now.
func (s *Scheduler) Next() time.Time {
	e := s.cron.Entry(s.id)
	if !e.Next.IsZero() {
		return e.Next
	}
	if e.Schedule == nil {
		return time.Time{}
	}
	return e.Schedule.Next(time.Now().In(s.cron.Location()))
}

// RunNow runs the job synchronously outside the cron cadence. It is skipped
// when a run is already in progress.
func (s *Scheduler) RunNow() {
	s.job.Run()
}

// Start begins dispatching ticks in the background.
func (s *Scheduler) Start() {
	log.Info().Str("spec", s.spec).Time("next", s.Next()).Msg("scheduler started")
	s.cron.Start()
}

// Stop halts the scheduler, cancels any in-flight job and waits for it to
// return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	ticks := s.cron.Stop()
	immediate := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(immediate)
	}()
	for _, done := range []<-chan struct{}{ticks.Done(), immediate} {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	log.Info().Msg("scheduler stopped")
	return nil
}

// Run starts the scheduler, optionally runs the job once right away, and
// blocks until ctx ends. It then stops the scheduler, allowing in-flight
// work up to grace to return.
func (s *Scheduler) Run(ctx context.Context, runNow bool, grace time.Duration) error {
	s.Start()
	if runNow {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.RunNow()
		}()
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return s.Stop(stopCtx)
}
