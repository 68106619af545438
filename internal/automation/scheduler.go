package automation

import (
	"context"

	"github.com/robfig/cron/v3"
)

// Scheduler runs jobs on cron specs. Jobs never overlap with themselves.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// AddJob registers fn under spec; fn receives ctx on every run.
func (s *Scheduler) AddJob(ctx context.Context, spec string, fn func(context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() { fn(ctx) })
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and returns a context done once running jobs
// have returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Run starts the scheduler and blocks until ctx is cancelled and in-flight
// jobs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}
