// Package schedule runs periodic maintenance jobs on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/robfig/cron/v3"
)

// Job is one named maintenance function. Run returns the number of rows it
// touched, which is logged when non-zero.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Scheduler runs jobs on one cron spec.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
}

// Start schedules jobs on spec and starts the cron runner. Jobs never
// overlap with themselves; a run still in progress skips the next tick.
func Start(ctx context.Context, spec string, jobs ...Job) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("schedule spec is required")
	}
	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:  runCtx,
		stop: stop,
	}
	for _, job := range jobs {
		if job.Run == nil {
			continue
		}
		if _, err := s.cron.AddFunc(spec, s.wrap(job)); err != nil {
			stop()
			return nil, err
		}
		log.Printf("scheduled job name=%s spec=%q", job.Name, spec)
	}
	s.cron.Start()
	return s, nil
}

// Stop stops the runner and waits for running jobs to return.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	s.stop()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		n, err := job.Run(s.ctx)
		if err != nil {
			log.Printf("scheduled job failed name=%s err=%v", job.Name, err)
			return
		}
		if n > 0 {
			log.Printf("scheduled job name=%s affected=%d", job.Name, n)
		}
	}
}
