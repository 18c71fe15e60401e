// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs periodic callbacks on a gocron scheduler. It is the
// host loop that drives the hotplug watcher's tick.
package scheduler

import (
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/pkg/errors"
)

// JobInfo describes a registered job.
type JobInfo struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run,omitempty"`
}

type options struct {
	clock clockwork.Clock
}

// Option configures a Scheduler.
type Option func(*options)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// Scheduler registers fixed-interval jobs. Every job runs in singleton mode:
// a run that is still executing when the next one is due causes that next
// run to be skipped and rescheduled, never overlapped.
type Scheduler struct {
	logger    logger.Logger
	scheduler gocron.Scheduler

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a stopped scheduler.
func New(l logger.Logger, opts ...Option) (*Scheduler, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	gopts := []gocron.SchedulerOption{
		gocron.WithLogger(&gocronLogger{l: l}),
		gocron.WithLocation(time.UTC),
	}
	if o.clock != nil {
		gopts = append(gopts, gocron.WithClock(o.clock))
	}

	s, err := gocron.NewScheduler(gopts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.SchedulerCreateFailed).
			WithMetadata("operation", "create_scheduler")
	}

	return &Scheduler{
		logger:    l,
		scheduler: s,
	}, nil
}

// Register adds a job running fn every period.
func (s *Scheduler) Register(name string, period time.Duration, fn func()) (uuid.UUID, error) {
	if period <= 0 {
		return uuid.Nil, errors.New(errors.SchedulerJobFailed, "period must be positive").
			WithMetadata("job", name).
			WithMetadata("period", period.String())
	}
	if fn == nil {
		return uuid.Nil, errors.New(errors.SchedulerJobFailed, "job function is nil").
			WithMetadata("job", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return uuid.Nil, errors.New(errors.SchedulerJobFailed, "scheduler is shut down").
			WithMetadata("job", name)
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(period),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.SchedulerJobFailed).
			WithMetadata("job", name).
			WithMetadata("period", period.String())
	}

	s.logger.Debug("job registered",
		"job", name,
		"job_id", job.ID().String(),
		"period", period)

	return job.ID(), nil
}

// Deregister removes a job. The job will not be started again.
func (s *Scheduler) Deregister(id uuid.UUID) error {
	if err := s.scheduler.RemoveJob(id); err != nil {
		if stderrors.Is(err, gocron.ErrJobNotFound) {
			return errors.Wrap(err, errors.SchedulerJobNotFound).
				WithMetadata("job_id", id.String())
		}
		return errors.Wrap(err, errors.SchedulerJobFailed).
			WithMetadata("operation", "remove_job").
			WithMetadata("job_id", id.String())
	}

	s.logger.Debug("job deregistered", "job_id", id.String())
	return nil
}

// Start begins running registered and future jobs. It is idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.scheduler.Start()
	s.started = true
	s.logger.Info("scheduler started", "jobs", len(s.scheduler.Jobs()))
}

// Shutdown stops the scheduler and waits for running jobs to return.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	if err := s.scheduler.Shutdown(); err != nil {
		return errors.Wrap(err, errors.SchedulerShutdownFailed)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	jobs := s.scheduler.Jobs()
	infos := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		info := JobInfo{ID: j.ID(), Name: j.Name()}
		if next, err := j.NextRun(); err == nil {
			info.NextRun = next
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, k int) bool { return infos[i].Name < infos[k].Name })
	return infos
}

// gocronLogger forwards gocron's internal logging to the component logger.
type gocronLogger struct {
	l logger.Logger
}

func (g *gocronLogger) Debug(msg string, args ...any) { g.l.Debug("gocron: "+msg, args...) }
func (g *gocronLogger) Info(msg string, args ...any)  { g.l.Info("gocron: "+msg, args...) }
func (g *gocronLogger) Warn(msg string, args ...any)  { g.l.Warn("gocron: "+msg, args...) }
func (g *gocronLogger) Error(msg string, args ...any) { g.l.Error("gocron: "+msg, args...) }
