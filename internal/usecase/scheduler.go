package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"IDCIntel/internal/ports"
)

// Job is a named unit of recurring work.
type Job struct {
	Name string
	Spec string
	// Immediate runs the job once right after Start.
	Immediate bool
	Run       func(ctx context.Context, at time.Time) error
}

// Scheduler wires the cron driver with the use cases.
type Scheduler struct {
	driver ports.Scheduler
	jobs   []Job
	logger *zap.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, logger *zap.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{driver: driver, jobs: jobs, logger: logger}
}

// Start registers every job with the driver and starts it. A trigger that
// arrives while the previous run of the same job is still going is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return eris.New("usecase: no scheduler driver configured")
	}

	var immediate []func(time.Time)
	for _, job := range s.jobs {
		if job.Spec == "" {
			s.logger.Info("job disabled", zap.String("job", job.Name))
			continue
		}
		run := s.wrap(ctx, job)
		if err := s.driver.Add(job.Spec, run); err != nil {
			return eris.Wrapf(err, "usecase: schedule %s", job.Name)
		}
		if job.Immediate {
			immediate = append(immediate, run)
		}
		s.logger.Info("job scheduled", zap.String("job", job.Name), zap.String("spec", job.Spec))
	}

	if err := s.driver.Start(ctx); err != nil {
		return eris.Wrap(err, "usecase: start scheduler")
	}
	for _, run := range immediate {
		go run(time.Now())
	}
	return nil
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) wrap(ctx context.Context, job Job) func(time.Time) {
	var busy atomic.Bool
	logger := s.logger.With(zap.String("job", job.Name))
	return func(at time.Time) {
		if !busy.CompareAndSwap(false, true) {
			logger.Warn("previous run still in progress, skipping")
			return
		}
		defer busy.Store(false)

		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := job.Run(ctx, at); err != nil {
			logger.Error("job failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			return
		}
		logger.Info("job done", zap.Duration("elapsed", time.Since(start)))
	}
}
