package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/rotisserie/eris"

	"IDCIntel/internal/ports"
)

// CronScheduler runs jobs on six-field cron specs (seconds first) in a fixed zone.
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	loc     *time.Location
	running bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a stopped scheduler evaluating specs in loc.
func NewCronScheduler(loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &CronScheduler{cron: cron.NewWithLocation(loc), loc: loc}
}

// Add registers job under spec. The job receives the trigger time in the
// scheduler's zone.
func (c *CronScheduler) Add(spec string, job func(time.Time)) error {
	if job == nil {
		return eris.New("scheduler: nil job")
	}
	loc := c.loc
	if err := c.cron.AddFunc(spec, func() { job(time.Now().In(loc)) }); err != nil {
		return eris.Wrapf(err, "scheduler: add %q", spec)
	}
	return nil
}

// Start begins dispatching. Cancelling ctx stops the scheduler.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	c.cron.Start()
	c.running = true

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Stop halts dispatching. Jobs already running are not interrupted.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.cron.Stop()
	c.running = false
	return nil
}

// Next reports the upcoming trigger times of the registered jobs.
func (c *CronScheduler) Next() []time.Time {
	entries := c.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Schedule.Next(time.Now().In(c.loc)))
	}
	return out
}
