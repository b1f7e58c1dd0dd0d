package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/tronobserver/internal/monitoring"
	"github.com/charlesng35/tronobserver/pkg/logger"
	"github.com/charlesng35/tronobserver/pkg/metrics"
)

const defaultCachePurgeSpec = "@hourly"

var errNoPurger = errors.New("maintenance: cache store does not support purging")

// Job is a named maintenance routine reporting how many rows it removed.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) (int64, error)
}

// ExpiredEntryPurger removes expired entries from a SQL-backed cache.
type ExpiredEntryPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CachePurgeJob garbage-collects expired rows of the database cache store. Expiry is
// enforced on read regardless; the job only keeps the table small.
func CachePurgeJob(purger ExpiredEntryPurger, schedule string) Job {
	if schedule == "" {
		schedule = defaultCachePurgeSpec
	}
	job := Job{Name: "cache_purge", Schedule: schedule}
	if purger == nil {
		job.Run = func(context.Context) (int64, error) { return 0, errNoPurger }
	} else {
		job.Run = purger.PurgeExpired
	}
	return job
}

// Cleaner schedules maintenance jobs on a cron and records their outcome.
type Cleaner struct {
	cron *cron.Cron
	now  func() time.Time
	log  *zap.Logger
	jobs []Job

	mu     sync.Mutex
	status map[string]*monitoring.JobStatus
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used to stamp job runs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithJob registers an additional job. Jobs without a name or function are ignored.
func WithJob(job Job) Option {
	return func(cleaner *Cleaner) {
		if job.Name == "" || job.Run == nil {
			return
		}
		cleaner.jobs = append(cleaner.jobs, job)
	}
}

// NewCleaner constructs a Cleaner for the supplied jobs.
func NewCleaner(opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		now:    time.Now,
		log:    logger.WithModule("maintenance"),
		status: make(map[string]*monitoring.JobStatus),
	}
	for _, opt := range opts {
		opt(cleaner)
	}
	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	for _, job := range cleaner.jobs {
		cleaner.status[job.Name] = &monitoring.JobStatus{Name: job.Name}
	}
	return cleaner
}

// Start registers the jobs with the scheduler and launches it. Without jobs it does nothing.
func (c *Cleaner) Start() error {
	if len(c.jobs) == 0 {
		return nil
	}

	for _, job := range c.jobs {
		job := job
		if _, err := c.cron.AddFunc(job.Schedule, func() {
			_ = c.run(context.Background(), job)
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", job.Name, err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler; the returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every job sequentially and aggregates their errors.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, job := range c.jobs {
		errs = multierr.Append(errs, c.run(ctx, job))
	}
	return errs
}

// Jobs reports the run history of every registered job, sorted by name.
func (c *Cleaner) Jobs() []monitoring.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]monitoring.JobStatus, 0, len(c.status))
	for _, status := range c.status {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Cleaner) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("maintenance: %s panicked: %v", job.Name, rec)
		}
		c.record(job.Name, err)
	}()

	removed, err := job.Run(ctx)
	if err != nil {
		c.log.Warn("maintenance job failed", zap.String("job", job.Name), zap.Error(err))
		return fmt.Errorf("maintenance: %s: %w", job.Name, err)
	}
	c.log.Debug("maintenance job finished", zap.String("job", job.Name), zap.Int64("removed", removed))
	return nil
}

func (c *Cleaner) record(name string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MaintenanceRuns.WithLabelValues(name, result).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	status, ok := c.status[name]
	if !ok {
		status = &monitoring.JobStatus{Name: name}
		c.status[name] = status
	}
	status.Runs++
	status.LastRunAt = c.now()
	if err != nil {
		status.ConsecutiveFailures++
		status.LastError = err.Error()
		return
	}
	status.ConsecutiveFailures = 0
	status.LastError = ""
}
