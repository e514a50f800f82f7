// Package scheduler runs periodic maintenance jobs such as embedding backfill.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Backfiller embeds notes that were stored without an embedding.
type Backfiller interface {
	Backfill(ctx context.Context, limit int) (embedded, failed int, err error)
}

// Status describes the most recent backfill run.
type Status struct {
	Schedule     string    `json:"schedule"`
	Runs         int       `json:"runs"`
	LastRun      time.Time `json:"last_run,omitempty"`
	LastEmbedded int       `json:"last_embedded"`
	LastFailed   int       `json:"last_failed"`
	LastError    string    `json:"last_error,omitempty"`
}

// Scheduler triggers backfill runs on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	job      Backfiller
	schedule string
	batch    int
	timeout  time.Duration
	logger   *zap.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	status  Status
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBatchSize limits the notes embedded per run. 0 means no limit.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) { s.batch = n }
}

// WithTimeout bounds a single run.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// New returns a scheduler running job on schedule, a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 10m".
func New(job Backfiller, schedule string, opts ...Option) *Scheduler {
	s := &Scheduler{
		job:      job,
		schedule: schedule,
		batch:    100,
		timeout:  10 * time.Minute,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.Schedule = schedule
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	return s
}

// Start schedules the job. An empty schedule disables the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.schedule == "" {
		s.logger.Info("embedding backfill schedule disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunNow(context.Background()) }); err != nil {
		return fmt.Errorf("invalid backfill schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("embedding backfill scheduled", zap.String("schedule", s.schedule))
	return nil
}

// Stop stops scheduling and waits up to 30 seconds for a running job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn("embedding backfill did not stop in time")
	}
}

// RunNow runs one backfill pass and records its outcome.
func (s *Scheduler) RunNow(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	embedded, failed, err := s.job.Backfill(ctx, s.batch)
	if err != nil {
		s.logger.Warn("embedding backfill failed", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Runs++
	s.status.LastRun = time.Now()
	s.status.LastEmbedded = embedded
	s.status.LastFailed = failed
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	return s.status
}

// Status returns the outcome of the last run.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
