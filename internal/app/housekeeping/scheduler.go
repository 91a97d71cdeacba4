// Package housekeeping runs periodic cleanup on a cron schedule.
package housekeeping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/codes"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/clubhouse-sports/clubhouse/internal/app/system"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs cleanup every fifteen minutes.
const DefaultSchedule = "@every 15m"

// Job is one cleanup task. It returns the number of records removed.
type Job struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int, error)
}

var _ system.Service = (*Scheduler)(nil)

// Scheduler runs registered jobs on a shared cron schedule.
type Scheduler struct {
	schedule string
	jobs     []Job
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewScheduler creates a scheduler. An empty schedule uses DefaultSchedule.
func NewScheduler(schedule string, log *logger.Logger, jobs ...Job) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if log == nil {
		log = logger.NewDefault("housekeeping")
	}
	return &Scheduler{schedule: schedule, jobs: jobs, log: log, now: time.Now}
}

// SessionPurge removes expired access sessions.
func SessionPurge(sessions storage.SessionStore) Job {
	return Job{Name: "purge-sessions", Run: sessions.DeleteExpiredSessions}
}

// CodePurge removes expired verification codes.
func CodePurge(store codes.Store) Job {
	return Job{Name: "purge-codes", Run: store.PurgeExpired}
}

// Add registers another job. Jobs added while running take effect on the
// next tick.
func (s *Scheduler) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

func (s *Scheduler) Name() string { return "housekeeping" }

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New(cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})))
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("housekeeping schedule %q: %w", s.schedule, err)
	}
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.running = true
	s.log.WithField("schedule", s.schedule).Info("housekeeping started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.mu.Unlock()

	cancel()
	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("housekeeping stopped")
	return nil
}

// RunOnce executes every job immediately and returns removed counts by job.
func (s *Scheduler) RunOnce(ctx context.Context) map[string]int {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	now := s.now()
	results := make(map[string]int, len(jobs))
	for _, job := range jobs {
		removed, err := job.Run(ctx, now)
		if err != nil {
			s.log.WithError(err).WithField("job", job.Name).Warn("housekeeping job failed")
			continue
		}
		results[job.Name] = removed
		if removed > 0 {
			s.log.WithField("job", job.Name).WithField("removed", removed).Info("housekeeping job completed")
		}
	}
	return results
}

// cronLogger adapts the logger to cron.Logger.
type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(pairs(keysAndValues)).Error(msg)
}

func pairs(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
