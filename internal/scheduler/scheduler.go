// Package scheduler runs Healora's periodic housekeeping, such as reaping idle
// sessions, on cron expressions.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultReapSpec runs the session reaper every ten minutes.
const DefaultReapSpec = "*/10 * * * *"

// Reaper discards sessions idle for longer than the given duration and reports how many it removed.
type Reaper interface {
	Reap(idleFor time.Duration) int
}

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Standard 5-field parser (min, hour, dom, month, dow); panics in jobs are recovered.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	if _, err := s.cron.AddFunc(expr, task); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// ScheduleReaper registers a job that reaps sessions idle for longer than ttl.
func (s *Scheduler) ScheduleReaper(expr string, r Reaper, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	return s.AddJob(expr, ReapJob(r, ttl))
}

// ReapJob returns the task run by ScheduleReaper.
func ReapJob(r Reaper, ttl time.Duration) func() {
	return func() {
		if n := r.Reap(ttl); n > 0 {
			slog.Info("Scheduler.ReapJob: reaped idle sessions", "count", n, "ttl", ttl)
		} else {
			slog.Debug("Scheduler.ReapJob: no idle sessions")
		}
	}
}

// Jobs reports the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
