package scheduler

import (
	"testing"
	"time"

	"github.com/BTreeMap/Healora/internal/session"
	"github.com/BTreeMap/Healora/internal/testutil"
)

type countingReaper struct {
	calls int
	ttl   time.Duration
}

func (c *countingReaper) Reap(idleFor time.Duration) int {
	c.calls++
	c.ttl = idleFor
	return 1
}

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if err := s.AddJob("not a cron", func() {}); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
	if s.Jobs() != 1 {
		t.Errorf("Expected 1 job, got %d", s.Jobs())
	}
}

func TestScheduleReaperRejectsNonPositiveTTL(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.ScheduleReaper(DefaultReapSpec, &countingReaper{}, 0); err == nil {
		t.Error("Expected error for zero ttl")
	}
	if err := s.ScheduleReaper(DefaultReapSpec, &countingReaper{}, time.Hour); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestReapJobPassesTTL(t *testing.T) {
	r := &countingReaper{}
	ReapJob(r, 2*time.Hour)()
	if r.calls != 1 || r.ttl != 2*time.Hour {
		t.Errorf("Reap called %d times with ttl %s", r.calls, r.ttl)
	}
}

func TestReapJobRemovesIdleSessions(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	m := session.NewManager(session.WithClock(clock.Now))
	idle := m.Create()
	clock.Advance(3 * time.Hour)
	active := m.Create()

	ReapJob(m, 2*time.Hour)()

	if m.Exists(idle) {
		t.Error("idle session should have been reaped")
	}
	if !m.Exists(active) {
		t.Error("active session should survive")
	}
}
