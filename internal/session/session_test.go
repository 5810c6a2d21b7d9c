package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/Healora/internal/models"
)

func TestStateSinglePendingTurn(t *testing.T) {
	s := NewState("s1", time.Now())
	s.AppendMoodNote(models.MoodSad)
	if s.PendingTurn() != nil {
		t.Fatal("mood note must not be pending")
	}
	s.AppendExchange("hello")
	if p := s.PendingTurn(); p == nil || p.User != "hello" {
		t.Fatalf("expected pending turn for hello, got %+v", p)
	}
	s.AppendExchange("again")
	pending := 0
	for _, turn := range s.Transcript {
		if turn.Pending() {
			pending++
		}
	}
	if pending != 1 {
		t.Errorf("expected exactly one pending turn, got %d", pending)
	}
	if !s.AnswerPending("reply") {
		t.Fatal("AnswerPending should succeed")
	}
	if s.AnswerPending("twice") {
		t.Error("AnswerPending should report false when nothing is pending")
	}
	if s.SelectedMood != models.MoodSad {
		t.Errorf("SelectedMood = %q, want sad", s.SelectedMood)
	}
	if got := s.Transcript[0].User; got != "I'm feeling sad." {
		t.Errorf("mood note text = %q", got)
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	id := m.Create()
	if !m.Exists(id) {
		t.Fatal("created session should exist")
	}
	err := m.Do(id, func(s *State) error {
		s.AppendExchange("hi")
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if err := m.End(id); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := m.Do(id, func(*State) error { return nil }); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after End, got %v", err)
	}
	if err := m.End("missing"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerDoPropagatesError(t *testing.T) {
	m := NewManager()
	id := m.Create()
	want := errors.New("boom")
	if err := m.Do(id, func(*State) error { return want }); !errors.Is(err, want) {
		t.Errorf("Do error = %v, want %v", err, want)
	}
}

func TestManagerSerialisesActions(t *testing.T) {
	m := NewManager()
	id := m.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(id, func(s *State) error {
				s.AppendExchange("msg")
				s.AnswerPending("ok")
				return nil
			})
		}()
	}
	wg.Wait()

	_ = m.Do(id, func(s *State) error {
		if len(s.Transcript) != 50 {
			t.Errorf("expected 50 turns, got %d", len(s.Transcript))
		}
		for i, turn := range s.Transcript {
			if turn.Reply != "ok" {
				t.Errorf("turn %d not answered: %+v", i, turn)
			}
		}
		return nil
	})
}

func TestManagerReap(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(WithClock(func() time.Time { return now }))
	stale := m.Create()

	now = now.Add(3 * time.Hour)
	fresh := m.Create()

	if n := m.Reap(2 * time.Hour); n != 1 {
		t.Fatalf("Reap removed %d sessions, want 1", n)
	}
	if m.Exists(stale) {
		t.Error("stale session should have been reaped")
	}
	if !m.Exists(fresh) {
		t.Error("fresh session should survive")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
}

func TestManagerCreateUniqueIDs(t *testing.T) {
	ids := []string{"dup", "dup", "other"}
	i := 0
	m := NewManager(WithIDGenerator(func() string {
		id := ids[i]
		i++
		return id
	}))
	first := m.Create()
	second := m.Create()
	if first == second {
		t.Errorf("expected unique ids, got %q twice", first)
	}
}
