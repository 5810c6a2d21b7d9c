package journal

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/session"
)

type stubRecorder struct {
	entries []models.MoodEntry
	err     error
}

func (r *stubRecorder) AddMoodEntry(e models.MoodEntry) error {
	r.entries = append(r.entries, e)
	return r.err
}

func TestLog(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMsg string
		wantLen int
	}{
		{"blank", "", MsgSelectMood, 0},
		{"placeholder", models.MoodPlaceholder, MsgSelectMood, 0},
		{"valid", "Anxious", MsgLogged, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &stubRecorder{}
			j := New(WithRecorder(rec))
			s := session.NewState("s", time.Now())
			msg, _ := j.Log(s, tt.raw)
			if msg != tt.wantMsg {
				t.Errorf("Log(%q) = %q, want %q", tt.raw, msg, tt.wantMsg)
			}
			if len(s.MoodLog) != tt.wantLen || len(rec.entries) != tt.wantLen {
				t.Errorf("log len = %d, recorded = %d, want %d", len(s.MoodLog), len(rec.entries), tt.wantLen)
			}
			if tt.wantLen == 1 && s.MoodLog[0].Mood != models.MoodAnxious {
				t.Errorf("mood = %q, want lower-cased anxious", s.MoodLog[0].Mood)
			}
		})
	}
}

func TestLogRecorderFailureKeepsEntry(t *testing.T) {
	j := New(WithRecorder(&stubRecorder{err: errors.New("db down")}))
	s := session.NewState("s", time.Now())
	if msg, ok := j.Log(s, "happy"); !ok || msg != MsgLogged {
		t.Fatalf("Log = %q, %v", msg, ok)
	}
	if len(s.MoodLog) != 1 {
		t.Error("entry should stay in the session when the recorder fails")
	}
}

func TestTrendsEmpty(t *testing.T) {
	j := New()
	if _, ok := j.Trends(session.NewState("s", time.Now())); ok {
		t.Error("Trends on empty log should report false")
	}
}

func TestTrends(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	now := base
	j := New(WithClock(func() time.Time { return now }))
	s := session.NewState("s", base)

	for i, m := range []string{"sad", "happy", "sad"} {
		now = base.Add(time.Duration(i) * time.Hour)
		j.Log(s, m)
	}
	now = base.Add(5 * time.Hour)

	report, ok := j.Trends(s)
	if !ok {
		t.Fatal("expected a report")
	}
	if report.MostFrequent != models.MoodSad {
		t.Errorf("MostFrequent = %q, want sad", report.MostFrequent)
	}
	if len(report.Counts) != 2 || report.Counts[0].Count != 2 || report.Counts[1].Count != 1 {
		t.Errorf("Counts = %+v", report.Counts)
	}
	if report.LastLogged != "3 hours ago" {
		t.Errorf("LastLogged = %q, want 3 hours ago", report.LastLogged)
	}
	if !strings.Contains(report.String(), "Most frequent mood: sad") {
		t.Errorf("summary missing most frequent mood: %q", report.String())
	}
}
