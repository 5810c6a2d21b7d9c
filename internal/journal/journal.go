// Package journal records mood entries for a session and summarises their trend.
package journal

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/session"
)

// Status strings returned to the user.
const (
	MsgSelectMood = "Please select a mood to log."
	MsgLogged     = "Mood logged successfully!"
	MsgNoMoods    = "No moods logged yet."
)

// Recorder persists mood entries outside the session.
type Recorder interface {
	AddMoodEntry(entry models.MoodEntry) error
}

// Journal logs moods into session state.
type Journal struct {
	recorder Recorder
	now      func() time.Time
}

// Option configures a Journal.
type Option func(*Journal)

// WithRecorder mirrors logged entries into an audit store.
func WithRecorder(r Recorder) Option {
	return func(j *Journal) {
		j.recorder = r
	}
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// New creates a Journal.
func New(opts ...Option) *Journal {
	j := &Journal{now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Log appends a mood entry. Blank or placeholder moods change nothing.
func (j *Journal) Log(s *session.State, raw string) (string, bool) {
	mood, ok := models.ParseMood(raw)
	if !ok {
		return MsgSelectMood, false
	}
	entry := models.MoodEntry{SessionID: s.ID, Mood: mood, Timestamp: j.now()}
	s.MoodLog = append(s.MoodLog, entry)
	if j.recorder != nil {
		if err := j.recorder.AddMoodEntry(entry); err != nil {
			slog.Warn("Journal.Log: failed to record mood entry", "session_id", s.ID, "error", err)
		}
	}
	return MsgLogged, true
}

// MoodCount is the number of times a mood was logged.
type MoodCount struct {
	Mood  models.Mood `json:"mood"`
	Count int         `json:"count"`
}

// Report summarises the mood log of a session.
type Report struct {
	Series       []models.MoodEntry `json:"series"`
	Counts       []MoodCount        `json:"counts"`
	MostFrequent models.Mood        `json:"most_frequent"`
	LastLogged   string             `json:"last_logged"`
}

// String renders the report as a short human-readable summary.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mood Trends Over Time (%d entries)\n", len(r.Series))
	for _, e := range r.Series {
		fmt.Fprintf(&b, "- %s: %s\n", e.Timestamp.Format(models.TimestampLayout), e.Mood)
	}
	fmt.Fprintf(&b, "Most frequent mood: %s\n", r.MostFrequent)
	fmt.Fprintf(&b, "Last logged: %s", r.LastLogged)
	return b.String()
}

// Trends builds a report over the mood log. It reports false when nothing was logged.
func (j *Journal) Trends(s *session.State) (Report, bool) {
	if len(s.MoodLog) == 0 {
		return Report{}, false
	}

	series := make([]models.MoodEntry, len(s.MoodLog))
	copy(series, s.MoodLog)
	sort.SliceStable(series, func(a, b int) bool {
		return series[a].Timestamp.Before(series[b].Timestamp)
	})

	counts := make(map[models.Mood]int)
	var order []models.Mood
	best := models.Mood("")
	for _, e := range series {
		if counts[e.Mood] == 0 {
			order = append(order, e.Mood)
		}
		counts[e.Mood]++
		if counts[e.Mood] > counts[best] {
			best = e.Mood
		}
	}

	report := Report{
		Series:       series,
		MostFrequent: best,
		LastLogged:   humanize.RelTime(series[len(series)-1].Timestamp, j.now(), "ago", "from now"),
	}
	for _, m := range order {
		report.Counts = append(report.Counts, MoodCount{Mood: m, Count: counts[m]})
	}
	return report, true
}
