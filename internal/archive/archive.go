// Package archive snapshots and restores conversation transcripts within a session.
package archive

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/session"
)

// CurrentLabel selects the live transcript in List and Load.
const CurrentLabel = "Current Conversation"

// Archiver manages the archive of a session state.
type Archiver struct {
	now func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		a.now = now
	}
}

// New creates an Archiver.
func New(opts ...Option) *Archiver {
	a := &Archiver{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Label formats the list label of an archived conversation.
func Label(c models.ArchivedConversation) string {
	return fmt.Sprintf("Conversation %d (%s)", c.ID, c.Timestamp.Format(models.TimestampLayout))
}

// StartNew archives a non-empty live transcript and clears it. It returns false
// when there was nothing to archive.
func (a *Archiver) StartNew(s *session.State) bool {
	if len(s.Transcript) == 0 {
		return false
	}
	entry := models.ArchivedConversation{
		ID:        s.NextArchiveID,
		Timestamp: a.now(),
		Turns:     models.CloneTurns(s.Transcript),
	}
	s.Archive = append(s.Archive, entry)
	s.NextArchiveID++
	s.Transcript = nil
	s.SelectedMood = ""
	slog.Debug("Archiver.StartNew: conversation archived", "session_id", s.ID, "archive_id", entry.ID, "turns", len(entry.Turns))
	return true
}

// Clear empties the live transcript without archiving it.
func (a *Archiver) Clear(s *session.State) {
	s.Transcript = nil
	s.SelectedMood = ""
}

// List returns the current-conversation sentinel followed by one label per archive entry.
func (a *Archiver) List(s *session.State) []string {
	labels := make([]string, 0, len(s.Archive)+1)
	labels = append(labels, CurrentLabel)
	for _, c := range s.Archive {
		labels = append(labels, Label(c))
	}
	return labels
}

// Load returns the archived transcript matching label, or the live transcript otherwise.
// The result is a copy.
func (a *Archiver) Load(s *session.State, label string) []models.Turn {
	if label != CurrentLabel {
		for _, c := range s.Archive {
			if Label(c) == label {
				return models.CloneTurns(c.Turns)
			}
		}
	}
	return models.CloneTurns(s.Transcript)
}
