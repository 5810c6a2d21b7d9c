// Package session holds the per-client conversation state and the manager that
// owns session lifecycles.
package session

import (
	"time"

	"github.com/BTreeMap/Healora/internal/models"
)

// State is the mutable record of one active session. It is only ever touched
// from inside Manager.Do, which serialises access.
type State struct {
	ID         string
	CreatedAt  time.Time
	LastActive time.Time

	Transcript    []models.Turn
	Archive       []models.ArchivedConversation
	NextArchiveID int

	MoodLog             []models.MoodEntry
	Appointments        []models.Appointment
	FailedNotifications []models.FailedNotification
	PendingEmergency    *models.EmergencyRequest

	// SelectedMood is the mood most recently announced in the transcript.
	SelectedMood models.Mood
}

// NewState returns an empty state for the given session id.
func NewState(id string, now time.Time) *State {
	return &State{
		ID:         id,
		CreatedAt:  now,
		LastActive: now,
	}
}

// AppendMoodNote adds a synthetic "I'm feeling X." turn and records mood as selected.
func (s *State) AppendMoodNote(mood models.Mood) {
	s.closePending()
	s.Transcript = append(s.Transcript, models.Turn{
		Kind: models.TurnMoodNote,
		User: "I'm feeling " + string(mood) + ".",
	})
	s.SelectedMood = mood
}

// AppendExchange adds a user message awaiting a reply. It becomes the only pending turn.
func (s *State) AppendExchange(message string) {
	s.closePending()
	s.Transcript = append(s.Transcript, models.Turn{
		Kind: models.TurnExchange,
		User: message,
	})
}

// PendingTurn returns the trailing unanswered turn, or nil.
func (s *State) PendingTurn() *models.Turn {
	if len(s.Transcript) == 0 {
		return nil
	}
	last := &s.Transcript[len(s.Transcript)-1]
	if !last.Pending() {
		return nil
	}
	return last
}

// AnswerPending writes reply into the pending turn. It reports false when nothing is pending.
func (s *State) AnswerPending(reply string) bool {
	t := s.PendingTurn()
	if t == nil {
		return false
	}
	t.Reply = reply
	t.Answered = true
	return true
}

// Rendered returns the live transcript as role-tagged lines.
func (s *State) Rendered() []models.RenderedMessage {
	return models.RenderTranscript(s.Transcript)
}

// closePending marks a dangling pending turn as answered with no reply so at
// most one turn is ever pending.
func (s *State) closePending() {
	if t := s.PendingTurn(); t != nil {
		t.Answered = true
	}
}
