// Package models defines the core data structures for Healora.
//
// It includes the transcript, journal, appointment, emergency and notification
// records shared across the session, workflow, store and API modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// TimestampLayout is the display layout used for archive labels and journal entries.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the calendar date layout accepted for appointments.
const DateLayout = "2006-01-02"

// MoodPlaceholder is the "no selection" value sent by clients that render a mood dropdown.
const MoodPlaceholder = "Select mood (optional)"

// Error variables for better error handling and testability
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrTherapistNotFound = errors.New("therapist not found")
	ErrNoRoute           = errors.New("no notification route for recipient")
	ErrEmptyRecipient    = errors.New("recipient cannot be empty")
	ErrEmptyGeneration   = errors.New("generator returned empty text")
)

// Mood is a user-selected mood tag. Unknown values are kept as-is and resolve
// to the "other" coping bucket.
type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodSad      Mood = "sad"
	MoodAnxious  Mood = "anxious"
	MoodStressed Mood = "stressed"
	MoodOther    Mood = "other"
)

// ParseMood normalizes a raw mood selection. It reports false when no mood was selected.
func ParseMood(raw string) (Mood, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, MoodPlaceholder) {
		return "", false
	}
	return Mood(strings.ToLower(raw)), true
}

// Region keys the crisis resource lists.
type Region string

const (
	RegionUSA    Region = "USA"
	RegionIndia  Region = "India"
	RegionUK     Region = "UK"
	RegionGlobal Region = "Global"
)

// TurnKind distinguishes real exchanges from synthetic mood notes.
type TurnKind string

const (
	// TurnExchange is a user message that is answered by the assistant.
	TurnExchange TurnKind = "exchange"
	// TurnMoodNote is a synthetic "I'm feeling X." entry that never carries a reply.
	TurnMoodNote TurnKind = "mood_note"
)

// Turn is one transcript entry: the user text and, once composed, the assistant reply.
type Turn struct {
	Kind     TurnKind `json:"kind"`
	User     string   `json:"user"`
	Reply    string   `json:"reply,omitempty"`
	Answered bool     `json:"answered"`
}

// Pending reports whether the turn still waits for a composed reply.
func (t Turn) Pending() bool {
	return t.Kind == TurnExchange && !t.Answered
}

// ArchivedConversation is an immutable snapshot of a finished transcript.
type ArchivedConversation struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Turns     []Turn    `json:"turns"`
}

// MoodEntry is one mood journal record.
type MoodEntry struct {
	SessionID string    `json:"session_id,omitempty"`
	Mood      Mood      `json:"mood"`
	Timestamp time.Time `json:"timestamp"`
}

// Therapist is a static directory entry. Name doubles as the identifier.
type Therapist struct {
	Name           string   `json:"name"`
	Specialty      string   `json:"specialty"`
	ContactEmail   string   `json:"contact_email"`
	AvailableSlots []string `json:"available_slots"`
}

// HasSlot reports whether slot is one of the therapist's declared time slots.
func (t Therapist) HasSlot(slot string) bool {
	for _, s := range t.AvailableSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Appointment is a recorded booking.
type Appointment struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id,omitempty"`
	TherapistID    string    `json:"therapist_id"`
	TimeSlot       string    `json:"time_slot"`
	Date           string    `json:"date"`
	RequesterEmail string    `json:"requester_email"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EmergencyRequest is the pending request of the two-phase emergency workflow.
type EmergencyRequest struct {
	TherapistID    string    `json:"therapist_id"`
	RequesterName  string    `json:"requester_name"`
	Gender         string    `json:"gender"`
	Age            string    `json:"age"`
	RequesterEmail string    `json:"requester_email"`
	MeetingLink    string    `json:"meeting_link"`
	RequestedAt    time.Time `json:"requested_at"`
}

// Notification is a single two-party message to be delivered by a dispatcher.
type Notification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// NotificationKind identifies the workflow that produced a notification.
type NotificationKind string

const (
	NotificationKindAppointment NotificationKind = "appointment"
	NotificationKindEmergency   NotificationKind = "emergency"
)

// FailedNotification preserves the original payloads of an event whose dispatch
// failed so an operator can resend them by hand.
type FailedNotification struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id,omitempty"`
	Kind      NotificationKind `json:"kind"`
	Payloads  []Notification   `json:"payloads"`
	Error     string           `json:"error"`
	CreatedAt time.Time        `json:"created_at"`
}

// Role tags a rendered transcript line.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RenderedMessage is one role-tagged line of a rendered transcript.
type RenderedMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// RenderTranscript flattens turns into role-tagged lines in insertion order.
// Pending turns render only the user side.
func RenderTranscript(turns []Turn) []RenderedMessage {
	out := make([]RenderedMessage, 0, len(turns)*2)
	for _, t := range turns {
		if t.User != "" {
			out = append(out, RenderedMessage{Role: RoleUser, Text: t.User})
		}
		if t.Answered && t.Reply != "" {
			out = append(out, RenderedMessage{Role: RoleAssistant, Text: t.Reply})
		}
	}
	return out
}

// CloneTurns returns a deep copy of turns.
func CloneTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
