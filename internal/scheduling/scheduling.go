// Package scheduling validates and records therapist appointments and notifies
// both parties.
package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/Healora/internal/catalog"
	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/notify"
	"github.com/BTreeMap/Healora/internal/session"
	"github.com/BTreeMap/Healora/internal/util"
)

// User-facing validation messages, in the order they are checked.
const (
	MsgSelectTherapist = "Please select a therapist."
	MsgSelectSlot      = "Please select a valid time slot."
	MsgSelectDate      = "Please select a date."
	MsgBadDate         = "Invalid date format. Use YYYY-MM-DD."
	MsgPastDate        = "The selected date is in the past. Please select a future date."
	MsgBadEmail        = "Please enter a valid email address."
)

// Status is the outcome of a scheduling attempt.
type Status string

const (
	StatusBooked   Status = "booked"
	StatusDegraded Status = "degraded"
	StatusRejected Status = "rejected"
)

// Request holds the booking form.
type Request struct {
	TherapistID    string `json:"therapist"`
	TimeSlot       string `json:"time_slot"`
	Date           string `json:"date"`
	RequesterEmail string `json:"email"`
	Note           string `json:"note"`
}

// Result reports the outcome and, unless rejected, the recorded appointment.
type Result struct {
	Status      Status              `json:"status"`
	Message     string              `json:"message"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
}

// Recorder mirrors bookings and failed notifications into an audit store.
type Recorder interface {
	AddAppointment(a models.Appointment) error
	AddFailedNotification(f models.FailedNotification) error
}

// Workflow books appointments.
type Workflow struct {
	catalog     *catalog.Catalog
	dispatcher  notify.Dispatcher
	recorder    Recorder
	fromAddress string
	now         func() time.Time
	newID       func() string
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithRecorder mirrors records into an audit store.
func WithRecorder(r Recorder) Option {
	return func(w *Workflow) {
		w.recorder = r
	}
}

// WithFromAddress sets the sender address named in degraded-success messages.
func WithFromAddress(addr string) Option {
	return func(w *Workflow) {
		w.fromAddress = addr
	}
}

// WithClock overrides the time source used for "today" and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// New creates a scheduling workflow.
func New(cat *catalog.Catalog, d notify.Dispatcher, opts ...Option) *Workflow {
	w := &Workflow{
		catalog:     cat,
		dispatcher:  d,
		fromAddress: "the Healora notification service",
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Validate checks req in order and returns the first user-facing rejection, or "".
func (w *Workflow) Validate(req Request) (models.Therapist, string) {
	therapist, ok := w.catalog.Therapist(req.TherapistID)
	if strings.TrimSpace(req.TherapistID) == "" || !ok {
		return models.Therapist{}, MsgSelectTherapist
	}
	if !therapist.HasSlot(strings.TrimSpace(req.TimeSlot)) {
		return therapist, MsgSelectSlot
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		return therapist, MsgSelectDate
	}
	now := w.now()
	day, err := time.ParseInLocation(models.DateLayout, date, now.Location())
	if err != nil {
		return therapist, MsgBadDate
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return therapist, MsgPastDate
	}
	if !util.ValidEmail(req.RequesterEmail) {
		return therapist, MsgBadEmail
	}
	return therapist, ""
}

// Schedule validates req, records the appointment and notifies the therapist then
// the requester. A notification failure never undoes the booking.
func (w *Workflow) Schedule(ctx context.Context, s *session.State, req Request) Result {
	therapist, reason := w.Validate(req)
	if reason != "" {
		return Result{Status: StatusRejected, Message: reason}
	}

	appt := models.Appointment{
		ID:             w.newID(),
		SessionID:      s.ID,
		TherapistID:    therapist.Name,
		TimeSlot:       strings.TrimSpace(req.TimeSlot),
		Date:           strings.TrimSpace(req.Date),
		RequesterEmail: strings.TrimSpace(req.RequesterEmail),
		Note:           req.Note,
		CreatedAt:      w.now(),
	}
	s.Appointments = append(s.Appointments, appt)
	if w.recorder != nil {
		if err := w.recorder.AddAppointment(appt); err != nil {
			slog.Error("Workflow.Schedule: failed to record appointment", "session_id", s.ID, "id", appt.ID, "error", err)
		}
	}

	booked := fmt.Sprintf("Appointment booked with %s on %s at %s.", appt.TherapistID, appt.Date, appt.TimeSlot)
	payloads := []models.Notification{
		TherapistNotification(therapist, appt, s.Transcript),
		RequesterNotification(therapist, appt),
	}

	var err error
	if w.dispatcher == nil {
		err = models.ErrNoRoute
	} else {
		_, err = notify.SendAll(ctx, w.dispatcher, payloads...)
	}
	if err == nil {
		slog.Info("Workflow.Schedule: appointment booked", "session_id", s.ID, "therapist", appt.TherapistID, "date", appt.Date)
		return Result{Status: StatusBooked, Message: booked, Appointment: &appt}
	}

	w.queueFailure(s, payloads, err)
	msg := fmt.Sprintf("%s Notifications from %s could not be sent. Please email %s with your details (date: %s, time: %s, note: %s) and check %s for confirmation (spam/junk).",
		booked, w.fromAddress, therapist.ContactEmail, appt.Date, appt.TimeSlot, appt.Note, appt.RequesterEmail)
	return Result{Status: StatusDegraded, Message: msg, Appointment: &appt}
}

func (w *Workflow) queueFailure(s *session.State, payloads []models.Notification, err error) {
	failed := models.FailedNotification{
		ID:        w.newID(),
		SessionID: s.ID,
		Kind:      models.NotificationKindAppointment,
		Payloads:  payloads,
		Error:     err.Error(),
		CreatedAt: w.now(),
	}
	s.FailedNotifications = append(s.FailedNotifications, failed)
	slog.Warn("Workflow.Schedule: notification dispatch failed, queued for follow-up", "session_id", s.ID, "id", failed.ID, "error", err)
	if w.recorder != nil {
		if rerr := w.recorder.AddFailedNotification(failed); rerr != nil {
			slog.Error("Workflow.Schedule: failed to record failed notification", "id", failed.ID, "error", rerr)
		}
	}
}

// TherapistNotification builds the therapist's booking notice, including the chat transcript.
func TherapistNotification(t models.Therapist, a models.Appointment, transcript []models.Turn) models.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", t.Name)
	b.WriteString("You have a new appointment:\n")
	fmt.Fprintf(&b, "- Date: %s\n- Time: %s\n- Client Email: %s\n- Note: %s\n", a.Date, a.TimeSlot, a.RequesterEmail, a.Note)
	fmt.Fprintf(&b, "- Therapist Details:\n  - Specialty: %s\n  - Email: %s\n", t.Specialty, t.ContactEmail)
	b.WriteString("- Chat History:\n")
	for _, line := range models.RenderTranscript(transcript) {
		speaker := "You"
		if line.Role == models.RoleAssistant {
			speaker = "Healora"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, line.Text)
	}
	b.WriteString("\nPlease confirm with the client.\n\nBest,\nHealora\n")
	return models.Notification{Recipient: t.ContactEmail, Subject: "New Appointment", Body: b.String()}
}

// RequesterNotification builds the requester's booking confirmation.
func RequesterNotification(t models.Therapist, a models.Appointment) models.Notification {
	body := fmt.Sprintf("Dear User,\n\nYour appointment is booked:\n- Therapist: %s\n- Specialty: %s\n- Email: %s\n- Date: %s\n- Time: %s\n- Note: %s\n\nExpect a confirmation from %s.\n\nBest,\nHealora\n",
		t.Name, t.Specialty, t.ContactEmail, a.Date, a.TimeSlot, a.Note, t.Name)
	return models.Notification{Recipient: a.RequesterEmail, Subject: "Appointment Confirmation", Body: body}
}
