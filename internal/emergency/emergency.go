// Package emergency implements the two-phase emergency meeting escalation:
// a validated request creates a pending meeting, and a yes/no answer either
// alerts the emergency contact or cancels it.
//
// Only "yes" and "no" settle a pending meeting. Any other answer is rejected
// with MsgAnswerYesNo and the meeting stays pending instead of being
// cancelled. When no contact address is configured the
// alert goes to the selected therapist's directory address.
package emergency

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/Healora/internal/catalog"
	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/notify"
	"github.com/BTreeMap/Healora/internal/session"
	"github.com/BTreeMap/Healora/internal/util"
)

// MeetingBaseURL prefixes every generated meeting link.
const MeetingBaseURL = "https://meet.google.com/"

// Age bounds accepted by Request.
const (
	MinAge = 1
	MaxAge = 130
)

// User-facing messages.
const (
	MsgSelectTherapist = "Please select a therapist."
	MsgEnterName       = "Please enter your name."
	MsgSelectGender    = "Please select your gender."
	MsgEnterAge        = "Please enter your age."
	MsgInvalidAge      = "Please enter a valid age (1-130)."
	MsgBadEmail        = "Please enter a valid email address."
	MsgNoPending       = "No emergency meeting requested."
	MsgCancelled       = "Emergency meeting cancelled."
	MsgAnswerYesNo     = "Please answer yes or no."
)

// Status is the outcome of an emergency workflow step.
type Status string

const (
	StatusRejected  Status = "rejected"
	StatusRequested Status = "requested"
	StatusNoPending Status = "no_pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Request holds the emergency form.
type Request struct {
	TherapistID    string `json:"therapist"`
	Name           string `json:"name"`
	Gender         string `json:"gender"`
	Age            string `json:"age"`
	RequesterEmail string `json:"email"`
}

// Result reports the step outcome.
type Result struct {
	Status      Status `json:"status"`
	Message     string `json:"message"`
	MeetingLink string `json:"meeting_link,omitempty"`
}

// Recorder mirrors failed notifications into an audit store.
type Recorder interface {
	AddFailedNotification(f models.FailedNotification) error
}

// Workflow drives the Idle -> Requested -> Idle state machine held in session state.
type Workflow struct {
	catalog    *catalog.Catalog
	dispatcher notify.Dispatcher
	recorder   Recorder
	contact    string
	now        func() time.Time
	newLink    func() string
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithRecorder mirrors failed alerts into an audit store.
func WithRecorder(r Recorder) Option {
	return func(w *Workflow) {
		w.recorder = r
	}
}

// WithContactAddress sets the emergency contact that receives alerts. When unset,
// the selected therapist's contact address is used.
func WithContactAddress(addr string) Option {
	return func(w *Workflow) {
		w.contact = strings.TrimSpace(addr)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// WithMeetingLinkGenerator overrides meeting link generation.
func WithMeetingLinkGenerator(gen func() string) Option {
	return func(w *Workflow) {
		w.newLink = gen
	}
}

// New creates an emergency workflow.
func New(cat *catalog.Catalog, d notify.Dispatcher, opts ...Option) *Workflow {
	w := &Workflow{
		catalog:    cat,
		dispatcher: d,
		now:        time.Now,
		newLink:    NewMeetingLink,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewMeetingLink returns a link of the form https://meet.google.com/xxx-xxxx-xxx.
func NewMeetingLink() string {
	return MeetingBaseURL + util.GenerateMeetingCode()
}

// Request validates the form and stores a pending meeting, replacing any earlier one.
func (w *Workflow) Request(s *session.State, req Request) Result {
	if reason := w.validate(req); reason != "" {
		return Result{Status: StatusRejected, Message: reason}
	}
	therapist, _ := w.catalog.Therapist(req.TherapistID)
	pending := &models.EmergencyRequest{
		TherapistID:    therapist.Name,
		RequesterName:  strings.TrimSpace(req.Name),
		Gender:         strings.TrimSpace(req.Gender),
		Age:            strings.TrimSpace(req.Age),
		RequesterEmail: strings.TrimSpace(req.RequesterEmail),
		MeetingLink:    w.newLink(),
		RequestedAt:    w.now(),
	}
	if s.PendingEmergency != nil {
		slog.Info("Workflow.Request: replacing pending emergency request", "session_id", s.ID)
	}
	s.PendingEmergency = pending
	slog.Info("Workflow.Request: emergency meeting requested", "session_id", s.ID, "therapist", pending.TherapistID)

	msg := fmt.Sprintf("**Emergency Meeting Requested**\n- Therapist: %s\n- Meeting Link: %s\n\nWould you like to start the meeting now?",
		pending.TherapistID, pending.MeetingLink)
	return Result{Status: StatusRequested, Message: msg, MeetingLink: pending.MeetingLink}
}

func (w *Workflow) validate(req Request) string {
	if _, ok := w.catalog.Therapist(req.TherapistID); strings.TrimSpace(req.TherapistID) == "" || !ok {
		return MsgSelectTherapist
	}
	if strings.TrimSpace(req.Name) == "" {
		return MsgEnterName
	}
	if strings.TrimSpace(req.Gender) == "" {
		return MsgSelectGender
	}
	age := strings.TrimSpace(req.Age)
	if age == "" {
		return MsgEnterAge
	}
	if n, err := strconv.Atoi(age); err != nil || n < MinAge || n > MaxAge {
		return MsgInvalidAge
	}
	if !util.ValidEmail(req.RequesterEmail) {
		return MsgBadEmail
	}
	return ""
}

// Confirm resolves the pending request. "yes" alerts the emergency contact, "no"
// cancels; both clear the request. Any other answer leaves it pending.
func (w *Workflow) Confirm(ctx context.Context, s *session.State, answer string) Result {
	pending := s.PendingEmergency
	if pending == nil {
		return Result{Status: StatusNoPending, Message: MsgNoPending}
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "no":
		s.PendingEmergency = nil
		slog.Info("Workflow.Confirm: emergency meeting cancelled", "session_id", s.ID)
		return Result{Status: StatusCancelled, Message: MsgCancelled}
	case "yes":
	default:
		return Result{Status: StatusRejected, Message: MsgAnswerYesNo, MeetingLink: pending.MeetingLink}
	}

	s.PendingEmergency = nil
	contact := w.contactFor(pending.TherapistID)
	alert := Alert(*pending, contact)

	var err error
	if w.dispatcher == nil {
		err = models.ErrNoRoute
	} else {
		err = w.dispatcher.Send(ctx, alert)
	}
	if err == nil {
		slog.Info("Workflow.Confirm: emergency alert sent", "session_id", s.ID, "therapist", pending.TherapistID)
		return Result{
			Status:      StatusSent,
			Message:     fmt.Sprintf("Emergency meeting alert sent to %s. Join the meeting at %s.", pending.TherapistID, pending.MeetingLink),
			MeetingLink: pending.MeetingLink,
		}
	}

	w.queueFailure(s, alert, err)
	return Result{
		Status: StatusFailed,
		Message: fmt.Sprintf("Failed to send emergency meeting alert to %s. Please contact %s directly with the meeting link: %s.",
			pending.TherapistID, contact, pending.MeetingLink),
		MeetingLink: pending.MeetingLink,
	}
}

func (w *Workflow) contactFor(therapistID string) string {
	if w.contact != "" {
		return w.contact
	}
	t, _ := w.catalog.Therapist(therapistID)
	return t.ContactEmail
}

func (w *Workflow) queueFailure(s *session.State, alert models.Notification, err error) {
	failed := models.FailedNotification{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		Kind:      models.NotificationKindEmergency,
		Payloads:  []models.Notification{alert},
		Error:     err.Error(),
		CreatedAt: w.now(),
	}
	s.FailedNotifications = append(s.FailedNotifications, failed)
	slog.Warn("Workflow.Confirm: emergency alert failed, queued for follow-up", "session_id", s.ID, "id", failed.ID, "error", err)
	if w.recorder != nil {
		if rerr := w.recorder.AddFailedNotification(failed); rerr != nil {
			slog.Error("Workflow.Confirm: failed to record failed notification", "id", failed.ID, "error", rerr)
		}
	}
}

// Alert builds the notification sent to the emergency contact.
func Alert(req models.EmergencyRequest, contact string) models.Notification {
	body := fmt.Sprintf("Dear %s,\n\nAn emergency meeting has been requested:\n- Client Name: %s\n- Gender: %s\n- Age: %s\n- Client Email: %s\n- Google Meet Link: %s\n\nPlease join the meeting as soon as possible.\n\nBest,\nHealora\n",
		req.TherapistID, req.RequesterName, req.Gender, req.Age, req.RequesterEmail, req.MeetingLink)
	return models.Notification{Recipient: contact, Subject: "Emergency Meeting Request", Body: body}
}
