package api

import (
	"log/slog"
	"net/http"

	"github.com/BTreeMap/Healora/internal/compose"
	"github.com/BTreeMap/Healora/internal/journal"
	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/session"
)

type sessionView struct {
	SessionID        string                   `json:"session_id"`
	Transcript       []models.RenderedMessage `json:"transcript"`
	Conversations    []string                 `json:"conversations"`
	SelectedMood     models.Mood              `json:"selected_mood,omitempty"`
	Appointments     []models.Appointment     `json:"appointments,omitempty"`
	PendingEmergency *models.EmergencyRequest `json:"pending_emergency,omitempty"`
}

type sendMessageRequest struct {
	Message string `json:"message"`
	Mood    string `json:"mood"`
	Tone    string `json:"tone"`
	Region  string `json:"region"`
}

type sendMessageResult struct {
	Reply      string                   `json:"reply"`
	Transcript []models.RenderedMessage `json:"transcript"`
}

type conversationsResult struct {
	Archived      bool     `json:"archived"`
	Conversations []string `json:"conversations"`
}

type logMoodRequest struct {
	Mood string `json:"mood"`
}

func (s *Server) view(st *session.State) sessionView {
	v := sessionView{
		SessionID:     st.ID,
		Transcript:    st.Rendered(),
		Conversations: s.svc.Archiver.List(st),
		SelectedMood:  st.SelectedMood,
		Appointments:  append([]models.Appointment(nil), st.Appointments...),
	}
	if st.PendingEmergency != nil {
		pending := *st.PendingEmergency
		v.PendingEmergency = &pending
	}
	return v
}

// createSessionHandler handles POST /sessions
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := s.svc.Sessions.Create()
	slog.Info("Server.createSessionHandler: session created", "session_id", id)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]string{"session_id": id}))
}

// getSessionHandler handles GET /sessions/{id}
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	var v sessionView
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		v = s.view(st)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(v))
}

// endSessionHandler handles DELETE /sessions/{id}
func (s *Server) endSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Sessions.End(r.PathValue("id")); err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session ended", nil))
}

// sendMessageHandler handles POST /sessions/{id}/messages
func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var res sendMessageResult
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		res.Reply = s.svc.Composer.Compose(r.Context(), st, compose.Request{
			Message: req.Message,
			Mood:    req.Mood,
			Tone:    req.Tone,
			Region:  req.Region,
		})
		res.Transcript = st.Rendered()
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(res))
}

// clearHandler handles POST /sessions/{id}/clear
func (s *Server) clearHandler(w http.ResponseWriter, r *http.Request) {
	var v sessionView
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		s.svc.Archiver.Clear(st)
		v = s.view(st)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation cleared", v))
}

// startNewConversationHandler handles POST /sessions/{id}/conversations
func (s *Server) startNewConversationHandler(w http.ResponseWriter, r *http.Request) {
	var res conversationsResult
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		res.Archived = s.svc.Archiver.StartNew(st)
		res.Conversations = s.svc.Archiver.List(st)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(res))
}

// listConversationsHandler handles GET /sessions/{id}/conversations
func (s *Server) listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	var labels []string
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		labels = s.svc.Archiver.List(st)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(labels))
}

// viewConversationHandler handles GET /sessions/{id}/conversations/view?label=
func (s *Server) viewConversationHandler(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	var rendered []models.RenderedMessage
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		rendered = models.RenderTranscript(s.svc.Archiver.Load(st, label))
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rendered))
}

// logMoodHandler handles POST /sessions/{id}/moods
func (s *Server) logMoodHandler(w http.ResponseWriter, r *http.Request) {
	var req logMoodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var (
		msg string
		ok  bool
	)
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		msg, ok = s.svc.Journal.Log(st, req.Mood)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	if !ok {
		writeJSONResponse(w, http.StatusUnprocessableEntity, models.Rejected(msg, nil))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(msg, nil))
}

type trendsResult struct {
	journal.Report
	Summary string `json:"summary"`
}

// moodTrendsHandler handles GET /sessions/{id}/moods/trends
func (s *Server) moodTrendsHandler(w http.ResponseWriter, r *http.Request) {
	var (
		report journal.Report
		ok     bool
	)
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		report, ok = s.svc.Journal.Trends(st)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	if !ok {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(journal.MsgNoMoods, nil))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(trendsResult{Report: report, Summary: report.String()}))
}
