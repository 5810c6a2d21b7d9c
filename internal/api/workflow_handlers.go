package api

import (
	"log/slog"
	"net/http"

	"github.com/BTreeMap/Healora/internal/emergency"
	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/scheduling"
	"github.com/BTreeMap/Healora/internal/session"
)

type confirmEmergencyRequest struct {
	Answer string `json:"answer"`
}

// scheduleAppointmentHandler handles POST /sessions/{id}/appointments
func (s *Server) scheduleAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var req scheduling.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	var res scheduling.Result
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		res = s.svc.Scheduling.Schedule(r.Context(), st, req)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}

	switch res.Status {
	case scheduling.StatusRejected:
		slog.Debug("Server.scheduleAppointmentHandler: request rejected", "reason", res.Message)
		writeJSONResponse(w, http.StatusUnprocessableEntity, models.Rejected(res.Message, nil))
	case scheduling.StatusDegraded:
		writeJSONResponse(w, http.StatusCreated, models.RecordedWithMessage(res.Message, res.Appointment))
	default:
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage(res.Message, res.Appointment))
	}
}

// requestEmergencyHandler handles POST /sessions/{id}/emergency
func (s *Server) requestEmergencyHandler(w http.ResponseWriter, r *http.Request) {
	var req emergency.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	var res emergency.Result
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		res = s.svc.Emergency.Request(st, req)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	if res.Status == emergency.StatusRejected {
		writeJSONResponse(w, http.StatusUnprocessableEntity, models.Rejected(res.Message, nil))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(res.Message, res))
}

// confirmEmergencyHandler handles POST /sessions/{id}/emergency/confirm
func (s *Server) confirmEmergencyHandler(w http.ResponseWriter, r *http.Request) {
	var req confirmEmergencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var res emergency.Result
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		res = s.svc.Emergency.Confirm(r.Context(), st, req.Answer)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}

	switch res.Status {
	case emergency.StatusRejected:
		writeJSONResponse(w, http.StatusUnprocessableEntity, models.Rejected(res.Message, res))
	case emergency.StatusFailed:
		writeJSONResponse(w, http.StatusOK, models.RecordedWithMessage(res.Message, res))
	default:
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(res.Message, res))
	}
}

// sessionFailedNotificationsHandler handles GET /sessions/{id}/failed-notifications
func (s *Server) sessionFailedNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	var failed []models.FailedNotification
	err := s.svc.Sessions.Do(r.PathValue("id"), func(st *session.State) error {
		failed = append([]models.FailedNotification{}, st.FailedNotifications...)
		return nil
	})
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(failed))
}

// failedNotificationsHandler handles GET /admin/failed-notifications
func (s *Server) failedNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store == nil {
		writeJSONResponse(w, http.StatusOK, models.Success([]models.FailedNotification{}))
		return
	}
	failed, err := s.svc.Store.ListFailedNotifications()
	if err != nil {
		slog.Error("Server.failedNotificationsHandler: failed to list failed notifications", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list failed notifications"))
		return
	}
	if failed == nil {
		failed = []models.FailedNotification{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(failed))
}
