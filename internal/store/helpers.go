package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BTreeMap/Healora/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func encodePayloads(payloads []models.Notification) (string, error) {
	data, err := json.Marshal(payloads)
	if err != nil {
		return "", fmt.Errorf("failed to marshal notification payloads: %w", err)
	}
	return string(data), nil
}

func decodePayloads(raw string) ([]models.Notification, error) {
	var payloads []models.Notification
	if raw == "" {
		return payloads, nil
	}
	if err := json.Unmarshal([]byte(raw), &payloads); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification payloads: %w", err)
	}
	return payloads, nil
}

// SQLite stores timestamps as RFC 3339 text so both drivers read them back identically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func scanAppointmentText(row rowScanner) (models.Appointment, error) {
	var a models.Appointment
	var sessionID, note sql.NullString
	var createdAt string
	if err := row.Scan(&a.ID, &sessionID, &a.TherapistID, &a.TimeSlot, &a.Date, &a.RequesterEmail, &note, &createdAt); err != nil {
		return a, fmt.Errorf("scan appointment failed: %w", err)
	}
	a.SessionID = sessionID.String
	a.Note = note.String
	t, err := parseTime(createdAt)
	if err != nil {
		return a, err
	}
	a.CreatedAt = t
	return a, nil
}

func scanAppointment(row rowScanner) (models.Appointment, error) {
	var a models.Appointment
	var sessionID, note sql.NullString
	if err := row.Scan(&a.ID, &sessionID, &a.TherapistID, &a.TimeSlot, &a.Date, &a.RequesterEmail, &note, &a.CreatedAt); err != nil {
		return a, fmt.Errorf("scan appointment failed: %w", err)
	}
	a.SessionID = sessionID.String
	a.Note = note.String
	return a, nil
}

func scanFailedNotification(row rowScanner, textTime bool) (models.FailedNotification, error) {
	var f models.FailedNotification
	var sessionID, payloadJSON, lastError sql.NullString
	var kind string
	var err error
	if textTime {
		var createdAt string
		err = row.Scan(&f.ID, &sessionID, &kind, &payloadJSON, &lastError, &createdAt)
		if err == nil {
			f.CreatedAt, err = parseTime(createdAt)
		}
	} else {
		err = row.Scan(&f.ID, &sessionID, &kind, &payloadJSON, &lastError, &f.CreatedAt)
	}
	if err != nil {
		return f, fmt.Errorf("scan failed notification failed: %w", err)
	}
	f.SessionID = sessionID.String
	f.Kind = models.NotificationKind(kind)
	f.Error = lastError.String
	f.Payloads, err = decodePayloads(payloadJSON.String)
	return f, err
}
