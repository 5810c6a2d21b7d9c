package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/BTreeMap/Healora/internal/models"
)

const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists records in SQLite through either the cgo or the pure-Go driver.
type SQLiteStore struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) a SQLite database. The parent directory is
// created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "", "driver", cfg.Driver)

	dsn := cfg.DSN
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	driver := cfg.Driver
	if driver == "" || driver == DSNTypeSQLite {
		driver = DriverSQLite3
	}
	if driver != DriverSQLite3 && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported SQLite driver %q", driver)
	}

	if path := sqlitePath(dsn); path != "" && path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			slog.Error("Failed to create database directory", "error", err, "dir", dir)
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "driver", driver)
	return &SQLiteStore{db: db, driver: driver}, nil
}

// sqlitePath strips the "file:" prefix and query string from a SQLite DSN.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func (s *SQLiteStore) AddAppointment(a models.Appointment) error {
	_, err := s.db.Exec(
		`INSERT INTO appointments (id, session_id, therapist_id, time_slot, date, requester_email, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, nilIfEmpty(a.SessionID), a.TherapistID, a.TimeSlot, a.Date, a.RequesterEmail, nilIfEmpty(a.Note), formatTime(a.CreatedAt),
	)
	if err != nil {
		slog.Error("SQLiteStore AddAppointment failed", "error", err, "id", a.ID)
		return fmt.Errorf("failed to insert appointment %s: %w", a.ID, err)
	}
	slog.Debug("SQLiteStore AddAppointment succeeded", "id", a.ID, "therapist", a.TherapistID)
	return nil
}

func (s *SQLiteStore) ListAppointments() ([]models.Appointment, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, therapist_id, time_slot, date, requester_email, note, created_at
		 FROM appointments ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		a, err := scanAppointmentText(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointment rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) AddMoodEntry(e models.MoodEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO mood_entries (session_id, mood, logged_at) VALUES (?, ?, ?)`,
		nilIfEmpty(e.SessionID), string(e.Mood), formatTime(e.Timestamp),
	)
	if err != nil {
		slog.Error("SQLiteStore AddMoodEntry failed", "error", err, "session_id", e.SessionID)
		return fmt.Errorf("failed to insert mood entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMoodEntries(sessionID string) ([]models.MoodEntry, error) {
	query := `SELECT session_id, mood, logged_at FROM mood_entries`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY logged_at ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mood entries: %w", err)
	}
	defer rows.Close()

	var out []models.MoodEntry
	for rows.Next() {
		var e models.MoodEntry
		var sid sql.NullString
		var mood, loggedAt string
		if err := rows.Scan(&sid, &mood, &loggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mood entry row: %w", err)
		}
		ts, err := parseTime(loggedAt)
		if err != nil {
			return nil, err
		}
		e.SessionID = sid.String
		e.Mood = models.Mood(mood)
		e.Timestamp = ts
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mood entry rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) AddFailedNotification(f models.FailedNotification) error {
	payload, err := encodePayloads(f.Payloads)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO failed_notifications (id, session_id, kind, payload_json, last_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, nilIfEmpty(f.SessionID), string(f.Kind), payload, nilIfEmpty(f.Error), formatTime(f.CreatedAt),
	)
	if err != nil {
		slog.Error("SQLiteStore AddFailedNotification failed", "error", err, "id", f.ID)
		return fmt.Errorf("failed to insert failed notification %s: %w", f.ID, err)
	}
	slog.Debug("SQLiteStore AddFailedNotification succeeded", "id", f.ID, "kind", f.Kind)
	return nil
}

func (s *SQLiteStore) ListFailedNotifications() ([]models.FailedNotification, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, kind, payload_json, last_error, created_at
		 FROM failed_notifications ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed notifications: %w", err)
	}
	defer rows.Close()

	var out []models.FailedNotification
	for rows.Next() {
		f, err := scanFailedNotification(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate failed notification rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
