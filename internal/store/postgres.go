package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/BTreeMap/Healora/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		db.Close()
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddAppointment(a models.Appointment) error {
	_, err := s.db.Exec(
		`INSERT INTO appointments (id, session_id, therapist_id, time_slot, date, requester_email, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, nilIfEmpty(a.SessionID), a.TherapistID, a.TimeSlot, a.Date, a.RequesterEmail, nilIfEmpty(a.Note), a.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore AddAppointment failed", "error", err, "id", a.ID)
		return fmt.Errorf("failed to insert appointment %s: %w", a.ID, err)
	}
	slog.Debug("PostgresStore AddAppointment succeeded", "id", a.ID, "therapist", a.TherapistID)
	return nil
}

func (s *PostgresStore) ListAppointments() ([]models.Appointment, error) {
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
		a, err := scanAppointment(rows)
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

func (s *PostgresStore) AddMoodEntry(e models.MoodEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO mood_entries (session_id, mood, logged_at) VALUES ($1, $2, $3)`,
		nilIfEmpty(e.SessionID), string(e.Mood), e.Timestamp,
	)
	if err != nil {
		slog.Error("PostgresStore AddMoodEntry failed", "error", err, "session_id", e.SessionID)
		return fmt.Errorf("failed to insert mood entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMoodEntries(sessionID string) ([]models.MoodEntry, error) {
	query := `SELECT session_id, mood, logged_at FROM mood_entries`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = $1`
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
		var mood string
		if err := rows.Scan(&sid, &mood, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan mood entry row: %w", err)
		}
		e.SessionID = sid.String
		e.Mood = models.Mood(mood)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mood entry rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddFailedNotification(f models.FailedNotification) error {
	payload, err := encodePayloads(f.Payloads)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO failed_notifications (id, session_id, kind, payload_json, last_error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, nilIfEmpty(f.SessionID), string(f.Kind), payload, nilIfEmpty(f.Error), f.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore AddFailedNotification failed", "error", err, "id", f.ID)
		return fmt.Errorf("failed to insert failed notification %s: %w", f.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListFailedNotifications() ([]models.FailedNotification, error) {
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
		f, err := scanFailedNotification(rows, false)
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
