// Package store provides the audit record backends for Healora.
//
// Session state lives in memory; the store keeps a durable record of booked
// appointments, logged moods and failed notifications for operator follow-up.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BTreeMap/Healora/internal/models"
)

// Store is the audit record shared by all sessions.
type Store interface {
	AddAppointment(a models.Appointment) error
	ListAppointments() ([]models.Appointment, error)
	AddMoodEntry(e models.MoodEntry) error
	ListMoodEntries(sessionID string) ([]models.MoodEntry, error)
	AddFailedNotification(f models.FailedNotification) error
	ListFailedNotifications() ([]models.FailedNotification, error)
	Close() error
}

// DSN types returned by DetectDSNType.
const (
	DSNTypePostgres = "postgres"
	DSNTypeSQLite   = "sqlite3"
)

// Driver names accepted by WithDriver.
const (
	DriverSQLite3  = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverSQLite   = "sqlite"  // modernc.org/sqlite (pure Go)
	DriverPostgres = "postgres"
)

// Opts holds configuration options for store backends.
type Opts struct {
	DSN    string
	Driver string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the connection string of a PostgreSQL store.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Driver = DriverPostgres
	}
}

// WithDriver selects the database/sql driver.
func WithDriver(driver string) Option {
	return func(o *Opts) {
		o.Driver = driver
	}
}

// DetectDSNType classifies a connection string as PostgreSQL or SQLite.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return DSNTypePostgres
	}
	if !strings.HasPrefix(d, "file:") && strings.Contains(d, "=") && strings.Contains(d, " ") {
		return DSNTypePostgres
	}
	if strings.HasPrefix(d, "host=") || strings.HasPrefix(d, "user=") || strings.HasPrefix(d, "dbname=") {
		return DSNTypePostgres
	}
	return DSNTypeSQLite
}

// Open builds the backend selected by opts. An empty DSN yields an in-memory store.
func Open(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return NewInMemoryStore(), nil
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DetectDSNType(cfg.DSN)
	}
	switch driver {
	case DriverPostgres:
		return NewPostgresStore(opts...)
	case DriverSQLite3, DriverSQLite:
		return NewSQLiteStore(append(opts, WithDriver(driver))...)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// InMemoryStore keeps records for the process lifetime.
type InMemoryStore struct {
	mu                  sync.RWMutex
	appointments        []models.Appointment
	moods               []models.MoodEntry
	failedNotifications []models.FailedNotification
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddAppointment(a models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = append(s.appointments, a)
	return nil
}

func (s *InMemoryStore) ListAppointments() ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Appointment(nil), s.appointments...), nil
}

func (s *InMemoryStore) AddMoodEntry(e models.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods = append(s.moods, e)
	return nil
}

// ListMoodEntries returns entries for sessionID, or all entries when it is empty.
func (s *InMemoryStore) ListMoodEntries(sessionID string) ([]models.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MoodEntry
	for _, e := range s.moods {
		if sessionID == "" || e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *InMemoryStore) AddFailedNotification(f models.FailedNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.Payloads = append([]models.Notification(nil), f.Payloads...)
	s.failedNotifications = append(s.failedNotifications, f)
	return nil
}

func (s *InMemoryStore) ListFailedNotifications() ([]models.FailedNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FailedNotification(nil), s.failedNotifications...), nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
