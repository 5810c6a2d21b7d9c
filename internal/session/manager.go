package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/util"
)

// Opts holds configuration options for a Manager.
type Opts struct {
	Now   func() time.Time
	NewID func() string
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithClock overrides the time source used for activity tracking.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *Opts) {
		o.NewID = newID
	}
}

type entry struct {
	mu    sync.Mutex
	state *State
}

// Manager owns all live sessions. Each session is guarded by its own mutex so
// one action runs at a time per session while different sessions proceed in parallel.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
	newID    func() string
}

// NewManager creates an empty session manager.
func NewManager(opts ...Option) *Manager {
	cfg := Opts{
		Now:   time.Now,
		NewID: util.GenerateSessionID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		sessions: make(map[string]*entry),
		now:      cfg.Now,
		newID:    cfg.NewID,
	}
}

// Create starts a new session and returns its id.
func (m *Manager) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.newID()
	for _, exists := m.sessions[id]; exists; _, exists = m.sessions[id] {
		id = m.newID()
	}
	m.sessions[id] = &entry{state: NewState(id, m.now())}
	slog.Debug("Manager.Create: session created", "session_id", id)
	return id
}

// Do runs fn with exclusive access to the session's state.
func (m *Manager) Do(id string, fn func(*State) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	// The session may have been ended or reaped while waiting for the lock.
	if _, err := m.lookup(id); err != nil {
		return err
	}
	defer func() { e.state.LastActive = m.now() }()
	return fn(e.state)
}

// End removes a session. Any in-flight action finishes first.
func (m *Manager) End(id string) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	slog.Debug("Manager.End: session ended", "session_id", id)
	return nil
}

// Reap removes sessions idle for longer than idleFor and returns how many were removed.
// Sessions busy with an action are skipped.
func (m *Manager) Reap(idleFor time.Duration) int {
	cutoff := m.now().Add(-idleFor)

	m.mu.RLock()
	candidates := make(map[string]*entry, len(m.sessions))
	for id, e := range m.sessions {
		candidates[id] = e
	}
	m.mu.RUnlock()

	removed := 0
	for id, e := range candidates {
		if !e.mu.TryLock() {
			continue
		}
		if e.state.LastActive.Before(cutoff) {
			m.mu.Lock()
			delete(m.sessions, id)
			m.mu.Unlock()
			removed++
		}
		e.mu.Unlock()
	}
	if removed > 0 {
		slog.Info("Manager.Reap: removed idle sessions", "count", removed, "idle_for", idleFor)
	}
	return removed
}

// Exists reports whether id names a live session.
func (m *Manager) Exists(id string) bool {
	_, err := m.lookup(id)
	return err == nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, models.ErrSessionNotFound)
	}
	return e, nil
}
