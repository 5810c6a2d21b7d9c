package notify

import (
	"context"
	"sync"

	"github.com/BTreeMap/Healora/internal/models"
)

// MockDispatcher records notifications. When FailAt is >= 0, every attempt from
// that 0-based index onward returns Err.
type MockDispatcher struct {
	mu       sync.Mutex
	Sent     []models.Notification
	Attempts int
	FailAt   int
	Err      error
}

// NewMockDispatcher returns a dispatcher that always succeeds.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{FailAt: -1}
}

// NewFailingMockDispatcher returns a dispatcher that fails with err from attempt failAt onward.
func NewFailingMockDispatcher(failAt int, err error) *MockDispatcher {
	return &MockDispatcher{FailAt: failAt, Err: err}
}

func (m *MockDispatcher) Send(ctx context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt := m.Attempts
	m.Attempts++
	if m.FailAt >= 0 && attempt >= m.FailAt {
		return m.Err
	}
	m.Sent = append(m.Sent, n)
	return nil
}
