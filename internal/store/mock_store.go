// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject store failures

package store

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
// Setting Err makes every call fail with a StoreError wrapping it.
type MockStore struct {
	mu       sync.RWMutex
	sessions []*Session         // insertion order, mirrors row id order
	byUID    map[string]*Session
	tasks    []*Task
	nextID   int64
	nextTask int64

	Err error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		byUID: make(map[string]*Session),
	}
}

func (m *MockStore) fail(op string) error {
	if m.Err != nil {
		return &StoreError{Op: op, Err: m.Err}
	}
	return nil
}

func (m *MockStore) find(loc Locator) *Session {
	if loc.byRow {
		for _, s := range m.sessions {
			if s.ID == loc.rowID {
				return s
			}
		}
		return nil
	}
	return m.byUID[loc.uid]
}

// ResolveSession inserts or reconnects a session.
func (m *MockStore) ResolveSession(ctx context.Context, candidate *Session, now time.Time) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("resolve session"); err != nil {
		return nil, false, err
	}

	if existing, ok := m.byUID[candidate.UID]; ok {
		existing.Sessions++
		existing.Online = true
		existing.LastOnline = now.UTC()
		result := *existing
		return &result, false, nil
	}

	m.nextID++
	s := *candidate
	s.ID = m.nextID
	if s.Sessions <= 0 {
		s.Sessions = 1
	}
	m.sessions = append(m.sessions, &s)
	m.byUID[s.UID] = &s

	result := s
	return &result, true, nil
}

// UpdateSessionAttributes overwrites supplied attributes.
func (m *MockStore) UpdateSessionAttributes(ctx context.Context, uid string, attrs Attributes) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("update session attributes"); err != nil {
		return nil, err
	}

	s, ok := m.byUID[uid]
	if !ok {
		return nil, ErrNotFound
	}
	attrs.ApplyTo(s)
	result := *s
	return &result, nil
}

// GetSession retrieves a session.
func (m *MockStore) GetSession(ctx context.Context, loc Locator) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.fail("get session"); err != nil {
		return nil, err
	}

	s := m.find(loc)
	if s == nil {
		return nil, ErrNotFound
	}
	result := *s
	return &result, nil
}

// SetStatus marks a session online or offline.
func (m *MockStore) SetStatus(ctx context.Context, loc Locator, online bool, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("set status"); err != nil {
		return err
	}

	s := m.find(loc)
	if s == nil {
		return ErrNotFound
	}
	s.Online = online
	if !online {
		s.LastOnline = now.UTC()
	}
	return nil
}

// ListSessions returns copies of every session.
func (m *MockStore) ListSessions(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.fail("list sessions"); err != nil {
		return nil, err
	}

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

// ListSessionSummaries returns the summary projection of every session.
func (m *MockStore) ListSessionSummaries(ctx context.Context) ([]SessionSummary, error) {
	sessions, err := m.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	return out, nil
}

// CreateTask stores a new task.
func (m *MockStore) CreateTask(ctx context.Context, task *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("create task"); err != nil {
		return err
	}
	m.nextTask++
	task.ID = m.nextTask
	t := *task
	m.tasks = append(m.tasks, &t)
	return nil
}

// CompleteTask records a result on a pending task.
func (m *MockStore) CompleteTask(ctx context.Context, uid, result string, completed time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("complete task"); err != nil {
		return false, err
	}

	var updated bool
	for _, t := range m.tasks {
		if t.UID != uid || t.Completed != nil {
			continue
		}
		r := result
		c := completed.UTC()
		t.Result = &r
		t.Completed = &c
		updated = true
	}
	return updated, nil
}

// GetTask retrieves a task by uid.
func (m *MockStore) GetTask(ctx context.Context, uid string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.fail("get task"); err != nil {
		return nil, err
	}

	for _, t := range m.tasks {
		if t.UID == uid {
			result := *t
			return &result, nil
		}
	}
	return nil, ErrNotFound
}

// ListTasks returns copies of every task.
func (m *MockStore) ListTasks(ctx context.Context) ([]*Task, error) {
	return m.listTasks("list tasks", func(*Task) bool { return true })
}

// ListSessionTasks returns copies of the tasks issued to session.
func (m *MockStore) ListSessionTasks(ctx context.Context, session string) ([]*Task, error) {
	return m.listTasks("list session tasks", func(t *Task) bool { return t.Session == session })
}

func (m *MockStore) listTasks(op string, keep func(*Task) bool) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.fail(op); err != nil {
		return nil, err
	}

	var out []*Task
	for _, t := range m.tasks {
		if keep(t) {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)
