// ABOUTME: Lifecycle tracker for agent sessions and dispatched tasks
// ABOUTME: Resolves identities, records reconnects, issues and completes tasks, flips online status

package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/coven-roster/internal/identity"
	"github.com/2389/coven-roster/internal/store"
)

// Tracker applies inbound reports to a store.Store.
type Tracker struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
	locks  *keyedMutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a Tracker backed by s.
func New(s store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  s,
		logger: slog.Default(),
		now:    time.Now,
		locks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "roster")
	return t
}

// SessionResult is the outcome of HandleSession.
type SessionResult struct {
	Session *store.Session
	New     bool
}

// Row returns the stored columns, plus "new": true for a first contact.
func (r *SessionResult) Row() map[string]any {
	row := r.Session.Row()
	if r.New {
		row["new"] = true
	}
	return row
}

// TaskReceipt echoes a task payload back to the caller. Issued and Completed
// are ctime strings. Persisted is false when a completion matched no pending
// task.
type TaskReceipt struct {
	UID       string
	Session   string
	Task      string
	Result    *string
	Issued    string
	Completed string
	Persisted bool
}

// Row returns the receipt as a response mapping. Empty fields are omitted.
func (r *TaskReceipt) Row() map[string]any {
	row := map[string]any{"uid": r.UID}
	if r.Session != "" {
		row["session"] = r.Session
	}
	if r.Task != "" {
		row["task"] = r.Task
	}
	if r.Result != nil {
		row["result"] = *r.Result
	}
	if r.Issued != "" {
		row["issued"] = r.Issued
	}
	if r.Completed != "" {
		row["completed"] = r.Completed
	}
	return row
}

// HandleSession resolves the session described by info, creating it on
// first contact and recording a reconnect otherwise. A missing uid is
// derived from public_ip and mac_address; if both are empty the payload is
// rejected.
func (t *Tracker) HandleSession(ctx context.Context, info HostInfo) (*SessionResult, error) {
	now := t.now().UTC()

	candidate := &store.Session{
		Online:     true,
		Joined:     now,
		LastOnline: now,
		Sessions:   1,
	}
	info.Attributes.ApplyTo(candidate)

	uid := info.UID
	if uid == "" {
		if candidate.PublicIP == "" && candidate.MACAddress == "" {
			return nil, &InvalidInputError{Reason: "uid, public_ip or mac_address is required"}
		}
		uid = identity.SessionUID(candidate.PublicIP, candidate.MACAddress)
	}
	candidate.UID = uid

	unlock := t.locks.Lock(uid)
	defer unlock()

	sess, created, err := t.store.ResolveSession(ctx, candidate, now)
	if err != nil {
		return nil, fmt.Errorf("resolving session %s: %w", uid, err)
	}

	if created {
		t.logger.Debug("new session", "uid", uid, "public_ip", sess.PublicIP, "platform", sess.Platform)
	} else {
		t.logger.Debug("session reconnected", "uid", uid, "sessions", sess.Sessions)
	}
	return &SessionResult{Session: sess, New: created}, nil
}

// UpdateSessionInfo overwrites the descriptive fields present in info on
// an existing session. The uid is never re-derived.
func (t *Tracker) UpdateSessionInfo(ctx context.Context, uid string, info HostInfo) (*store.Session, error) {
	if uid == "" {
		return nil, invalidField("uid", "is required")
	}

	unlock := t.locks.Lock(uid)
	defer unlock()

	sess, err := t.store.UpdateSessionAttributes(ctx, uid, info.Attributes)
	if err != nil {
		return nil, fmt.Errorf("updating session %s: %w", uid, err)
	}
	t.logger.Debug("session info updated", "uid", uid)
	return sess, nil
}

// HandleTask issues a task when p has no uid and records a result when it
// does.
func (t *Tracker) HandleTask(ctx context.Context, p TaskPayload) (*TaskReceipt, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Completion() {
		return t.completeTask(ctx, p)
	}
	return t.issueTask(ctx, p)
}

// IssueTask records a new task for session.
func (t *Tracker) IssueTask(ctx context.Context, session, task string) (*TaskReceipt, error) {
	return t.HandleTask(ctx, TaskPayload{Session: session, Task: task})
}

// CompleteTask records result on the pending task uid.
func (t *Tracker) CompleteTask(ctx context.Context, uid, result string) (*TaskReceipt, error) {
	if uid == "" {
		return nil, invalidField("uid", "is required to complete a task")
	}
	return t.HandleTask(ctx, TaskPayload{UID: uid, Result: &result})
}

func (t *Tracker) issueTask(ctx context.Context, p TaskPayload) (*TaskReceipt, error) {
	now := t.now().UTC().Truncate(time.Second)
	uid := identity.TaskUID(p.Session, p.Task, now)

	unlock := t.locks.Lock(uid)
	defer unlock()

	task := &store.Task{
		UID:     uid,
		Session: p.Session,
		Task:    p.Task,
		Issued:  now,
	}
	if err := t.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("issuing task to %s: %w", p.Session, err)
	}

	t.logger.Debug("task issued", "uid", uid, "session", p.Session)
	return &TaskReceipt{
		UID:       uid,
		Session:   p.Session,
		Task:      p.Task,
		Issued:    identity.Ctime(now),
		Persisted: true,
	}, nil
}

func (t *Tracker) completeTask(ctx context.Context, p TaskPayload) (*TaskReceipt, error) {
	now := t.now().UTC()

	unlock := t.locks.Lock(p.UID)
	defer unlock()

	var result string
	if p.Result != nil {
		result = *p.Result
	}

	updated, err := t.store.CompleteTask(ctx, p.UID, result, now)
	if err != nil {
		return nil, fmt.Errorf("completing task %s: %w", p.UID, err)
	}
	if updated {
		t.logger.Debug("task completed", "uid", p.UID)
	} else {
		t.logger.Warn("completion matched no pending task", "uid", p.UID)
	}

	return &TaskReceipt{
		UID:       p.UID,
		Session:   p.Session,
		Task:      p.Task,
		Result:    p.Result,
		Completed: identity.Ctime(now),
		Persisted: updated,
	}, nil
}

// SetStatus marks the located session online or offline. Going offline
// also stamps last_online. An unmatched locator returns store.ErrNotFound.
func (t *Tracker) SetStatus(ctx context.Context, loc store.Locator, online bool) error {
	if uid, ok := loc.UID(); ok {
		unlock := t.locks.Lock(uid)
		defer unlock()
	}

	if err := t.store.SetStatus(ctx, loc, online, t.now().UTC()); err != nil {
		return fmt.Errorf("setting status of %s: %w", loc, err)
	}
	t.logger.Debug("session status", "session", loc.String(), "online", online)
	return nil
}

// SetStatusByUID is SetStatus with a uid locator.
func (t *Tracker) SetStatusByUID(ctx context.Context, uid string, online bool) error {
	return t.SetStatus(ctx, store.ByUID(uid), online)
}

// SetStatusByRowID is SetStatus with a row id locator.
func (t *Tracker) SetStatusByRowID(ctx context.Context, id int64, online bool) error {
	return t.SetStatus(ctx, store.ByRowID(id), online)
}

// Exists reports whether a session with uid is stored.
func (t *Tracker) Exists(ctx context.Context, uid string) (bool, error) {
	_, err := t.store.GetSession(ctx, store.ByUID(uid))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up session %s: %w", uid, err)
	}
	return true, nil
}
