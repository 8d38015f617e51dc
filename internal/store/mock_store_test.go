// ABOUTME: Unit tests for MockStore to ensure behavior matches SQLiteStore
// ABOUTME: Focuses on reconnect counting, repeated task uids, copy semantics and injected failures

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_ResolveSession(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	sess, created, err := store.ResolveSession(ctx, &Session{UID: "agent-1", Online: true, Platform: "linux"}, now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), sess.Sessions)
	assert.Equal(t, int64(1), sess.ID)

	later := now.Add(time.Minute)
	sess, created, err = store.ResolveSession(ctx, &Session{UID: "agent-1", Platform: "darwin"}, later)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(2), sess.Sessions)
	assert.Equal(t, "linux", sess.Platform, "reconnect must not refresh descriptive fields")
	assert.True(t, later.Equal(sess.LastOnline))
}

func TestMockStore_ReturnsCopies(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	sess, _, err := store.ResolveSession(ctx, &Session{UID: "agent-1"}, time.Now())
	require.NoError(t, err)
	sess.Platform = "mutated"

	got, err := store.GetSession(ctx, ByUID("agent-1"))
	require.NoError(t, err)
	assert.Empty(t, got.Platform)
}

func TestMockStore_Locators(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	created, _, err := store.ResolveSession(ctx, &Session{UID: "agent-1"}, time.Now())
	require.NoError(t, err)

	byRow, err := store.GetSession(ctx, ByRowID(created.ID))
	require.NoError(t, err)
	assert.Equal(t, "agent-1", byRow.UID)

	_, err = store.GetSession(ctx, ByRowID(99))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.SetStatus(ctx, ByUID("missing"), true, time.Now()), ErrNotFound)
}

func TestMockStore_CreateTask_SameUIDTwice(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.CreateTask(ctx, &Task{UID: "t1", Session: "a", Task: "whoami"}))
	require.NoError(t, store.CreateTask(ctx, &Task{UID: "t1", Session: "a", Task: "whoami"}))

	ok, err := store.CompleteTask(ctx, "t1", "root", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.False(t, task.Pending())
	}
}

func TestMockStore_CompleteTask(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.CreateTask(ctx, &Task{UID: "t1", Session: "a", Task: "whoami"}))

	ok, err := store.CompleteTask(ctx, "t1", "root", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CompleteTask(ctx, "t1", "again", time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "completed tasks are not overwritten")

	ok, err = store.CompleteTask(ctx, "unknown", "x", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	task, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "root", *task.Result)
}

func TestMockStore_InjectedError(t *testing.T) {
	store := NewMockStore()
	store.Err = errors.New("disk full")
	ctx := context.Background()

	_, _, err := store.ResolveSession(ctx, &Session{UID: "agent-1"}, time.Now())
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "resolve session", storeErr.Op)

	_, err = store.ListTasks(ctx)
	assert.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "list tasks", storeErr.Op)
}
