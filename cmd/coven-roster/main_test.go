// ABOUTME: Tests for CLI helpers: parameter parsing, logger setup and check-in end to end
// ABOUTME: Uses a temp-dir database so no user config or data is touched

package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-roster/internal/config"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"platform=linux", ":ip=1.2.3.4", "expr=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"platform": "linux", "ip": "1.2.3.4", "expr": "a=b"}, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)

	params, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestSetupLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, config.LoggingConfig{Level: "warn"})

	logger.Info("hidden")
	logger.With("component", "roster").WithGroup("task").Warn("no match", "uid", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "no match")
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "task.uid=")
	assert.Contains(t, out, "abc")
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, config.LoggingConfig{Level: "debug", Format: "json"})

	logger.Debug("hello", "n", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestCheckinAndCount(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvConfigPath, "")
	db := filepath.Join(t.TempDir(), "roster.db")
	ctx := context.Background()

	payload := `{"public_ip": "1.2.3.4", "mac_address": "AA:BB:CC:DD:EE:FF", "platform": "linux"}`
	require.NoError(t, runCheckin(ctx, []string{"--db", db, "--no-color"}, strings.NewReader(payload)))
	require.NoError(t, runCheckin(ctx, []string{"--db", db, "--no-color", "--payload", payload}, nil))

	common := commonFlags{database: db, noColor: true}
	var out bytes.Buffer
	a, err := openApp(common, &out)
	require.NoError(t, err)
	defer a.Close()

	n, err := a.facade.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	exists, err := a.tracker.Exists(ctx, "0a416c7143b744bf62c1f13f09d0de53")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCheckin_RejectsNonObject(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvConfigPath, "")
	db := filepath.Join(t.TempDir(), "roster.db")

	err := runCheckin(context.Background(), []string{"--db", db}, strings.NewReader(`[1, 2]`))
	assert.Error(t, err)
}

func TestTasks_FilterBySession(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvConfigPath, "")
	db := filepath.Join(t.TempDir(), "roster.db")
	ctx := context.Background()

	require.NoError(t, runTask(ctx, []string{"issue", "--db", db, "--no-color", "--session", "agent-1", "--task", "whoami"}))
	require.NoError(t, runTask(ctx, []string{"issue", "--db", db, "--no-color", "--session", "agent-2", "--task", "uname"}))
	require.NoError(t, runTasks(ctx, []string{"--db", db, "--no-color", "--session", "agent-1"}))

	a, err := openApp(commonFlags{database: db, noColor: true}, &bytes.Buffer{})
	require.NoError(t, err)
	defer a.Close()

	rows, err := a.facade.ListTasks(ctx, "agent-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "whoami", rows[0].Get("task"))
}
