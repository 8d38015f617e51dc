// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "roster.yaml", `
database:
  uri: "sqlite:///data/roster.db"
  statement_timeout: "45s"
  busy_timeout: "2s"

logging:
  level: "debug"
  format: "json"

display:
  truncate: 60
  indent: 2
  color: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.URI != "sqlite:///data/roster.db" {
		t.Errorf("Database.URI = %q, want %q", cfg.Database.URI, "sqlite:///data/roster.db")
	}
	if cfg.Database.StatementTimeout != 45*time.Second {
		t.Errorf("Database.StatementTimeout = %v, want %v", cfg.Database.StatementTimeout, 45*time.Second)
	}
	if cfg.Database.BusyTimeout != 2*time.Second {
		t.Errorf("Database.BusyTimeout = %v, want %v", cfg.Database.BusyTimeout, 2*time.Second)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
	if cfg.Display.Truncate != 60 || cfg.Display.Indent != 2 || cfg.Display.Color {
		t.Errorf("Display = %+v, want truncate 60, indent 2, no color", cfg.Display)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "roster.toml", `
[database]
uri = "sqlite3:///var/lib/coven/roster.db"
statement_timeout = "1m"

[logging]
level = "warn"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.URI != "sqlite3:///var/lib/coven/roster.db" {
		t.Errorf("Database.URI = %q", cfg.Database.URI)
	}
	if cfg.Database.StatementTimeout != time.Minute {
		t.Errorf("Database.StatementTimeout = %v, want 1m", cfg.Database.StatementTimeout)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	// untouched keys keep their defaults
	if cfg.Database.BusyTimeout != 5*time.Second {
		t.Errorf("Database.BusyTimeout = %v, want default 5s", cfg.Database.BusyTimeout)
	}
	if cfg.Display.Truncate != 40 {
		t.Errorf("Display.Truncate = %d, want default 40", cfg.Display.Truncate)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "roster.yaml", "logging:\n  level: error\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	def := Default()
	if cfg.Database.URI != def.Database.URI {
		t.Errorf("Database.URI = %q, want default %q", cfg.Database.URI, def.Database.URI)
	}
	if cfg.Database.StatementTimeout != def.Database.StatementTimeout {
		t.Errorf("StatementTimeout = %v, want default %v", cfg.Database.StatementTimeout, def.Database.StatementTimeout)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want default text", cfg.Logging.Format)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_ROSTER_DIR", "/srv/coven")

	path := writeConfig(t, "roster.yaml", `
database:
  uri: "sqlite:///${TEST_ROSTER_DIR}/roster.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.URI != "sqlite:////srv/coven/roster.db" {
		t.Errorf("Database.URI = %q, want %q", cfg.Database.URI, "sqlite:////srv/coven/roster.db")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "invalid duration",
			file:    "roster.yaml",
			content: "database:\n  statement_timeout: \"soon\"\n",
			wantErr: "statement_timeout",
		},
		{
			name:    "malformed yaml",
			file:    "roster.yaml",
			content: "database: [unclosed\n",
			wantErr: "parsing config file",
		},
		{
			name:    "malformed toml",
			file:    "roster.toml",
			content: "[database\nuri = 1\n",
			wantErr: "parsing config file",
		},
		{
			name:    "empty uri",
			file:    "roster.yaml",
			content: "database:\n  uri: \"\"\n",
			wantErr: "database.uri is required",
		},
		{
			name:    "unknown log level",
			file:    "roster.yaml",
			content: "logging:\n  level: \"loud\"\n",
			wantErr: "logging.level",
		},
		{
			name:    "unknown log format",
			file:    "roster.yaml",
			content: "logging:\n  format: \"xml\"\n",
			wantErr: "logging.format",
		},
		{
			name:    "negative truncate",
			file:    "roster.yaml",
			content: "display:\n  truncate: -1\n",
			wantErr: "display.truncate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadDefault_Precedence(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv(EnvConfigPath, "")

	// nothing at the default location
	cfg, path, err := LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty for defaults", path)
	}
	if cfg.Database.URI != "roster.db" {
		t.Errorf("Database.URI = %q, want default", cfg.Database.URI)
	}

	// default location
	if err := os.MkdirAll(filepath.Join(xdg, "coven"), 0o755); err != nil {
		t.Fatal(err)
	}
	defPath := filepath.Join(xdg, "coven", "roster.yaml")
	if err := os.WriteFile(defPath, []byte("database:\n  uri: from-xdg.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, path, err = LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	if path != defPath || cfg.Database.URI != "from-xdg.db" {
		t.Errorf("got %q from %q, want from-xdg.db from %q", cfg.Database.URI, path, defPath)
	}

	// environment beats default location
	envPath := writeConfig(t, "env.yaml", "database:\n  uri: from-env.db\n")
	t.Setenv(EnvConfigPath, envPath)
	cfg, _, err = LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	if cfg.Database.URI != "from-env.db" {
		t.Errorf("Database.URI = %q, want from-env.db", cfg.Database.URI)
	}

	// flag beats environment
	flagPath := writeConfig(t, "flag.toml", "[database]\nuri = \"from-flag.db\"\n")
	cfg, path, err = LoadDefault(flagPath)
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	if path != flagPath || cfg.Database.URI != "from-flag.db" {
		t.Errorf("got %q from %q, want from-flag.db", cfg.Database.URI, path)
	}

	// an explicit path must exist
	if _, _, err := LoadDefault(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
