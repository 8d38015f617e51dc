// ABOUTME: Configuration loading and parsing for coven-roster
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the default config path.
const EnvConfigPath = "COVEN_ROSTER_CONFIG"

// Config represents the complete coven-roster configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Display  DisplayConfig  `yaml:"display" toml:"display"`
}

// DatabaseConfig holds the backing store location and timeouts
type DatabaseConfig struct {
	URI string `yaml:"uri" toml:"uri"`

	StatementTimeout time.Duration `yaml:"-" toml:"-"`
	BusyTimeout      time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	StatementTimeoutRaw string `yaml:"statement_timeout" toml:"statement_timeout"`
	BusyTimeoutRaw      string `yaml:"busy_timeout" toml:"busy_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DisplayConfig tunes the diagnostic renderer
type DisplayConfig struct {
	Truncate int  `yaml:"truncate" toml:"truncate"`
	Indent   int  `yaml:"indent" toml:"indent"`
	Color    bool `yaml:"color" toml:"color"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			URI:                 "roster.db",
			StatementTimeout:    30 * time.Second,
			BusyTimeout:         5 * time.Second,
			StatementTimeoutRaw: "30s",
			BusyTimeoutRaw:      "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Display: DisplayConfig{
			Truncate: 40,
			Indent:   4,
			Color:    true,
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Keys missing from the file keep their Default() values.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDefault resolves the config path and loads it. An explicit path or
// COVEN_ROSTER_CONFIG must point at a readable file; a missing file at the
// default location yields Default().
func LoadDefault(explicit string) (*Config, string, error) {
	path := explicit
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}

	path = DefaultPath()
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), "", nil
	}
	return cfg, path, err
}

// DefaultPath returns $XDG_CONFIG_HOME/coven/roster.yaml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "coven", "roster.yaml")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URI) == "" {
		return fmt.Errorf("database.uri is required")
	}
	if c.Database.StatementTimeout < 0 {
		return fmt.Errorf("database.statement_timeout must not be negative")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}

	if c.Display.Truncate < 0 {
		return fmt.Errorf("display.truncate must not be negative")
	}
	if c.Display.Indent < 0 {
		return fmt.Errorf("display.indent must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Database.StatementTimeoutRaw != "" {
		cfg.Database.StatementTimeout, err = time.ParseDuration(cfg.Database.StatementTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing statement_timeout %q: %w", cfg.Database.StatementTimeoutRaw, err)
		}
	}

	if cfg.Database.BusyTimeoutRaw != "" {
		cfg.Database.BusyTimeout, err = time.ParseDuration(cfg.Database.BusyTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing busy_timeout %q: %w", cfg.Database.BusyTimeoutRaw, err)
		}
	}

	return nil
}
