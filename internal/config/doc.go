// Package config handles configuration loading for coven-roster.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Keys that a file leaves out keep the values from Default(), so a
// config file only needs to name what it changes.
//
// # Configuration File
//
// Locations (in order):
//
//  1. The --config flag
//  2. Path from COVEN_ROSTER_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/coven/roster.yaml (~/.config/coven/roster.yaml)
//
// A missing file at the third location is not an error.
//
// # Environment Variable Expansion
//
//	database:
//	  uri: "sqlite:///${COVEN_DATA}/roster.db"
//
// Syntax: ${VAR_NAME}. Unset variables expand to an empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	database:
//	  statement_timeout: "30s"
//	  busy_timeout: "5s"
//
// # Example (YAML)
//
//	database:
//	  uri: "sqlite:///roster.db"
//	  statement_timeout: "30s"
//	logging:
//	  level: "debug"
//	  format: "json"
//	display:
//	  truncate: 60
//	  color: false
//
// # Example (TOML)
//
//	[database]
//	uri = "sqlite3:///var/lib/coven/roster.db"
//
//	[logging]
//	level = "warn"
package config
