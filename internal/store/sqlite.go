// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite or mattn/go-sqlite3
// ABOUTME: Resolves the backing store location, creates the schema and scopes every call in a transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// DefaultLocation is used when no database location is configured.
const DefaultLocation = "roster.db"

const defaultBusyTimeout = 5 * time.Second

// Location is a resolved backing store address.
type Location struct {
	Driver string // "sqlite" (modernc) or "sqlite3" (mattn, cgo)
	DSN    string
}

// InMemory reports whether the location is a private in-memory database.
func (l Location) InMemory() bool {
	return l.DSN == ":memory:"
}

// ParseLocation resolves a connection URI or bare filesystem path.
//
//	roster.db, /var/lib/coven/roster.db  -> modernc sqlite file
//	sqlite:///roster.db, sqlite:////abs  -> modernc sqlite file
//	sqlite://, :memory:                  -> in-memory
//	sqlite3:///roster.db                 -> mattn/go-sqlite3 file
func ParseLocation(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		uri = DefaultLocation
	}
	if uri == ":memory:" {
		return Location{Driver: "sqlite", DSN: ":memory:"}, nil
	}

	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return Location{Driver: "sqlite", DSN: uri}, nil
	}

	var driver string
	switch strings.ToLower(scheme) {
	case "sqlite":
		driver = "sqlite"
	case "sqlite3":
		driver = "sqlite3"
	default:
		return Location{}, fmt.Errorf("unsupported database scheme %q", scheme)
	}

	// sqlite:///relative.db and sqlite:////absolute.db, as in SQLAlchemy URLs
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" || rest == ":memory:" {
		return Location{Driver: driver, DSN: ":memory:"}, nil
	}
	return Location{Driver: driver, DSN: rest}, nil
}

// Options tunes how the store connection is opened.
type Options struct {
	BusyTimeout time.Duration
}

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens the store at the given URI or path with default options.
func NewSQLiteStore(uri string) (*SQLiteStore, error) {
	return Open(uri, Options{})
}

// Open creates a store at the given URI or path.
// The schema is created if it doesn't exist and missing columns are added.
// Parent directories are created if needed.
func Open(uri string, opts Options) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, err
	}

	if !loc.InMemory() {
		dir := filepath.Dir(loc.DSN)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(loc.Driver, loc.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer: every call gets the one connection for the length of its
	// transaction. This also keeps an in-memory database alive between calls.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busy.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %s: %w", p, err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "driver", loc.Driver, "dsn", loc.DSN)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tbl_sessions (
			id            INTEGER PRIMARY KEY,
			uid           TEXT NOT NULL UNIQUE,
			online        INTEGER NOT NULL DEFAULT 0,
			joined        TEXT,
			last_online   TEXT,
			sessions      INTEGER NOT NULL DEFAULT 1,
			public_ip     TEXT,
			mac_address   TEXT,
			local_ip      TEXT,
			username      TEXT,
			administrator INTEGER NOT NULL DEFAULT 0,
			platform      TEXT,
			device        TEXT,
			architecture  TEXT,
			latitude      REAL,
			longitude     REAL,
			owner         TEXT
		);

		CREATE TABLE IF NOT EXISTS tbl_tasks (
			id        INTEGER PRIMARY KEY,
			uid       TEXT NOT NULL,
			session   TEXT NOT NULL,
			task      TEXT,
			result    TEXT,
			issued    TEXT,
			completed TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_uid ON tbl_tasks(uid);
		CREATE INDEX IF NOT EXISTS idx_tasks_session ON tbl_tasks(session);
	`

	_, err := s.db.Exec(schema)
	return err
}

// sessionColumns lists the columns added after the first release of the
// schema. Databases written by older builds may be missing some of them.
var sessionColumns = []struct {
	name string
	decl string
}{
	{"local_ip", "TEXT"},
	{"username", "TEXT"},
	{"administrator", "INTEGER NOT NULL DEFAULT 0"},
	{"platform", "TEXT"},
	{"device", "TEXT"},
	{"architecture", "TEXT"},
	{"latitude", "REAL"},
	{"longitude", "REAL"},
	{"owner", "TEXT"},
}

// runMigrations adds missing columns to existing databases.
// These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	for _, col := range sessionColumns {
		var exists int
		err := s.db.QueryRow(`SELECT 1 FROM pragma_table_info('tbl_sessions') WHERE name = ?`, col.name).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking %s column: %w", col.name, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf(`ALTER TABLE tbl_sessions ADD COLUMN %s %s`, col.name, col.decl)); err != nil {
			return fmt.Errorf("adding %s column to tbl_sessions: %w", col.name, err)
		}
		s.logger.Info("applied migration", "column", col.name, "table", "tbl_sessions")
	}

	// Task uids are not unique: the same task issued twice within one second
	// yields two rows with one uid. Builds that indexed uid as UNIQUE get the
	// index rebuilt as a plain one.
	var unique int
	err := s.db.QueryRow(`SELECT "unique" FROM pragma_index_list('tbl_tasks') WHERE name = 'idx_tasks_uid'`).Scan(&unique)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking idx_tasks_uid: %w", err)
	}
	if unique == 1 {
		if _, err := s.db.Exec(`DROP INDEX idx_tasks_uid; CREATE INDEX idx_tasks_uid ON tbl_tasks(uid);`); err != nil {
			return fmt.Errorf("rebuilding idx_tasks_uid: %w", err)
		}
		s.logger.Info("applied migration", "index", "idx_tasks_uid", "table", "tbl_tasks")
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// withTx runs fn inside its own transaction. The transaction is committed when
// fn returns nil and rolled back on every other exit path, including panics.
func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: op, Err: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return classify(op, err)
	}
	if err = tx.Commit(); err != nil {
		return &StoreError{Op: op, Err: fmt.Errorf("committing: %w", err)}
	}
	return nil
}

// classify passes the store's own sentinel and typed errors through and
// wraps everything else as a StoreError.
func classify(op string, err error) error {
	var stmtErr *StatementError
	var storeErr *StoreError
	switch {
	case errors.Is(err, ErrNotFound):
		return err
	case errors.As(err, &stmtErr), errors.As(err, &storeErr):
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// nullString returns nil for empty strings, otherwise the string
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func parseTime(column string, ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeFormat, ns.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", column, err)
	}
	return t, nil
}

// Ensure SQLiteStore implements the store interfaces
var (
	_ Store           = (*SQLiteStore)(nil)
	_ StatementRunner = (*SQLiteStore)(nil)
)
