// Package store provides persistent storage for sessions and tasks using SQLite.
//
// # Architecture
//
// The store package exposes two interfaces:
//
//   - Store: session and task lifecycle writes plus listings
//   - StatementRunner: parameterized raw statements and multi-statement scripts
//
// SQLiteStore implements both. MockStore implements Store in memory for tests.
//
// # Data Models
//
//   - Session (tbl_sessions): one row per agent, keyed by a derived uid
//   - Task (tbl_tasks): one row per dispatched unit of work, back-referencing Session.uid
//
// Tasks reference sessions by uid only. There is no foreign key, so deleting
// one never cascades to the other.
//
// # Locations
//
// Open accepts a bare filesystem path or a URI:
//
//   - roster.db, /var/lib/coven/roster.db: modernc.org/sqlite file
//   - sqlite:///roster.db, sqlite:////var/lib/coven/roster.db: modernc.org/sqlite file
//   - sqlite:// or :memory:: in-memory database
//   - sqlite3:///roster.db: github.com/mattn/go-sqlite3 (requires cgo)
//
// # Transactions
//
// Every call runs in its own short-lived transaction that is committed or
// rolled back before the call returns. The pool is capped at one connection:
// SQLite allows a single writer, and the cap keeps in-memory databases alive.
//
// # Error Handling
//
//   - ErrNotFound: a locator matched no row
//   - *StoreError: connection or transaction failure, with the operation name
//   - *StatementError: a raw statement was rejected, with its index in the script
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests of callers, and NewSQLiteStore with a
// path under t.TempDir() (or ":memory:") for integration tests.
package store
