// Package query is the read-only listing and raw statement surface used by
// operators.
//
// Facade wraps a Backend (normally *store.SQLiteStore) and returns every
// result as Rows: column-keyed mappings that remember their column order so
// the renderer can print them the way the database returned them.
//
// Raw statements bind parameters by name through sql.Named and are never
// interpolated. Scripts are split into statements and run in a single
// transaction that commits once at the end.
package query
