// ABOUTME: Raw statement passthrough for administrative queries
// ABOUTME: Binds parameters through the driver and materializes every row before returning

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Query runs one statement with bound args inside its own transaction and
// returns the materialized rows. Write statements are committed.
func (s *SQLiteStore) Query(ctx context.Context, stmt string, args ...any) (*ResultSet, error) {
	var rs *ResultSet
	err := s.withTx(ctx, "query", func(tx *sql.Tx) error {
		var err error
		rs, err = runStatement(ctx, tx, stmt, args...)
		if err != nil {
			return &StatementError{Statement: stmt, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("executed statement", "columns", len(rs.Columns), "rows", len(rs.Rows))
	return rs, nil
}

// ExecScript runs stmts sequentially in one transaction and commits once at
// the end. The first failing statement rolls everything back.
func (s *SQLiteStore) ExecScript(ctx context.Context, stmts []string) ([]*ResultSet, error) {
	results := make([]*ResultSet, 0, len(stmts))
	err := s.withTx(ctx, "exec script", func(tx *sql.Tx) error {
		for i, stmt := range stmts {
			if err := ctx.Err(); err != nil {
				return &StatementError{Index: i, Statement: stmt, Err: err}
			}
			rs, err := runStatement(ctx, tx, stmt)
			if err != nil {
				return &StatementError{Index: i, Statement: stmt, Err: err}
			}
			results = append(results, rs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("executed script", "statements", len(stmts))
	return results, nil
}

func runStatement(ctx context.Context, tx *sql.Tx, stmt string, args ...any) (*ResultSet, error) {
	rows, err := tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}
