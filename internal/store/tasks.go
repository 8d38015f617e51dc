// ABOUTME: Task persistence: issue (insert) and complete (result write) lifecycle
// ABOUTME: A task row is written exactly twice; completion only applies to pending rows

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskSelect = `
	SELECT id, uid, session, task, result, issued, completed
	FROM tbl_tasks
`

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var text, result, issued, completed sql.NullString

	if err := row.Scan(&t.ID, &t.UID, &t.Session, &text, &result, &issued, &completed); err != nil {
		return nil, err
	}

	t.Task = text.String
	if result.Valid {
		t.Result = &result.String
	}

	var err error
	if t.Issued, err = parseTime("issued", issued); err != nil {
		return nil, err
	}
	if completed.Valid {
		c, err := parseTime("completed", completed)
		if err != nil {
			return nil, err
		}
		t.Completed = &c
	}
	return &t, nil
}

// CreateTask inserts a newly issued task. Task uids are not unique: a task
// reissued within the same second gets a second row with the same uid.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *Task) error {
	err := s.withTx(ctx, "create task", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tbl_tasks (uid, session, task, issued)
			VALUES (?, ?, ?, ?)
		`, task.UID, task.Session, task.Task, formatTime(task.Issued))
		if err != nil {
			return fmt.Errorf("inserting task: %w", err)
		}
		if id, err := res.LastInsertId(); err == nil {
			task.ID = id
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("created task", "uid", task.UID, "session", task.Session)
	return nil
}

// CompleteTask records the result on every pending row with uid. It reports
// whether a row was updated: an unknown uid or an already completed task is left
// untouched and yields false without an error.
func (s *SQLiteStore) CompleteTask(ctx context.Context, uid, result string, completed time.Time) (bool, error) {
	var updated bool
	err := s.withTx(ctx, "complete task", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tbl_tasks
			SET result = ?, completed = ?
			WHERE uid = ? AND completed IS NULL
		`, result, completed.UTC().Format(timeFormat), uid)
		if err != nil {
			return fmt.Errorf("completing task: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		updated = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Debug("completed task", "uid", uid, "updated", updated)
	return updated, nil
}

// GetTask retrieves a task by uid. When several rows share the uid the
// oldest one is returned.
// Returns ErrNotFound if the task doesn't exist.
func (s *SQLiteStore) GetTask(ctx context.Context, uid string) (*Task, error) {
	var task *Task
	err := s.withTx(ctx, "get task", func(tx *sql.Tx) error {
		var err error
		task, err = scanTask(tx.QueryRowContext(ctx, taskSelect+" WHERE uid = ? ORDER BY id LIMIT 1", uid))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying task: %w", err)
		}
		return nil
	})
	return task, err
}

// ListTasks returns every task in the store's natural order.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]*Task, error) {
	return s.queryTasks(ctx, "list tasks", taskSelect)
}

// ListSessionTasks returns every task issued to the given session uid.
func (s *SQLiteStore) ListSessionTasks(ctx context.Context, session string) ([]*Task, error) {
	return s.queryTasks(ctx, "list session tasks", taskSelect+" WHERE session = ?", session)
}

func (s *SQLiteStore) queryTasks(ctx context.Context, op, query string, args ...any) ([]*Task, error) {
	var tasks []*Task
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying tasks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("scanning task row: %w", err)
			}
			tasks = append(tasks, t)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating task rows: %w", err)
		}
		return nil
	})
	return tasks, err
}
