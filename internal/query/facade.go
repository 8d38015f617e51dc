// ABOUTME: Query facade over the store: listings, counts and raw statement execution
// ABOUTME: Binds named parameters, bounds batches by a timeout and tags each batch with a uuid

package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-roster/internal/render"
	"github.com/2389/coven-roster/internal/store"
)

// Backend is the storage the facade reads from.
type Backend interface {
	ListSessions(ctx context.Context) ([]*store.Session, error)
	ListSessionSummaries(ctx context.Context) ([]store.SessionSummary, error)
	ListTasks(ctx context.Context) ([]*store.Task, error)
	ListSessionTasks(ctx context.Context, session string) ([]*store.Task, error)
	store.StatementRunner
}

// Config tunes a Facade.
type Config struct {
	// StatementTimeout bounds each Execute and batch run. Zero means no
	// bound beyond the caller's context.
	StatementTimeout time.Duration

	// Renderer prints rows when ExecOptions.Display is set. Nil renders to
	// stdout with default options.
	Renderer *render.Renderer
}

// ExecOptions controls what happens to statement output.
type ExecOptions struct {
	Display bool // render each row as it is returned
	Discard bool // return nil rows, e.g. for write-only scripts
}

// Facade answers listing and raw statement requests.
type Facade struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
}

// New creates a Facade over backend.
func New(backend Backend, cfg Config) *Facade {
	if cfg.Renderer == nil {
		cfg.Renderer = render.New(os.Stdout, render.Options{})
	}
	return &Facade{
		backend: backend,
		cfg:     cfg,
		logger:  slog.Default().With("component", "query"),
	}
}

// ListSessions returns every session in store order. Summary rows carry
// exactly uid, public_ip and platform; verbose rows carry every column.
func (f *Facade) ListSessions(ctx context.Context, verbose bool) ([]Row, error) {
	if !verbose {
		summaries, err := f.backend.ListSessionSummaries(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		rows := make([]Row, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, newRow(store.SummaryColumns, s.Row()))
		}
		return rows, nil
	}

	sessions, err := f.backend.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	rows := make([]Row, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, newRow(store.SessionColumns, s.Row()))
	}
	return rows, nil
}

// ListTasks returns tasks with all of their columns. An empty session
// lists every task.
func (f *Facade) ListTasks(ctx context.Context, session string) ([]Row, error) {
	var (
		tasks []*store.Task
		err   error
	)
	if session == "" {
		tasks, err = f.backend.ListTasks(ctx)
	} else {
		tasks, err = f.backend.ListSessionTasks(ctx, session)
	}
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, newRow(store.TaskColumns, t.Row()))
	}
	return rows, nil
}

// CountSessions returns the number of stored sessions.
func (f *Facade) CountSessions(ctx context.Context) (int, error) {
	rows, err := f.ListSessions(ctx, false)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Execute runs one statement with params bound by name (":name" in the
// statement text).
func (f *Facade) Execute(ctx context.Context, stmt string, params map[string]any, opts ExecOptions) ([]Row, error) {
	ctx, cancel := f.bound(ctx)
	defer cancel()

	rs, err := f.backend.Query(ctx, stmt, namedArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return f.finish(rowsFromResult(rs), opts), nil
}

// ExecuteScript splits script into statements and runs them in one
// transaction. Rows of every statement are returned in order.
func (f *Facade) ExecuteScript(ctx context.Context, script string, opts ExecOptions) ([]Row, error) {
	stmts := SplitStatements(script)
	if len(stmts) == 0 {
		return nil, nil
	}

	batchID := uuid.NewString()
	logger := f.logger.With("batch_id", batchID)
	logger.Debug("running batch", "statements", len(stmts))

	ctx, cancel := f.bound(ctx)
	defer cancel()

	start := time.Now()
	results, err := f.backend.ExecScript(ctx, stmts)
	if err != nil {
		logger.Debug("batch rolled back", "error", err)
		return nil, fmt.Errorf("batch %s: %w", batchID, err)
	}

	var rows []Row
	for _, rs := range results {
		rows = append(rows, rowsFromResult(rs)...)
	}
	logger.Debug("batch committed", "statements", len(stmts), "rows", len(rows), "duration", time.Since(start))
	return f.finish(rows, opts), nil
}

// ExecuteFile runs the script stored at path.
func (f *Facade) ExecuteFile(ctx context.Context, path string, opts ExecOptions) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return f.ExecuteScript(ctx, string(data), opts)
}

// Display renders rows with the configured renderer.
func (f *Facade) Display(rows []Row) {
	for _, r := range rows {
		f.cfg.Renderer.Render(r.Value())
	}
}

func (f *Facade) finish(rows []Row, opts ExecOptions) []Row {
	if opts.Display {
		f.Display(rows)
	}
	if opts.Discard {
		return nil
	}
	return rows
}

func (f *Facade) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.cfg.StatementTimeout > 0 {
		return context.WithTimeout(ctx, f.cfg.StatementTimeout)
	}
	return context.WithCancel(ctx)
}

// namedArgs converts params to sql.Named arguments in key order.
func namedArgs(params map[string]any) []any {
	if len(params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, sql.Named(k, params[k]))
	}
	return args
}
