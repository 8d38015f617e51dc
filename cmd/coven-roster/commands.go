// ABOUTME: Subcommand implementations for coven-roster
// ABOUTME: Each command parses its own flags, opens the store and renders the result

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/coven-roster/internal/query"
	"github.com/2389/coven-roster/internal/roster"
)

func runSessions(ctx context.Context, args []string) error {
	var common commonFlags
	var verbose bool
	fs := newFlagSet("sessions", &common)
	fs.BoolVarP(&verbose, "verbose", "v", false, "show every column")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(common, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.facade.ListSessions(ctx, verbose)
	if err != nil {
		return err
	}
	a.facade.Display(rows)
	return nil
}

func runTasks(ctx context.Context, args []string) error {
	var (
		common  commonFlags
		session string
	)
	fs := newFlagSet("tasks", &common)
	fs.StringVar(&session, "session", "", "only list tasks issued to this session uid")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(common, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.facade.ListTasks(ctx, session)
	if err != nil {
		return err
	}
	a.facade.Display(rows)
	return nil
}

func runCount(ctx context.Context, args []string) error {
	var common commonFlags
	fs := newFlagSet("count", &common)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(common, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.facade.CountSessions(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, color.New(color.Bold).Sprint(n))
	return nil
}

func runCheckin(ctx context.Context, args []string, stdin io.Reader) error {
	var common commonFlags
	var payload string
	fs := newFlagSet("checkin", &common)
	fs.StringVar(&payload, "payload", "", "host description as a JSON object (default: read stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data := []byte(payload)
	if payload == "" {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
	}

	info, err := roster.ParseHostInfo(data)
	if err != nil {
		return err
	}

	a, err := openApp(common, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.tracker.HandleSession(ctx, info)
	if err != nil {
		return err
	}
	a.renderer.RenderAny(res.Row())
	return nil
}

func runStatus(ctx context.Context, args []string) error {
	var common commonFlags
	var (
		uid     string
		rowID   int64
		offline bool
	)
	fs := newFlagSet("status", &common)
	fs.StringVar(&uid, "uid", "", "session uid")
	fs.Int64Var(&rowID, "id", 0, "session row id")
	fs.BoolVar(&offline, "offline", false, "mark offline instead of online")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (uid == "") == (rowID == 0) {
		return fmt.Errorf("exactly one of --uid or --id is required")
	}

	a, err := openApp(common, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	if uid != "" {
		err = a.tracker.SetStatusByUID(ctx, uid, !offline)
	} else {
		err = a.tracker.SetStatusByRowID(ctx, rowID, !offline)
	}
	if err != nil {
		return err
	}

	state := color.GreenString("online")
	if offline {
		state = color.YellowString("offline")
	}
	fmt.Fprintf(a.out, "session marked %s\n", state)
	return nil
}

func runTask(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: coven-roster task (issue|complete) [flags]")
	}

	var common commonFlags
	var session, text, uid, result string
	fs := newFlagSet("task "+args[0], &common)

	switch args[0] {
	case "issue":
		fs.StringVar(&session, "session", "", "session uid to issue the task to")
		fs.StringVar(&text, "task", "", "task text")
	case "complete":
		fs.StringVar(&uid, "uid", "", "task uid")
		fs.StringVar(&result, "result", "", "task result")
	default:
		return fmt.Errorf("unknown task command: %s", args[0])
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	a, err := openApp(common, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	var receipt *roster.TaskReceipt
	if args[0] == "issue" {
		receipt, err = a.tracker.IssueTask(ctx, session, text)
	} else {
		receipt, err = a.tracker.CompleteTask(ctx, uid, result)
	}
	if err != nil {
		return err
	}
	a.renderer.RenderAny(receipt.Row())
	if !receipt.Persisted {
		fmt.Fprintln(os.Stderr, color.YellowString("no pending task matched %s", receipt.UID))
	}
	return nil
}

func runQuery(ctx context.Context, args []string) error {
	var common commonFlags
	var (
		rawParams []string
		quiet     bool
	)
	fs := newFlagSet("query", &common)
	fs.StringArrayVarP(&rawParams, "param", "p", nil, "named parameter as key=value (repeatable)")
	fs.BoolVarP(&quiet, "quiet", "q", false, "do not print rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stmt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if stmt == "" {
		return fmt.Errorf("a statement is required")
	}
	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}

	a, err := openApp(common, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.facade.Execute(ctx, stmt, params, query.ExecOptions{Display: !quiet, Discard: true})
	return err
}

func runExec(ctx context.Context, args []string) error {
	var common commonFlags
	var quiet bool
	fs := newFlagSet("exec", &common)
	fs.BoolVarP(&quiet, "quiet", "q", false, "do not print rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: coven-roster exec FILE")
	}

	a, err := openApp(common, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.facade.ExecuteFile(ctx, fs.Arg(0), query.ExecOptions{Display: !quiet})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, color.HiBlackString("%d rows", len(rows)))
	return nil
}

// parseParams turns key=value pairs into named statement parameters.
func parseParams(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimPrefix(strings.TrimSpace(k), ":")
		if !ok || k == "" {
			return nil, fmt.Errorf("parameter %q must be key=value", kv)
		}
		params[k] = v
	}
	return params, nil
}
