// ABOUTME: Entry point for coven-roster, the session and task ledger CLI
// ABOUTME: Lists, counts and updates agent sessions and runs raw statements against the store

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/coven-roster/internal/config"
	"github.com/2389/coven-roster/internal/query"
	"github.com/2389/coven-roster/internal/render"
	"github.com/2389/coven-roster/internal/roster"
	"github.com/2389/coven-roster/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const usage = `Usage: coven-roster <command> [flags]

Commands:
  sessions [--verbose]                  List sessions
  tasks [--session UID]                 List tasks, optionally for one session
  count                                 Count sessions
  checkin [--payload JSON]              Record a host check-in (payload from stdin if omitted)
  status (--uid UID | --id N) --offline Mark a session online or offline
  task issue --session UID --task TEXT  Issue a task to a session
  task complete --uid UID --result TEXT Record a task result
  query [--param k=v]... STATEMENT      Run one parameterized statement
  exec FILE                             Run a SQL script in one transaction
  version                               Print the version

Common flags:
  --config PATH    config file (default $COVEN_ROSTER_CONFIG or ~/.config/coven/roster.yaml)
  --db URI         override database.uri
  --no-color       disable colored output
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "sessions":
		err = runSessions(ctx, args)
	case "tasks":
		err = runTasks(ctx, args)
	case "count":
		err = runCount(ctx, args)
	case "checkin":
		err = runCheckin(ctx, args, os.Stdin)
	case "status":
		err = runStatus(ctx, args)
	case "task":
		err = runTask(ctx, args)
	case "query":
		err = runQuery(ctx, args)
	case "exec":
		err = runExec(ctx, args)
	case "version", "--version":
		fmt.Println("coven-roster", version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath string
	database   string
	noColor    bool
}

func newFlagSet(name string, common *commonFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("coven-roster "+name, pflag.ContinueOnError)
	fs.StringVar(&common.configPath, "config", "", "path to config file")
	fs.StringVar(&common.database, "db", "", "database URI (overrides database.uri)")
	fs.BoolVar(&common.noColor, "no-color", false, "disable colored output")
	return fs
}

// app bundles everything a subcommand needs once flags are parsed.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	tracker  *roster.Tracker
	facade   *query.Facade
	renderer *render.Renderer
	out      io.Writer
	logger   *slog.Logger
}

func openApp(common commonFlags, out io.Writer) (*app, error) {
	cfg, path, err := config.LoadDefault(common.configPath)
	if err != nil {
		return nil, err
	}
	if common.database != "" {
		cfg.Database.URI = common.database
	}
	if common.noColor {
		cfg.Display.Color = false
		color.NoColor = true
	}

	logger := setupLogger(os.Stderr, cfg.Logging)
	slog.SetDefault(logger)
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}

	s, err := store.Open(cfg.Database.URI, store.Options{BusyTimeout: cfg.Database.BusyTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	renderer := render.New(out, render.Options{
		Truncate: cfg.Display.Truncate,
		Indent:   cfg.Display.Indent,
		Color:    cfg.Display.Color,
	})

	return &app{
		cfg:      cfg,
		store:    s,
		tracker:  roster.New(s, roster.WithLogger(logger)),
		facade:   query.New(s, query.Config{StatementTimeout: cfg.Database.StatementTimeout, Renderer: renderer}),
		renderer: renderer,
		out:      out,
		logger:   logger,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}
