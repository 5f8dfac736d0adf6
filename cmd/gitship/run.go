package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/deixis/gitship/internal/console"
	"github.com/deixis/gitship/internal/logging"
	"github.com/deixis/gitship/internal/report"
	"github.com/deixis/gitship/internal/workflow"
	"github.com/spf13/cobra"
)

type runFlags struct {
	planFlags
	timeout  time.Duration
	json     bool
	noColor  bool
	logLevel string
	logFile  string
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Stage, commit and push every pending change",
		Long: `Run git status, add -A, commit, push and log in dir (default: the current
directory). The directory must itself contain .git.

Exit status is 1 when the workspace is not a repository or when status, add or
commit fails, and 0 otherwise, including after a failed push.

Examples:
  gitship run
  gitship run ../service -m "release: {{.Date}}"
  gitship run --remote upstream --ref main --skip-clean
  gitship run --json > run.json`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShip(cmd, args, f)
		},
	}

	fs := cmd.Flags()
	f.planFlags.register(fs)
	fs.DurationVar(&f.timeout, "timeout", 0, "per-command timeout, e.g. 2m (default: none)")
	fs.BoolVar(&f.json, "json", false, "print the run result as JSON on stdout")
	fs.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	fs.StringVar(&f.logLevel, "log-level", "", "diagnostic log level: debug, info, warn or error (default warn)")
	fs.StringVar(&f.logFile, "log-file", "", "also write diagnostics to a rotated JSON log file")
	return cmd
}

func runShip(cmd *cobra.Command, args []string, f *runFlags) error {
	eng, loaded, err := loadEngine(cmd, args, &f.planFlags, f.timeout)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	level := cfg.LogLevel()
	if cmd.Flags().Changed("log-level") {
		level = f.logLevel
	}
	if _, err := logging.ParseLevel(level); err != nil {
		return &usageError{err: err}
	}
	logFile := logPath(cfg.Log.File, loaded.RepoRoot)
	if f.logFile != "" {
		logFile = f.logFile
	}
	logger, closeLog, err := logging.New(logging.Options{
		Console:    cmd.ErrOrStderr(),
		Level:      level,
		File:       logFile,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	// With --json, stdout carries only the result.
	transcript := cmd.OutOrStdout()
	if f.json {
		transcript = cmd.ErrOrStderr()
	}
	eng.Console = console.New(transcript, !f.noColor && wantsColor(transcript))
	eng.Logger = logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := eng.Ship(ctx)
	if errors.Is(err, workflow.ErrBusy) {
		// Already reported on the transcript.
		return &exitError{code: 1}
	}
	if err != nil {
		var pe *workflow.PreconditionError
		if !errors.As(err, &pe) {
			return err
		}
		if f.json {
			rr := &report.RunResult{
				Workspace: eng.Settings.Workspace,
				Started:   time.Now(),
				Outcome:   report.Precondition,
				Error:     pe.Error(),
			}
			if err := writeJSON(cmd.OutOrStdout(), rr); err != nil {
				return err
			}
		}
		return &exitError{code: report.Precondition.ExitCode()}
	}

	rr := result.RunResult
	if isRepo(loaded.RepoRoot) {
		store := report.NewDiskStore(report.RunsDir(loaded.RepoRoot))
		if err := store.Save(rr); err != nil {
			logger.Warn("saving run result", "run_id", rr.ID, "error", err)
		}
	}

	if f.json {
		if err := writeJSON(cmd.OutOrStdout(), rr); err != nil {
			return err
		}
	}
	if code := rr.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// wantsColor reports whether w is a terminal that accepts colour.
func wantsColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && console.ShouldColor(f)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}
