package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/gitship/internal/config"
	"github.com/deixis/gitship/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// planFlags override the .gitship values that shape the step plan.
type planFlags struct {
	message     string
	messageFile string
	remote      string
	ref         string
	logCount    int
	skipClean   bool
}

func (f *planFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.message, "message", "m", "", "commit message template; may use {{.Branch}}, {{.Date}} and {{.Workspace}}")
	fs.StringVarP(&f.messageFile, "file", "F", "", "read the commit message template from a file")
	fs.StringVar(&f.remote, "remote", "", "remote to push to (default origin)")
	fs.StringVar(&f.ref, "ref", "", "ref to push (default HEAD)")
	fs.IntVar(&f.logCount, "log-count", 0, "number of commits shown after pushing (default 5)")
	fs.BoolVar(&f.skipClean, "skip-clean", false, "stop without running anything when there is nothing to commit")
}

// apply copies every flag set on the command line over cfg.
func (f *planFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("message") && fs.Changed("file") {
		return usagef("--message and --file are mutually exclusive")
	}
	if fs.Changed("message") {
		cfg.Message = f.message
		cfg.MessageFile = ""
	}
	if fs.Changed("file") {
		path, err := filepath.Abs(f.messageFile)
		if err != nil {
			return fmt.Errorf("resolving message file: %w", err)
		}
		cfg.Message = ""
		cfg.MessageFile = path
	}
	if fs.Changed("remote") {
		cfg.Remote = f.remote
	}
	if fs.Changed("ref") {
		cfg.Ref = f.ref
	}
	if fs.Changed("log-count") {
		if f.logCount <= 0 {
			return usagef("--log-count must be positive, got %d", f.logCount)
		}
		cfg.LogCount = f.logCount
	}
	if fs.Changed("skip-clean") {
		cfg.SkipClean = f.skipClean
	}
	return nil
}

// resolveWorkspace returns the absolute working tree named by args, or the
// current directory.
func resolveWorkspace(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving workspace: %w", err)
	}
	return abs, nil
}

// loadEngine loads the configuration for the workspace named by args,
// applies the command-line overrides and builds an engine.
func loadEngine(cmd *cobra.Command, args []string, flags *planFlags, timeout time.Duration) (*workflow.Engine, *config.LoadResult, error) {
	workspace, err := resolveWorkspace(args)
	if err != nil {
		return nil, nil, err
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := flags.apply(cmd.Flags(), loaded.Config); err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("timeout") {
		if timeout < 0 {
			return nil, nil, usagef("--timeout must not be negative, got %s", timeout)
		}
		loaded.Config.RawTimeout = ""
		if timeout > 0 {
			loaded.Config.RawTimeout = timeout.String()
		}
	}

	eng, err := workflow.NewEngine(workspace, loaded)
	if err != nil {
		return nil, nil, err
	}
	return eng, loaded, nil
}

// isRepo reports whether root holds a .git directory that run history can
// be written into.
func isRepo(root string) bool {
	info, err := os.Stat(filepath.Join(root, ".git"))
	return err == nil && info.IsDir()
}

// logPath resolves a configured log file against the repository root.
func logPath(file, root string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(root, file)
}
