// Package workflow provides the ship engine: it checks the workspace,
// builds the declarative step plan and runs it under each step's failure
// policy. It is consumed by both the CLI and the MCP server.
package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/gitship/internal/config"
	"github.com/deixis/gitship/internal/console"
	"github.com/deixis/gitship/internal/logging"
	"github.com/deixis/gitship/internal/runner"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string) (*runner.Result, error)
}

// Engine holds shared dependencies for a ship run.
type Engine struct {
	Runner   CommandRunner
	Console  *console.Console // nil discards output
	Logger   *slog.Logger     // nil discards logs
	Settings Settings

	// LockPath, when set, is held for the duration of a run so that two
	// runs never interleave in one repository.
	LockPath string

	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

func (e *Engine) console() *console.Console {
	if e.Console == nil {
		return console.Discard()
	}
	return e.Console
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.Discard()
	}
	return e.Logger
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Plan resolves the steps a run in the engine's workspace would execute
// when branch is checked out.
func (e *Engine) Plan(branch string) ([]Step, error) {
	return DefaultPlan(e.Settings, MessageData{
		Branch:    branch,
		Date:      e.now().Format("2006-01-02"),
		Workspace: e.Settings.Workspace,
	})
}

// NewEngine returns an engine shipping workspace with the given loaded
// configuration. Console and Logger are left for the caller to set.
func NewEngine(workspace string, loaded *config.LoadResult) (*Engine, error) {
	settings, err := SettingsFromConfig(workspace, loaded)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config
	eng := &Engine{
		Runner: &runner.Runner{
			Workspace: workspace,
			Timeout:   cfg.Timeout(),
			MaxOutput: cfg.MaxOutputBytes(),
		},
		Settings: settings,
	}
	if info, err := os.Stat(filepath.Join(workspace, ".git")); err == nil && info.IsDir() {
		eng.LockPath = LockPath(workspace)
	}
	return eng, nil
}
