package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/deixis/gitship/internal/config"
	"github.com/deixis/gitship/internal/console"
	"github.com/deixis/gitship/internal/report"
	"github.com/deixis/gitship/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type planParams struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Absolute path of the git working tree. Defaults to the server workspace."`
	Message   string `json:"message,omitempty" jsonschema:"Commit message template. Defaults to the configured message."`
}

type runParams struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Absolute path of the git working tree. Defaults to the server workspace."`
	Message   string `json:"message,omitempty" jsonschema:"Commit message; may use {{.Branch}}, {{.Date}} and {{.Workspace}}. Defaults to the configured message."`
	SkipClean *bool  `json:"skip_clean,omitempty" jsonschema:"Stop without running anything when there is nothing to commit. Defaults to the configured value."`
}

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a ship_run result"`
	Step  string `json:"step,omitempty" jsonschema:"step name: status, add, commit, push or log. Omit to summarise every step."`
}

// engineFor builds an engine for the requested workspace, falling back to
// the server default.
func (h *handler) engineFor(workspace, message string) (*workflow.Engine, error) {
	if workspace == "" {
		workspace = h.defaultWorkspace()
	}
	if !filepath.IsAbs(workspace) {
		return nil, fmt.Errorf("workspace must be an absolute path, got %q", workspace)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	eng, err := workflow.NewEngine(workspace, loaded)
	if err != nil {
		return nil, err
	}
	if message != "" {
		eng.Settings.Message = message
	}
	eng.Logger = h.logger
	return eng, nil
}

func (h *handler) planHandler(ctx context.Context, req *mcp.CallToolRequest, params planParams) (*mcp.CallToolResult, any, error) {
	eng, err := h.engineFor(params.Workspace, params.Message)
	if err != nil {
		return errorResult(err.Error())
	}
	steps, err := eng.Plan(workflow.CurrentBranch(eng.Settings.Workspace))
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid plan: %v", err))
	}
	return textResult(workflow.FormatPlan(eng.Settings.Workspace, steps))
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	eng, err := h.engineFor(params.Workspace, params.Message)
	if err != nil {
		return errorResult(err.Error())
	}
	if params.SkipClean != nil {
		eng.Settings.SkipClean = *params.SkipClean
	}

	var transcript bytes.Buffer
	eng.Console = console.New(&transcript, false)

	result, err := eng.Ship(ctx)
	if errors.Is(err, workflow.ErrBusy) {
		return errorResult(strings.TrimSpace(transcript.String()))
	}
	if err != nil {
		var pe *workflow.PreconditionError
		if errors.As(err, &pe) {
			return errorResult(fmt.Sprintf("%s\nOutcome: %s", strings.TrimSpace(transcript.String()), report.Precondition))
		}
		return errorResult(fmt.Sprintf("ship failed: %v", err))
	}

	// Save results for ship_inspect.
	if err := h.store.Save(result.RunResult); err != nil {
		h.logger.Warn("saving run result", "run_id", result.RunResult.ID, "error", err)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(transcript.String()))
	fmt.Fprintf(&b, "\n\nOutcome: %s\n", result.Outcome())
	fmt.Fprintf(&b, "Run: %s\n", result.RunResult.ID)
	if result.FailedIdx >= 0 {
		failed := result.Steps[result.FailedIdx]
		fmt.Fprintf(&b, "Failed step: %s\n", failed.Name)
		fmt.Fprintf(&b, "Inspect with ship_inspect(run_id=%q, step=%q).\n", result.RunResult.ID, failed.Name)
	}

	res := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
		IsError: result.ExitCode() != 0,
	}
	return res, nil, nil
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	if params.Step == "" {
		return textResult(report.FormatRun(result))
	}
	step, err := result.Step(params.Step)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(report.FormatStep(step))
}
