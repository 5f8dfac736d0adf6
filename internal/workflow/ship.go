package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deixis/gitship/internal/report"
	"github.com/google/uuid"
)

// ShipResult holds the full outcome of a ship run.
type ShipResult struct {
	RunResult *report.RunResult
	Steps     []Step
	FailedIdx int // index of the step that aborted the run, -1 if none
}

// Outcome returns how the run ended.
func (r *ShipResult) Outcome() report.Outcome {
	return r.RunResult.Outcome
}

// ExitCode returns the process exit status for the run.
func (r *ShipResult) ExitCode() int {
	return r.RunResult.ExitCode()
}

// Ship checks the workspace, then runs the plan step by step.
//
// A failed precondition returns a *PreconditionError and no command is
// attempted. Step failures are not errors: they are recorded in the result,
// and each step's Policy decides whether the run stops (AbortOnFailure),
// warns and continues (WarnOnFailure) or moves on silently (IgnoreResult).
func (e *Engine) Ship(ctx context.Context) (*ShipResult, error) {
	workspace := e.Settings.Workspace
	out := e.console()
	out.Start(workspace)

	if err := CheckWorkspace(workspace); err != nil {
		out.Fatal(preconditionMessage(err))
		return nil, err
	}
	if e.LockPath != "" {
		unlock, err := acquireLock(e.LockPath)
		if err != nil {
			out.Fatal(err.Error())
			return nil, err
		}
		defer unlock()
	}

	started := e.now()
	rr := &report.RunResult{
		ID:        uuid.New().String(),
		Workspace: workspace,
		Branch:    CurrentBranch(workspace),
		Started:   started,
		Outcome:   report.OK,
	}
	log := e.logger().With("run_id", rr.ID, "workspace", workspace)

	steps, err := e.Plan(rr.Branch)
	if err != nil {
		return nil, fmt.Errorf("building plan: %w", err)
	}

	if e.Settings.SkipClean {
		clean, err := IsClean(workspace)
		switch {
		case err != nil:
			log.Warn("could not read worktree status, running every step", "error", err)
		case clean:
			out.Info("\n⚠️  No changes to commit")
			rr.Outcome = report.Clean
			rr.Duration = e.now().Sub(started)
			log.Info("worktree clean, nothing to ship")
			return &ShipResult{RunResult: rr, Steps: steps, FailedIdx: -1}, nil
		}
	}

	rr.Steps = make([]report.StepRecord, len(steps))
	for i, step := range steps {
		rr.Steps[i] = report.StepRecord{
			Name:        step.Name,
			Description: step.Description,
			Command:     step.Args,
			Policy:      step.Policy.String(),
			Status:      report.Skipped,
		}
	}

	failedIdx := -1
	for i, step := range steps {
		ok := e.execute(ctx, log, step, &rr.Steps[i])
		if ok {
			continue
		}

		switch step.Policy {
		case AbortOnFailure:
			failedIdx = i
			rr.Outcome = report.Aborted
			log.Error("step failed, aborting", "step", step.Name, "exit_code", rr.Steps[i].ExitCode)
		case WarnOnFailure:
			out.Warning(step.Warning)
			rr.Outcome = report.Warned
			log.Warn("step failed, continuing", "step", step.Name, "exit_code", rr.Steps[i].ExitCode)
		case IgnoreResult:
			log.Debug("ignoring step result", "step", step.Name)
		}

		if failedIdx >= 0 {
			break
		}
	}

	rr.Duration = e.now().Sub(started)
	if failedIdx < 0 {
		out.Summary(rr.Branch, rr.Outcome == report.Warned)
	}

	return &ShipResult{RunResult: rr, Steps: steps, FailedIdx: failedIdx}, nil
}

// execute runs one step, reports it on the console and fills rec.
// It returns true exactly when the process exited with status zero; a
// process that could not be started counts as a failure.
func (e *Engine) execute(ctx context.Context, log *slog.Logger, step Step, rec *report.StepRecord) bool {
	out := e.console()
	out.Banner(step.Description)
	log.Debug("step started", "step", step.Name, "command", step.CommandLine())

	start := time.Now()
	res, err := e.Runner.Run(ctx, step.Args, "")
	rec.Duration = time.Since(start)

	if err != nil {
		out.Exception(err)
		rec.Status = report.Error
		rec.ExitCode = -1
		rec.Detail = err.Error()
		log.Warn("step could not start", "step", step.Name, "error", err)
		return false
	}

	rec.ExitCode = res.ExitCode
	rec.Stdout = string(res.Stdout)
	rec.Stderr = string(res.Stderr)
	rec.Truncated = res.Truncated
	log.Debug("step finished", "step", step.Name, "exit_code", res.ExitCode, "duration", rec.Duration)

	out.Output(res.Stdout)
	if res.Truncated {
		out.Truncated()
	}
	if !res.Success() {
		out.Failure(res.Stderr)
		rec.Status = report.Fail
		return false
	}
	out.Success()
	rec.Status = report.Pass
	return true
}

func preconditionMessage(err error) string {
	pe, ok := err.(*PreconditionError)
	if !ok {
		return err.Error()
	}
	if pe.Kind == ErrNotRepository {
		return "Not a git repository: " + pe.Path
	}
	return "Cannot use workspace: " + pe.Error()
}
