package report

import (
	"fmt"
	"strings"

	"github.com/deixis/gitship/internal/runner"
)

// FormatRun summarises every step of a run, one line each.
func FormatRun(r *RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s)\n", r.ID, r.Outcome)
	fmt.Fprintf(&b, "Workspace: %s\n", r.Workspace)
	if r.Branch != "" {
		fmt.Fprintf(&b, "Branch: %s\n", r.Branch)
	}
	fmt.Fprintf(&b, "Started: %s\n\n", r.Started.Format("2006-01-02 15:04:05"))
	for _, s := range r.Steps {
		switch s.Status {
		case Skipped:
			fmt.Fprintf(&b, "  %-8s %-7s -\n", s.Name, s.Status)
		case Error:
			fmt.Fprintf(&b, "  %-8s %-7s %s\n", s.Name, s.Status, s.Detail)
		default:
			fmt.Fprintf(&b, "  %-8s %-7s exit %d (%s)\n", s.Name, s.Status, s.ExitCode, s.Policy)
		}
	}
	return b.String()
}

// FormatStep renders one step in full.
func FormatStep(s *StepRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step: %s (%s)\n", s.Name, s.Description)
	fmt.Fprintf(&b, "Command: %s\n", runner.FormatArgv(s.Command))
	fmt.Fprintf(&b, "Policy: %s\n", s.Policy)
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	if s.Status != Skipped {
		fmt.Fprintf(&b, "Exit code: %d\n", s.ExitCode)
		fmt.Fprintf(&b, "Duration: %s\n", s.Duration)
	}
	if s.Detail != "" {
		fmt.Fprintf(&b, "Detail: %s\n", s.Detail)
	}
	writeBlock(&b, "Stdout", s.Stdout, s.Truncated)
	writeBlock(&b, "Stderr", s.Stderr, s.Truncated)
	return b.String()
}

func writeBlock(b *strings.Builder, label, text string, truncated bool) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", label)
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
	if truncated {
		fmt.Fprintln(b, "    (output truncated)")
	}
}
