// Package report provides structured persistence and retrieval of ship
// run results.
package report

import (
	"fmt"
	"time"
)

// Outcome summarises how a ship run ended.
type Outcome string

const (
	// OK means every checked step succeeded.
	OK Outcome = "ok"
	// Warned means a tolerated step failed and the run carried on.
	Warned Outcome = "warned"
	// Aborted means a fail-fast step failed and the run stopped.
	Aborted Outcome = "aborted"
	// Clean means there was nothing to commit and no step ran.
	Clean Outcome = "clean"
	// Precondition means the workspace was unusable and no step ran.
	Precondition Outcome = "precondition_failed"
)

// ExitCode maps an outcome to the process exit status.
func (o Outcome) ExitCode() int {
	switch o {
	case Aborted, Precondition:
		return 1
	default:
		return 0
	}
}

// Status is the result of a single step.
type Status string

const (
	Pass    Status = "pass"
	Fail    Status = "fail"    // non-zero exit
	Error   Status = "error"   // process could not be started
	Skipped Status = "skipped" // never attempted
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult holds the structured record of one ship run.
type RunResult struct {
	ID        string        `json:"id"`
	Workspace string        `json:"workspace"`
	Branch    string        `json:"branch,omitempty"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Outcome   Outcome       `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Steps     []StepRecord  `json:"steps,omitempty"`
}

// StepRecord is the outcome of one step of a run.
type StepRecord struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Command     []string      `json:"command"`
	Policy      string        `json:"policy"`
	Status      Status        `json:"status"`
	ExitCode    int           `json:"exit_code"`
	Stdout      string        `json:"stdout,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
	Detail      string        `json:"detail,omitempty"` // start failure diagnostic
	Truncated   bool          `json:"truncated,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// ExitCode returns the process exit status the run maps to.
func (r *RunResult) ExitCode() int {
	return r.Outcome.ExitCode()
}

// Step returns the record for the named step.
func (r *RunResult) Step(name string) (*StepRecord, error) {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i], nil
		}
	}
	return nil, fmt.Errorf("run %s has no step %q", r.ID, name)
}

// Attempted returns the names of the steps that were actually invoked, in
// order.
func (r *RunResult) Attempted() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Status != Skipped {
			out = append(out, s.Name)
		}
	}
	return out
}
