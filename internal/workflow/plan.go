package workflow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/deixis/gitship/internal/config"
	"github.com/deixis/gitship/internal/runner"
)

// Policy decides what a failed step does to the rest of the run.
type Policy int

const (
	// AbortOnFailure stops the run; later steps are never attempted.
	AbortOnFailure Policy = iota
	// WarnOnFailure prints the step's warning and carries on.
	WarnOnFailure
	// IgnoreResult never acts on the step's outcome.
	IgnoreResult
)

func (p Policy) String() string {
	switch p {
	case AbortOnFailure:
		return "abort"
	case WarnOnFailure:
		return "warn"
	case IgnoreResult:
		return "ignore"
	}
	return "Policy(" + strconv.Itoa(int(p)) + ")"
}

// ParsePolicy accepts the names produced by Policy.String, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "abort":
		return AbortOnFailure, nil
	case "warn":
		return WarnOnFailure, nil
	case "ignore":
		return IgnoreResult, nil
	}
	return 0, fmt.Errorf("unknown policy %q (want abort, warn or ignore)", s)
}

// Step names, in the order DefaultPlan emits them.
const (
	StepStatus = "status"
	StepAdd    = "add"
	StepCommit = "commit"
	StepPush   = "push"
	StepLog    = "log"
)

// StepNames lists every step of the default plan in execution order.
var StepNames = []string{StepStatus, StepAdd, StepCommit, StepPush, StepLog}

// PushWarning is printed when the push step fails under WarnOnFailure.
const PushWarning = "Push may have failed. Check your git credentials and network connection."

// Step is one command invocation of a plan.
type Step struct {
	Name        string
	Description string
	Args        []string // full argv, starting with the binary
	Policy      Policy
	Warning     string // printed when a WarnOnFailure step fails
}

// CommandLine renders Args for display.
func (s Step) CommandLine() string {
	return runner.FormatArgv(s.Args)
}

// Settings is the invocation-time configuration of a run.
type Settings struct {
	Workspace string
	Message   string // text/template, see MessageData
	Remote    string
	Ref       string
	LogCount  int
	SkipClean bool
	Author    config.AuthorConfig
	Policies  map[string]string // step name -> policy name
}

// SettingsFromConfig resolves Settings for workspace from a loaded
// configuration file, applying defaults for anything left unset.
func SettingsFromConfig(workspace string, loaded *config.LoadResult) (Settings, error) {
	cfg := loaded.Config
	msg, err := cfg.ReadMessage(loaded.RepoRoot)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Workspace: workspace,
		Message:   msg,
		Remote:    cfg.RemoteName(),
		Ref:       cfg.PushRef(),
		LogCount:  cfg.LogLines(),
		SkipClean: cfg.SkipClean,
		Author:    cfg.Author,
		Policies:  cfg.Policies,
	}, nil
}

// DefaultPlan builds the five-step status, add, commit, push, log plan.
// Policy overrides in s.Policies are applied by step name.
func DefaultPlan(s Settings, data MessageData) ([]Step, error) {
	msg, err := RenderMessage(s.Message, data)
	if err != nil {
		return nil, err
	}

	remote := s.Remote
	if remote == "" {
		remote = config.DefaultRemote
	}
	ref := s.Ref
	if ref == "" {
		ref = config.DefaultRef
	}
	logCount := s.LogCount
	if logCount <= 0 {
		logCount = config.DefaultLogCount
	}

	commit := []string{"git"}
	if s.Author.Name != "" {
		commit = append(commit, "-c", "user.name="+s.Author.Name)
	}
	if s.Author.Email != "" {
		commit = append(commit, "-c", "user.email="+s.Author.Email)
	}
	commit = append(commit, "commit", "-m", msg)

	steps := []Step{
		{Name: StepStatus, Description: "Current Git Status", Args: []string{"git", "status"}, Policy: AbortOnFailure},
		{Name: StepAdd, Description: "Adding All Changes", Args: []string{"git", "add", "-A"}, Policy: AbortOnFailure},
		{Name: StepCommit, Description: "Creating Commit", Args: commit, Policy: AbortOnFailure},
		{Name: StepPush, Description: "Pushing to " + remote, Args: []string{"git", "push", remote, ref}, Policy: WarnOnFailure, Warning: PushWarning},
		{Name: StepLog, Description: "Recent Commits", Args: []string{"git", "log", "--oneline", "-" + strconv.Itoa(logCount)}, Policy: IgnoreResult},
	}

	if err := applyPolicies(steps, s.Policies); err != nil {
		return nil, err
	}
	return steps, nil
}

func applyPolicies(steps []Step, overrides map[string]string) error {
	// Sorted so that the first reported error is deterministic.
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p, err := ParsePolicy(overrides[name])
		if err != nil {
			return fmt.Errorf("step %s: %w", name, err)
		}
		found := false
		for i := range steps {
			if steps[i].Name == name {
				steps[i].Policy = p
				if p == WarnOnFailure && steps[i].Warning == "" {
					steps[i].Warning = steps[i].Description + " failed."
				}
				found = true
			}
		}
		if !found {
			return fmt.Errorf("unknown step %q (want one of %s)", name, strings.Join(StepNames, ", "))
		}
	}
	return nil
}

// FormatPlan lists steps with their policy and command line.
func FormatPlan(workspace string, steps []Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workspace: %s\n\n", workspace)
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s [%s]\n   %s\n", i+1, s.Name, s.Policy, s.CommandLine())
	}
	return b.String()
}
