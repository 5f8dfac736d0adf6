package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deixis/gitship/internal/console"
	"github.com/deixis/gitship/internal/report"
	"github.com/deixis/gitship/internal/runner"
	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// response is what the spy returns for one git subcommand.
type response struct {
	exit      int
	stdout    string
	stderr    string
	truncated bool
	err       error
}

// spyRunner records every invocation and replies per git subcommand.
// Subcommands without a scripted response succeed with no output.
type spyRunner struct {
	calls     [][]string
	responses map[string]response
}

func (s *spyRunner) Run(_ context.Context, argv []string, _ string) (*runner.Result, error) {
	s.calls = append(s.calls, argv)
	r := s.responses[subcommand(argv)]
	if r.err != nil {
		return nil, r.err
	}
	return &runner.Result{
		RunID:     "spy",
		ExitCode:  r.exit,
		Stdout:    []byte(r.stdout),
		Stderr:    []byte(r.stderr),
		Truncated: r.truncated,
	}, nil
}

// attempted returns the subcommands invoked so far, in order.
func (s *spyRunner) attempted() []string {
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, subcommand(c))
	}
	return out
}

// subcommand skips the binary and any "-c key=value" pairs.
func subcommand(argv []string) string {
	for i := 1; i < len(argv); i++ {
		if argv[i] == "-c" {
			i++
			continue
		}
		return argv[i]
	}
	return ""
}

func newRepoDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	return dir
}

func newEngine(t *testing.T, dir string, spy *spyRunner) (*Engine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &Engine{
		Runner:  spy,
		Console: console.New(&out, false),
		Settings: Settings{
			Workspace: dir,
			Message:   "chore: ship it",
		},
		Now: func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) },
	}, &out
}

func TestShip_AllSucceed(t *testing.T) {
	spy := &spyRunner{}
	eng, out := newEngine(t, newRepoDir(t), spy)

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StepNames, spy.attempted())
	assert.Equal(t, 0, res.ExitCode())
	assert.Equal(t, report.OK, res.Outcome())
	assert.Equal(t, -1, res.FailedIdx)
	assert.Equal(t, StepNames, res.RunResult.Attempted())
	assert.Contains(t, out.String(), "All git operations completed successfully")
	assert.NotEmpty(t, res.RunResult.ID)
}

func TestShip_CommandLines(t *testing.T) {
	spy := &spyRunner{}
	eng, _ := newEngine(t, newRepoDir(t), spy)

	_, err := eng.Ship(context.Background())
	require.NoError(t, err)

	want := [][]string{
		{"git", "status"},
		{"git", "add", "-A"},
		{"git", "commit", "-m", "chore: ship it"},
		{"git", "push", "origin", "HEAD"},
		{"git", "log", "--oneline", "-5"},
	}
	assert.Equal(t, want, spy.calls)
}

func TestShip_MissingMarker(t *testing.T) {
	spy := &spyRunner{}
	eng, out := newEngine(t, t.TempDir(), spy)

	res, err := eng.Ship(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrNotRepository))
	assert.False(t, errors.Is(err, ErrWorkspace))
	assert.Empty(t, spy.calls, "no invocation may be attempted")

	text := out.String()
	start := strings.Index(text, "🚀 Starting git commit and push in")
	fatal := strings.Index(text, "❌ Error: Not a git repository")
	require.GreaterOrEqual(t, start, 0)
	require.GreaterOrEqual(t, fatal, 0)
	assert.Less(t, start, fatal, "opening banner comes before the diagnostic")
}

func TestShip_MarkerInParentDoesNotCount(t *testing.T) {
	root := newRepoDir(t)
	sub := filepath.Join(root, "web")
	require.NoError(t, os.Mkdir(sub, 0o755))

	spy := &spyRunner{}
	eng, _ := newEngine(t, sub, spy)

	_, err := eng.Ship(context.Background())
	assert.ErrorIs(t, err, ErrNotRepository)
	assert.Empty(t, spy.calls)
}

func TestShip_MissingWorkspace(t *testing.T) {
	spy := &spyRunner{}
	eng, out := newEngine(t, filepath.Join(t.TempDir(), "nope"), spy)

	_, err := eng.Ship(context.Background())
	assert.ErrorIs(t, err, ErrWorkspace)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, spy.calls)
	assert.Contains(t, out.String(), "Cannot use workspace")
}

func TestShip_WorkspaceIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	spy := &spyRunner{}
	eng, _ := newEngine(t, file, spy)

	_, err := eng.Ship(context.Background())
	assert.ErrorIs(t, err, ErrWorkspace)
	assert.Empty(t, spy.calls)
}

func TestShip_FailFastSteps(t *testing.T) {
	tests := []struct {
		failing string
		want    []string
		idx     int
	}{
		{failing: StepStatus, want: []string{"status"}, idx: 0},
		{failing: StepAdd, want: []string{"status", "add"}, idx: 1},
		{failing: StepCommit, want: []string{"status", "add", "commit"}, idx: 2},
	}
	for _, tt := range tests {
		t.Run(tt.failing, func(t *testing.T) {
			spy := &spyRunner{responses: map[string]response{
				tt.failing: {exit: 1, stderr: "boom"},
			}}
			eng, out := newEngine(t, newRepoDir(t), spy)

			res, err := eng.Ship(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.want, spy.attempted())
			assert.Equal(t, 1, res.ExitCode())
			assert.Equal(t, report.Aborted, res.Outcome())
			assert.Equal(t, tt.idx, res.FailedIdx)
			assert.Contains(t, out.String(), "❌ Error: boom")
			assert.NotContains(t, out.String(), "completed")

			for _, rec := range res.RunResult.Steps[tt.idx+1:] {
				assert.Equal(t, report.Skipped, rec.Status, rec.Name)
			}
		})
	}
}

func TestShip_CommitFailureScenario(t *testing.T) {
	spy := &spyRunner{responses: map[string]response{
		StepCommit: {exit: 1, stdout: "nothing to commit, working tree clean"},
	}}
	eng, _ := newEngine(t, newRepoDir(t), spy)

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Len(t, spy.calls, 3)
	assert.Equal(t, 1, res.ExitCode())
	assert.NotContains(t, spy.attempted(), StepPush)
	assert.NotContains(t, spy.attempted(), StepLog)
}

func TestShip_PushFailureTolerated(t *testing.T) {
	spy := &spyRunner{responses: map[string]response{
		StepPush: {exit: 128, stderr: "fatal: could not read Username"},
	}}
	eng, out := newEngine(t, newRepoDir(t), spy)

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StepNames, spy.attempted(), "log must still run after a failed push")
	assert.Equal(t, 0, res.ExitCode())
	assert.Equal(t, report.Warned, res.Outcome())
	assert.Equal(t, -1, res.FailedIdx)
	assert.Contains(t, out.String(), "⚠️  Warning: "+PushWarning)
	assert.Contains(t, out.String(), "completed with warnings")

	rec, err := res.RunResult.Step(StepPush)
	require.NoError(t, err)
	assert.Equal(t, report.Fail, rec.Status)
	assert.Equal(t, 128, rec.ExitCode)
}

func TestShip_LogResultIgnored(t *testing.T) {
	spy := &spyRunner{responses: map[string]response{
		StepLog: {exit: 128, stderr: "fatal: bad default revision 'HEAD'"},
	}}
	eng, out := newEngine(t, newRepoDir(t), spy)

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.OK, res.Outcome())
	assert.Equal(t, 0, res.ExitCode())
	assert.NotContains(t, out.String(), "Warning")
}

func TestShip_SuccessIsExitCodeOnly(t *testing.T) {
	t.Run("non-zero exit with success-looking output fails", func(t *testing.T) {
		spy := &spyRunner{responses: map[string]response{
			StepStatus: {exit: 2, stdout: "✅ Success! everything is fine"},
		}}
		eng, _ := newEngine(t, newRepoDir(t), spy)

		res, err := eng.Ship(context.Background())
		require.NoError(t, err)
		assert.Equal(t, report.Aborted, res.Outcome())
		assert.Equal(t, []string{"status"}, spy.attempted())
	})

	t.Run("zero exit with error-looking output succeeds", func(t *testing.T) {
		spy := &spyRunner{responses: map[string]response{
			StepStatus: {stderr: "fatal: error: failure"},
			StepAdd:    {stdout: "error"},
		}}
		eng, _ := newEngine(t, newRepoDir(t), spy)

		res, err := eng.Ship(context.Background())
		require.NoError(t, err)
		assert.Equal(t, report.OK, res.Outcome())
		assert.Len(t, spy.calls, 5)
	})
}

func TestShip_StartFailureIsAFailure(t *testing.T) {
	spy := &spyRunner{responses: map[string]response{
		StepStatus: {err: errors.New(`executing git: exec: "git": executable file not found in $PATH`)},
	}}
	eng, out := newEngine(t, newRepoDir(t), spy)

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode())
	assert.Equal(t, []string{"status"}, spy.attempted())
	assert.Contains(t, out.String(), "❌ Exception: executing git")

	rec := res.RunResult.Steps[0]
	assert.Equal(t, report.Error, rec.Status)
	assert.Equal(t, -1, rec.ExitCode)
	assert.Contains(t, rec.Detail, "executable file not found")
}

func TestShip_StartFailureOnPushTolerated(t *testing.T) {
	spy := &spyRunner{responses: map[string]response{
		StepPush: {err: errors.New("executing git: signal: killed")},
	}}
	eng, _ := newEngine(t, newRepoDir(t), spy)

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepNames, spy.attempted())
	assert.Equal(t, report.Warned, res.Outcome())
}

func TestShip_PolicyOverride(t *testing.T) {
	spy := &spyRunner{responses: map[string]response{
		StepPush: {exit: 1},
	}}
	eng, _ := newEngine(t, newRepoDir(t), spy)
	eng.Settings.Policies = map[string]string{StepPush: "abort"}

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"status", "add", "commit", "push"}, spy.attempted())
	assert.Equal(t, 1, res.ExitCode())
	assert.Equal(t, 3, res.FailedIdx)
}

func TestShip_WarnOverrideOnCommit(t *testing.T) {
	spy := &spyRunner{responses: map[string]response{
		StepCommit: {exit: 1},
	}}
	eng, out := newEngine(t, newRepoDir(t), spy)
	eng.Settings.Policies = map[string]string{StepCommit: "warn"}

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepNames, spy.attempted())
	assert.Equal(t, report.Warned, res.Outcome())
	assert.Contains(t, out.String(), "Warning: Creating Commit failed.")
}

func TestShip_RecordsOutput(t *testing.T) {
	spy := &spyRunner{responses: map[string]response{
		StepLog: {stdout: "abc123 chore: ship it"},
	}}
	eng, out := newEngine(t, newRepoDir(t), spy)

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)

	rec, err := res.RunResult.Step(StepLog)
	require.NoError(t, err)
	assert.Equal(t, "abc123 chore: ship it", rec.Stdout)
	assert.Equal(t, report.Pass, rec.Status)
	assert.Equal(t, "ignore", rec.Policy)
	assert.Contains(t, out.String(), "abc123 chore: ship it")
}

func TestShip_BannersInOrder(t *testing.T) {
	spy := &spyRunner{}
	eng, out := newEngine(t, newRepoDir(t), spy)

	_, err := eng.Ship(context.Background())
	require.NoError(t, err)

	text := out.String()
	last := -1
	for _, desc := range []string{"Current Git Status", "Adding All Changes", "Creating Commit", "Pushing to origin", "Recent Commits"} {
		idx := strings.Index(text, "📝 "+desc)
		require.GreaterOrEqual(t, idx, 0, desc)
		assert.Greater(t, idx, last, desc)
		last = idx
	}
}

func TestShip_BadMessageTemplate(t *testing.T) {
	spy := &spyRunner{}
	eng, _ := newEngine(t, newRepoDir(t), spy)
	eng.Settings.Message = "release {{.Version}}"

	_, err := eng.Ship(context.Background())
	require.Error(t, err)
	assert.Empty(t, spy.calls)
}

func TestShip_SkipClean(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	spy := &spyRunner{}
	eng, out := newEngine(t, dir, spy)
	eng.Settings.SkipClean = true

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Clean, res.Outcome())
	assert.Equal(t, 0, res.ExitCode())
	assert.Empty(t, spy.calls)
	assert.Contains(t, out.String(), "No changes to commit")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0o644))

	res, err = eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.OK, res.Outcome())
	assert.Equal(t, StepNames, spy.attempted())
}

func TestShip_BranchInMessage(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	spy := &spyRunner{}
	eng, _ := newEngine(t, dir, spy)
	eng.Settings.Message = "wip on {{.Branch}} ({{.Date}})"

	res, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "master", res.RunResult.Branch)
	assert.Equal(t, []string{"git", "commit", "-m", "wip on master (2026-10-18)"}, spy.calls[2])
}

func TestShip_LockHeldByAnotherRun(t *testing.T) {
	dir := newRepoDir(t)
	spy := &spyRunner{}
	eng, out := newEngine(t, dir, spy)
	eng.LockPath = LockPath(dir)

	release, err := acquireLock(eng.LockPath)
	require.NoError(t, err)

	result, err := eng.Ship(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, spy.calls)
	assert.Contains(t, out.String(), "another gitship run is in progress")

	release()
	result, err = eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.OK, result.Outcome())
}

func TestShip_LockReleasedAfterRun(t *testing.T) {
	dir := newRepoDir(t)
	eng, _ := newEngine(t, dir, &spyRunner{})
	eng.LockPath = LockPath(dir)

	_, err := eng.Ship(context.Background())
	require.NoError(t, err)

	release, err := acquireLock(eng.LockPath)
	require.NoError(t, err)
	release()
}

func TestShip_LargeOutputEchoedInFull(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 3<<20; i++ {
		fmt.Fprintf(&b, "\tnew file:   assets/img-%07d.png\n", i)
	}
	listing := b.String()

	spy := &spyRunner{responses: map[string]response{
		StepStatus: {stdout: listing},
	}}
	eng, out := newEngine(t, newRepoDir(t), spy)

	result, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.Equal(t, listing, result.RunResult.Steps[0].Stdout)
	assert.Contains(t, out.String(), listing)
	assert.NotContains(t, out.String(), "output truncated")
}

func TestShip_TruncatedOutputIsMarked(t *testing.T) {
	spy := &spyRunner{responses: map[string]response{
		StepAdd: {stdout: "add 'a.txt'", truncated: true},
	}}
	eng, out := newEngine(t, newRepoDir(t), spy)

	result, err := eng.Ship(context.Background())
	require.NoError(t, err)
	assert.True(t, result.RunResult.Steps[1].Truncated)
	assert.Contains(t, out.String(), "add 'a.txt'\n(output truncated at max_output)\n")
}
