package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Precondition failures. Both are reported before any command runs.
var (
	// ErrWorkspace indicates the workspace directory is missing or unusable.
	ErrWorkspace = errors.New("workspace unavailable")
	// ErrNotRepository indicates the workspace holds no .git marker.
	ErrNotRepository = errors.New("not a git repository")
)

// PreconditionError describes a workspace that cannot be shipped from.
type PreconditionError struct {
	Kind error // ErrWorkspace or ErrNotRepository
	Path string
	Err  error // underlying cause, if any
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

// Is matches the precondition's kind.
func (e *PreconditionError) Is(target error) bool {
	return target == e.Kind
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// CheckWorkspace verifies that dir exists, is a directory, and holds a .git
// marker directly inside it. Parent repositories do not count.
func CheckWorkspace(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &PreconditionError{Kind: ErrWorkspace, Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &PreconditionError{Kind: ErrWorkspace, Path: dir, Err: errors.New("not a directory")}
	}
	// .git may be a directory or, for worktrees and submodules, a file.
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		if os.IsNotExist(err) {
			return &PreconditionError{Kind: ErrNotRepository, Path: dir}
		}
		return &PreconditionError{Kind: ErrNotRepository, Path: dir, Err: err}
	}
	return nil
}

func openRepository(dir string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
}

// CurrentBranch returns the short name of the branch checked out in dir,
// including an unborn branch, or "HEAD" when detached. It returns "" when
// dir cannot be opened as a repository.
func CurrentBranch(dir string) string {
	repo, err := openRepository(dir)
	if err != nil {
		return ""
	}
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return ""
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		return head.Target().Short()
	}
	return "HEAD"
}

// IsClean reports whether the worktree in dir has nothing to commit,
// counting untracked files as changes.
func IsClean(dir string) (bool, error) {
	repo, err := openRepository(dir)
	if err != nil {
		return false, fmt.Errorf("opening repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("opening worktree: %w", err)
	}
	// git honours core.excludesfile from the user and system config;
	// Worktree.Status only reads .gitignore files.
	root := osfs.New("/")
	for _, load := range []func(billy.Filesystem) ([]gitignore.Pattern, error){
		gitignore.LoadSystemPatterns,
		gitignore.LoadGlobalPatterns,
	} {
		ps, err := load(root)
		if err != nil {
			return false, fmt.Errorf("loading excludes: %w", err)
		}
		wt.Excludes = append(wt.Excludes, ps...)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("reading worktree status: %w", err)
	}
	return status.IsClean(), nil
}
