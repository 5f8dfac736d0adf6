package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrBusy indicates another run holds the repository's ship lock.
var ErrBusy = errors.New("another gitship run is in progress")

// LockPath returns the lock file that serialises runs in repoRoot.
func LockPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", "gitship", "ship.lock")
}

// acquireLock takes the lock at path without blocking. The returned
// function releases it.
func acquireLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() { _ = fl.Unlock() }, nil
}
