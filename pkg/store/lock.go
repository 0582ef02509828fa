package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// WithLock acquires an exclusive advisory lock on lockPath, runs fn, and
// releases the lock on every exit path. The lock file (and its parent
// directory) is created if absent. Locks are per-directory — one for a
// team's inboxes, one for a team's tasks — and must never be acquired
// recursively. Callers must not spawn subprocesses or sleep while holding
// one.
func WithLock(lockPath string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("%w: create lock directory: %v", errdefs.ErrStorage, err)
	}

	lk := flock.New(lockPath)
	if err := lk.Lock(); err != nil {
		return fmt.Errorf("%w: acquire lock %s: %v", errdefs.ErrStorage, lockPath, err)
	}
	defer lk.Unlock()

	return fn()
}
