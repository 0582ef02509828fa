// Package store owns the on-disk tree shared by every coordinator process
// on the host: path resolution under a configurable root, atomic JSON
// writes, and advisory file locks. No domain logic lives here.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// DefaultDirName is the directory under the user's home that holds all
// team state when no override is given.
const DefaultDirName = ".opencode-teams"

// Store resolves paths under a single root directory.
type Store struct {
	root string
}

// New creates a Store rooted at dir. An empty dir resolves to
// ~/.opencode-teams.
func New(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: resolve home directory: %v", errdefs.ErrStorage, err)
		}
		dir = filepath.Join(home, DefaultDirName)
	}
	return &Store{root: dir}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// TeamDir returns teams/<team>.
func (s *Store) TeamDir(team string) string {
	return filepath.Join(s.root, "teams", team)
}

// TeamConfigPath returns teams/<team>/config.json.
func (s *Store) TeamConfigPath(team string) string {
	return filepath.Join(s.TeamDir(team), "config.json")
}

// TeamLockPath returns teams/<team>/.lock, serializing config mutations.
func (s *Store) TeamLockPath(team string) string {
	return filepath.Join(s.TeamDir(team), ".lock")
}

// InboxDir returns teams/<team>/inboxes.
func (s *Store) InboxDir(team string) string {
	return filepath.Join(s.TeamDir(team), "inboxes")
}

// InboxPath returns teams/<team>/inboxes/<agent>.json.
func (s *Store) InboxPath(team, agent string) string {
	return filepath.Join(s.InboxDir(team), agent+".json")
}

// InboxLockPath returns the single lock file shared by all of a team's
// inboxes.
func (s *Store) InboxLockPath(team string) string {
	return filepath.Join(s.InboxDir(team), ".lock")
}

// HealthPath returns teams/<team>/health.json.
func (s *Store) HealthPath(team string) string {
	return filepath.Join(s.TeamDir(team), "health.json")
}

// TasksDir returns tasks/<team>.
func (s *Store) TasksDir(team string) string {
	return filepath.Join(s.root, "tasks", team)
}

// TaskPath returns tasks/<team>/<id>.json.
func (s *Store) TaskPath(team string, id int) string {
	return filepath.Join(s.TasksDir(team), strconv.Itoa(id)+".json")
}

// TasksLockPath returns the per-team tasks lock file.
func (s *Store) TasksLockPath(team string) string {
	return filepath.Join(s.TasksDir(team), ".lock")
}
