package teams

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
	"github.com/jg-phare/opencode-teams/pkg/store"
)

// Registry performs team lifecycle and membership mutation against the
// store. All config mutations for one team are serialized by that team's
// config lock.
type Registry struct {
	store *store.Store
	now   func() time.Time
}

// NewRegistry creates a Registry backed by st.
func NewRegistry(st *store.Store) *Registry {
	return &Registry{store: st, now: time.Now}
}

// Store exposes the backing store for collaborating components.
func (r *Registry) Store() *store.Store { return r.store }

// Create validates names, builds the directory tree, and writes the initial
// config with a single lead member and an empty lead inbox.
func (r *Registry) Create(teamName, leadName, leadModel string) (Team, error) {
	if err := ValidateName(teamName); err != nil {
		return Team{}, err
	}
	if err := ValidateName(leadName); err != nil {
		return Team{}, err
	}

	// Mkdir is the claim: exactly one of two racing creates wins the
	// directory, the other sees EEXIST.
	teamDir := r.store.TeamDir(teamName)
	if err := os.MkdirAll(filepath.Dir(teamDir), 0o755); err != nil {
		return Team{}, fmt.Errorf("%w: create %s: %v", errdefs.ErrStorage, filepath.Dir(teamDir), err)
	}
	if err := os.Mkdir(teamDir, 0o755); err != nil {
		if os.IsExist(err) {
			return Team{}, fmt.Errorf("%w: team %q", errdefs.ErrExists, teamName)
		}
		return Team{}, fmt.Errorf("%w: create %s: %v", errdefs.ErrStorage, teamDir, err)
	}
	for _, dir := range []string{r.store.InboxDir(teamName), r.store.TasksDir(teamName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Team{}, fmt.Errorf("%w: create %s: %v", errdefs.ErrStorage, dir, err)
		}
	}

	now := r.now().UnixMilli()
	sessionID := uuid.New().String()
	team := Team{
		Name:      teamName,
		CreatedAt: now,
		SessionID: sessionID,
		LeadModel: leadModel,
		Members: []Member{
			LeadMember{
				AgentID:   AgentID(leadName, teamName),
				Name:      leadName,
				Role:      RoleLead,
				Color:     ColorForIndex(0),
				JoinedAt:  now,
				SessionID: sessionID,
			},
		},
	}

	if err := store.WriteJSONAtomic(r.store.TeamConfigPath(teamName), team); err != nil {
		return Team{}, err
	}
	if err := store.WriteJSONAtomic(r.store.InboxPath(teamName, leadName), []any{}); err != nil {
		return Team{}, err
	}
	return team, nil
}

// Read loads a team config. A missing config means the team does not exist.
func (r *Registry) Read(teamName string) (Team, error) {
	var team Team
	if err := store.ReadJSON(r.store.TeamConfigPath(teamName), &team); err != nil {
		if errdefs.IsNotFound(err) {
			return Team{}, fmt.Errorf("%w: team %q", errdefs.ErrNotFound, teamName)
		}
		return Team{}, err
	}
	return team, nil
}

// Delete removes the team directory and the task directory. It refuses to
// delete a team that still has teammate members.
func (r *Registry) Delete(teamName string) error {
	team, err := r.Read(teamName)
	if err != nil {
		return err
	}
	if n := len(team.Teammates()); n > 0 {
		return fmt.Errorf("%w: team %q still has %d teammate(s)", errdefs.ErrBusy, teamName, n)
	}
	if err := os.RemoveAll(r.store.TeamDir(teamName)); err != nil {
		return fmt.Errorf("%w: remove team dir: %v", errdefs.ErrStorage, err)
	}
	if err := os.RemoveAll(r.store.TasksDir(teamName)); err != nil {
		return fmt.Errorf("%w: remove tasks dir: %v", errdefs.ErrStorage, err)
	}
	return nil
}

// AddTeammate appends a teammate to the config under the team lock,
// assigning the next palette color and the join timestamp. The returned
// member carries the assigned fields.
func (r *Registry) AddTeammate(teamName string, tm TeammateMember) (TeammateMember, error) {
	if err := ValidateName(tm.Name); err != nil {
		return TeammateMember{}, err
	}
	err := store.WithLock(r.store.TeamLockPath(teamName), func() error {
		team, err := r.Read(teamName)
		if err != nil {
			return err
		}
		if team.HasMember(tm.Name) {
			return fmt.Errorf("%w: member %q", errdefs.ErrExists, tm.Name)
		}
		tm.AgentID = AgentID(tm.Name, teamName)
		tm.Role = RoleTeammate
		tm.Color = ColorForIndex(len(team.Members))
		tm.JoinedAt = r.now().UnixMilli()
		team.Members = append(team.Members, tm)
		return store.WriteJSONAtomic(r.store.TeamConfigPath(teamName), team)
	})
	if err != nil {
		return TeammateMember{}, err
	}
	return tm, nil
}

// UpdateTeammate rewrites the named teammate's record under the team lock.
func (r *Registry) UpdateTeammate(teamName, name string, mutate func(*TeammateMember)) error {
	return store.WithLock(r.store.TeamLockPath(teamName), func() error {
		team, err := r.Read(teamName)
		if err != nil {
			return err
		}
		for i, m := range team.Members {
			if tm, ok := m.(TeammateMember); ok && tm.Name == name {
				mutate(&tm)
				team.Members[i] = tm
				return store.WriteJSONAtomic(r.store.TeamConfigPath(teamName), team)
			}
		}
		return fmt.Errorf("%w: teammate %q", errdefs.ErrNotFound, name)
	})
}

// RemoveMember drops the named teammate from the config under the team
// lock. Removing the lead is not permitted.
func (r *Registry) RemoveMember(teamName, name string) error {
	return store.WithLock(r.store.TeamLockPath(teamName), func() error {
		team, err := r.Read(teamName)
		if err != nil {
			return err
		}
		for i, m := range team.Members {
			if m.MemberName() != name {
				continue
			}
			if m.MemberRole() == RoleLead {
				return fmt.Errorf("%w: cannot remove the lead", errdefs.ErrInvalidArg)
			}
			team.Members = append(team.Members[:i], team.Members[i+1:]...)
			return store.WriteJSONAtomic(r.store.TeamConfigPath(teamName), team)
		}
		return fmt.Errorf("%w: member %q", errdefs.ErrNotFound, name)
	})
}

// IsMember reports whether name is a member of the team.
func (r *Registry) IsMember(teamName, name string) (bool, error) {
	team, err := r.Read(teamName)
	if err != nil {
		return false, err
	}
	return team.HasMember(name), nil
}
