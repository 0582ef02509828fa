// Package spawn manages the lifecycle of external teammate processes:
// role templates, identity files, tmux panes and detached desktop
// subprocesses, plus health probing of running teammates.
package spawn

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
	"github.com/jg-phare/opencode-teams/pkg/inbox"
	"github.com/jg-phare/opencode-teams/pkg/store"
	"github.com/jg-phare/opencode-teams/pkg/tasks"
	"github.com/jg-phare/opencode-teams/pkg/teams"
)

// defaultAgentBin is the CLI launched inside each terminal pane.
const defaultAgentBin = "opencode"

// Config carries the environment-derived spawn settings.
type Config struct {
	// ProjectDir is the default working directory for new teammates and
	// the root the identity files are written under.
	ProjectDir string
	// AgentBin overrides the agent CLI name; empty means "opencode".
	AgentBin string
	// DefaultBackend applies when a spawn request names none.
	DefaultBackend teams.Backend
	// UseTmuxWindows opens whole windows instead of split panes.
	UseTmuxWindows bool
}

// Spawner creates, kills, and probes teammates. The process-facing fields
// (Tmux, Launch, Alive, Terminate, Discover) are injectable so tests can
// run without a multiplexer or real subprocesses.
type Spawner struct {
	Registry *teams.Registry
	Inbox    *inbox.Inbox
	Tasks    *tasks.Engine
	Config   Config
	Log      zerolog.Logger

	Tmux      *Tmux
	Launch    LaunchFunc
	Alive     func(pid int) bool
	Terminate func(pid int) error
	Discover  func() (string, error)

	now func() time.Time
}

// NewSpawner wires a Spawner with the production process seams.
func NewSpawner(reg *teams.Registry, ib *inbox.Inbox, eng *tasks.Engine, cfg Config, log zerolog.Logger) *Spawner {
	if cfg.AgentBin == "" {
		cfg.AgentBin = defaultAgentBin
	}
	return &Spawner{
		Registry:  reg,
		Inbox:     ib,
		Tasks:     eng,
		Config:    cfg,
		Log:       log,
		Tmux:      NewTmux(ExecRunner{}, cfg.UseTmuxWindows),
		Launch:    LaunchDesktop,
		Alive:     processAlive,
		Terminate: terminateProcess,
		Discover:  DiscoverDesktopBinary,
		now:       time.Now,
	}
}

// SpawnRequest describes one teammate to create.
type SpawnRequest struct {
	TeamName           string
	Name               string
	Prompt             string
	Model              string
	Backend            string
	Template           string
	CustomInstructions string
	Cwd                string
	PlanModeRequired   bool
	AutoClose          bool
}

func errNotMember(team, name string) error {
	return fmt.Errorf("%w: %q is not a teammate of %q", errdefs.ErrNotFound, name, team)
}

// subagentType records what kind of agent was spawned; template-less
// teammates are general-purpose.
func subagentType(tpl Template) string {
	if tpl.Name == "" {
		return "general-purpose"
	}
	return tpl.Name
}

// Spawn registers a teammate, writes its identity file, delivers the
// initial prompt to its inbox, and launches the backend process. Any
// failure after registration rolls the config, inbox, and identity file
// back so a failed spawn leaves no trace.
func (s *Spawner) Spawn(ctx context.Context, req SpawnRequest) (teams.TeammateMember, error) {
	team, err := s.Registry.Read(req.TeamName)
	if err != nil {
		return teams.TeammateMember{}, err
	}
	if lead, ok := team.Lead(); ok && req.Name == lead.Name {
		return teams.TeammateMember{}, fmt.Errorf("%w: name %q is taken by the lead", errdefs.ErrInvalidName, req.Name)
	}
	if req.Name == "*" {
		return teams.TeammateMember{}, fmt.Errorf("%w: %q is the broadcast recipient", errdefs.ErrInvalidName, req.Name)
	}

	var tpl Template
	if req.Template != "" {
		tpl, err = LookupTemplate(req.Template)
		if err != nil {
			return teams.TeammateMember{}, err
		}
	}
	backend, err := teams.ParseBackend(req.Backend)
	if err != nil {
		return teams.TeammateMember{}, err
	}
	if req.Backend == "" {
		backend = s.Config.DefaultBackend
		if backend == "" {
			backend = teams.BackendTerminal
		}
	}

	model := req.Model
	if model == "" || model == "auto" {
		model = team.LeadModel
	}
	cwd := req.Cwd
	if cwd == "" {
		cwd = s.Config.ProjectDir
	}
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	tm, err := s.Registry.AddTeammate(req.TeamName, teams.TeammateMember{
		Name:             req.Name,
		Model:            model,
		Prompt:           req.Prompt,
		PlanModeRequired: req.PlanModeRequired,
		Backend:          backend,
		Cwd:              cwd,
		SubagentType:     subagentType(tpl),
	})
	if err != nil {
		return teams.TeammateMember{}, err
	}

	rollback := func(cause error) (teams.TeammateMember, error) {
		if err := s.Registry.RemoveMember(req.TeamName, req.Name); err != nil {
			s.Log.Warn().Err(err).Str("teammate", req.Name).Msg("spawn rollback: remove member")
		}
		s.removeInbox(req.TeamName, req.Name)
		if err := RemoveIdentity(s.identityRoot(cwd), req.Name); err != nil {
			s.Log.Warn().Err(err).Str("teammate", req.Name).Msg("spawn rollback: remove identity")
		}
		return teams.TeammateMember{}, cause
	}

	lead, _ := team.Lead()
	if _, err := s.Inbox.Append(req.TeamName, inbox.Message{
		From:    lead.Name,
		To:      req.Name,
		Type:    inbox.TypeMessage,
		Content: req.Prompt,
		Color:   lead.Color,
	}); err != nil {
		return rollback(err)
	}

	spec := IdentitySpec{
		AgentID:            tm.AgentID,
		Name:               req.Name,
		TeamName:           req.TeamName,
		Color:              tm.Color,
		Model:              model,
		RoleInstructions:   tpl.RoleInstructions,
		CustomInstructions: req.CustomInstructions,
	}
	identityPath, err := WriteIdentity(s.identityRoot(cwd), spec)
	if err != nil {
		return rollback(err)
	}

	switch backend {
	case teams.BackendDesktop:
		bin, err := s.Discover()
		if err != nil {
			return rollback(err)
		}
		pid, err := s.Launch(bin, identityPath)
		if err != nil {
			return rollback(err)
		}
		tm.ProcessID = pid
		if err := s.Registry.UpdateTeammate(req.TeamName, req.Name, func(m *teams.TeammateMember) {
			m.ProcessID = pid
		}); err != nil {
			return rollback(err)
		}
		s.Log.Info().Str("teammate", req.Name).Int("pid", pid).Msg("spawned desktop teammate")

	default:
		command := BuildRunCommand(s.Config.AgentBin, req.Name, model, req.Prompt, cwd, DefaultAgentTimeout, req.AutoClose)
		paneID, err := s.Tmux.Split(ctx, cwd, command)
		if err != nil {
			return rollback(err)
		}
		tm.PaneID = paneID
		if err := s.Registry.UpdateTeammate(req.TeamName, req.Name, func(m *teams.TeammateMember) {
			m.PaneID = paneID
		}); err != nil {
			if kerr := s.Tmux.KillPane(ctx, paneID); kerr != nil {
				s.Log.Warn().Err(kerr).Str("pane", paneID).Msg("spawn rollback: kill pane")
			}
			return rollback(err)
		}
		s.Log.Info().Str("teammate", req.Name).Str("pane", paneID).Msg("spawned terminal teammate")
	}

	return tm, nil
}

// Kill force-terminates a teammate and removes every trace of it: the
// pane or process, the config entry, its task ownership, its inbox, and
// its identity file. Killing a teammate that is already gone succeeds.
func (s *Spawner) Kill(ctx context.Context, teamName, name string) error {
	team, err := s.Registry.Read(teamName)
	if err != nil {
		return err
	}
	tm, ok := team.Teammate(name)
	if !ok {
		return nil
	}

	switch tm.Backend {
	case teams.BackendDesktop:
		if tm.ProcessID > 0 {
			if err := s.Terminate(tm.ProcessID); err != nil {
				s.Log.Warn().Err(err).Int("pid", tm.ProcessID).Msg("terminate teammate process")
			}
		}
	default:
		if tm.PaneID != "" {
			if err := s.Tmux.KillPane(ctx, tm.PaneID); err != nil {
				s.Log.Warn().Err(err).Str("pane", tm.PaneID).Msg("kill teammate pane")
			}
		}
	}

	return s.forget(teamName, tm)
}

// ShutdownApproved removes a teammate that exited on its own after an
// approved shutdown: the cleanup of Kill without signaling the process.
func (s *Spawner) ShutdownApproved(teamName, name string) error {
	team, err := s.Registry.Read(teamName)
	if err != nil {
		return err
	}
	tm, ok := team.Teammate(name)
	if !ok {
		return nil
	}
	return s.forget(teamName, tm)
}

// forget drops a teammate's config entry, task ownership, inbox, and
// identity file.
func (s *Spawner) forget(teamName string, tm teams.TeammateMember) error {
	if err := s.Registry.RemoveMember(teamName, tm.Name); err != nil && !errdefs.IsNotFound(err) {
		return err
	}
	if err := s.Tasks.ReleaseOwner(teamName, tm.Name); err != nil {
		s.Log.Warn().Err(err).Str("teammate", tm.Name).Msg("release task ownership")
	}
	s.removeInbox(teamName, tm.Name)
	if err := RemoveIdentity(s.identityRoot(tm.Cwd), tm.Name); err != nil {
		s.Log.Warn().Err(err).Str("teammate", tm.Name).Msg("remove identity file")
	}
	s.Log.Info().Str("team", teamName).Str("teammate", tm.Name).Msg("teammate removed")
	return nil
}

// removeInbox deletes the agent's inbox file under the team inbox lock.
func (s *Spawner) removeInbox(teamName, name string) {
	st := s.Registry.Store()
	err := store.WithLock(st.InboxLockPath(teamName), func() error {
		err := os.Remove(st.InboxPath(teamName, name))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	})
	if err != nil {
		s.Log.Warn().Err(err).Str("teammate", name).Msg("remove inbox file")
	}
}

// identityRoot picks the project directory the identity file lives under:
// the teammate's working directory, falling back to the configured project
// directory.
func (s *Spawner) identityRoot(cwd string) string {
	if cwd != "" {
		return cwd
	}
	return s.Config.ProjectDir
}
