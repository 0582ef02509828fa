// Package coordinator exposes the team coordination surface as named tools
// over JSON arguments: team lifecycle, messaging, the task board, and
// teammate process control. One coordinator serves one lead session and
// binds to at most one live team at a time.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
	"github.com/jg-phare/opencode-teams/pkg/inbox"
	"github.com/jg-phare/opencode-teams/pkg/spawn"
	"github.com/jg-phare/opencode-teams/pkg/store"
	"github.com/jg-phare/opencode-teams/pkg/tasks"
	"github.com/jg-phare/opencode-teams/pkg/teams"
)

// ToolPrefix namespaces every coordination tool.
const ToolPrefix = "opencode-teams_"

// Handler executes one tool call against decoded JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Coordinator owns the domain components and the per-session team binding.
type Coordinator struct {
	registry *teams.Registry
	inbox    *inbox.Inbox
	tasks    *tasks.Engine
	spawner  *spawn.Spawner
	log      zerolog.Logger

	handlers map[string]Handler
	allow    *Allowlist

	mu          sync.Mutex
	sessionTeam string
}

// SetAllowlist restricts which tools Call will dispatch.
func (c *Coordinator) SetAllowlist(al *Allowlist) { c.allow = al }

// New wires a Coordinator over a store root, with spawn configuration from
// cfg. The tasks engine notifies through the inbox.
func New(st *store.Store, cfg spawn.Config, log zerolog.Logger) *Coordinator {
	registry := teams.NewRegistry(st)
	ib := inbox.New(st, registry)
	engine := tasks.NewEngine(st)
	c := &Coordinator{
		registry: registry,
		inbox:    ib,
		tasks:    engine,
		spawner:  spawn.NewSpawner(registry, ib, engine, cfg, log),
		log:      log,
	}
	engine.SetNotifier(&inboxNotifier{registry: registry, inbox: ib, log: log})
	c.handlers = map[string]Handler{
		"team_create":               c.teamCreate,
		"team_delete":               c.teamDelete,
		"read_config":               c.readConfig,
		"spawn_teammate":            c.spawnTeammate,
		"force_kill_teammate":       c.forceKillTeammate,
		"process_shutdown_approved": c.processShutdownApproved,
		"send_message":              c.sendMessage,
		"read_inbox":                c.readInbox,
		"poll_inbox":                c.pollInbox,
		"task_create":               c.taskCreate,
		"task_update":               c.taskUpdate,
		"task_list":                 c.taskList,
		"task_get":                  c.taskGet,
		"list_agent_templates":      c.listTemplates,
		"check_agent_health":        c.checkHealth,
		"check_all_agents_health":   c.checkAllHealth,
	}
	return c
}

// Spawner exposes the process manager, mainly for test seam injection.
func (c *Coordinator) Spawner() *spawn.Spawner { return c.spawner }

// Tools returns the tool names this coordinator serves, prefixed, sorted.
func (c *Coordinator) Tools() []string {
	out := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		out = append(out, ToolPrefix+name)
	}
	sort.Strings(out)
	return out
}

// ErrorBody is the wire shape of a failed tool call.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Envelope wraps every tool result: exactly one of Result and Error is set.
type Envelope struct {
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// Call runs a tool by name (prefixed or bare) and returns its raw result.
func (c *Coordinator) Call(ctx context.Context, tool string, args json.RawMessage) (any, error) {
	name := tool
	if len(name) > len(ToolPrefix) && name[:len(ToolPrefix)] == ToolPrefix {
		name = name[len(ToolPrefix):]
	}
	h, ok := c.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: tool %q", errdefs.ErrNotFound, tool)
	}
	if !c.allow.Allows(ToolPrefix + name) {
		return nil, fmt.Errorf("%w: tool %q is not permitted", errdefs.ErrInvalidArg, tool)
	}
	return h(ctx, args)
}

// Dispatch runs a tool and folds the outcome into the error envelope.
func (c *Coordinator) Dispatch(ctx context.Context, tool string, args json.RawMessage) Envelope {
	result, err := c.Call(ctx, tool, args)
	if err != nil {
		c.log.Debug().Err(err).Str("tool", tool).Msg("tool call failed")
		return Envelope{Error: &ErrorBody{Kind: errdefs.Kind(err), Message: err.Error()}}
	}
	return Envelope{Result: result}
}

// bindTeam claims the session's one-team slot.
func (c *Coordinator) bindTeam(team string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionTeam != "" && c.sessionTeam != team {
		return fmt.Errorf("%w: session already coordinates team %q", errdefs.ErrBusy, c.sessionTeam)
	}
	c.sessionTeam = team
	return nil
}

// unbindTeam releases the slot if it holds team.
func (c *Coordinator) unbindTeam(team string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionTeam == team {
		c.sessionTeam = ""
	}
}

// decode unmarshals tool arguments, folding malformed JSON into
// ErrInvalidArg.
func decode(args json.RawMessage, into any) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, into); err != nil {
		return fmt.Errorf("%w: %v", errdefs.ErrInvalidArg, err)
	}
	return nil
}
