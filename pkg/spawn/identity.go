package spawn

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// identityDirName is the project-scoped directory holding agent identity
// files read by the agent binary at startup.
const identityDirName = ".opencode"

// frontmatter is the structured header of an identity file.
type frontmatter struct {
	Description string          `yaml:"description"`
	Model       string          `yaml:"model"`
	Mode        string          `yaml:"mode"`
	Permission  string          `yaml:"permission"`
	Tools       map[string]bool `yaml:"tools"`
}

// IdentitySpec parameterizes identity-file generation for one teammate.
type IdentitySpec struct {
	AgentID            string
	Name               string
	TeamName           string
	Color              string
	Model              string
	RoleInstructions   string
	CustomInstructions string
}

// IdentityPath returns <project>/.opencode/agents/<name>.md.
func IdentityPath(projectDir, name string) string {
	return filepath.Join(projectDir, identityDirName, "agents", name+".md")
}

// RenderIdentity produces the complete identity document: YAML frontmatter
// with the tool allowlist (a wildcard grants every coordination tool),
// then the prose body stating identity, the required tool-call workflow,
// and the shutdown protocol.
func RenderIdentity(spec IdentitySpec) (string, error) {
	fm := frontmatter{
		Description: fmt.Sprintf("Team agent %s on team %s", spec.Name, spec.TeamName),
		Model:       spec.Model,
		Mode:        "primary",
		Permission:  "allow",
		Tools: map[string]bool{
			"read":      true,
			"write":     true,
			"edit":      true,
			"bash":      true,
			"glob":      true,
			"grep":      true,
			"list":      true,
			"webfetch":  true,
			"websearch": true,
			"todoread":  true,
			"todowrite": true,
			// Wildcard enables every coordination tool.
			"opencode-teams_*": true,
		},
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("%w: marshal frontmatter: %v", errdefs.ErrStorage, err)
	}

	var parts []string

	parts = append(parts, fmt.Sprintf(`# Agent Identity

You are **%s**, a member of team **%s**.

- Agent ID: `+"`%s`"+`
- Color: %s`, spec.Name, spec.TeamName, spec.AgentID, spec.Color))

	parts = append(parts, `# Available MCP Tools

You MUST use these `+"`opencode-teams_*`"+` MCP tools for all team coordination.
Do NOT invent custom workflows, scripts, or coordination frameworks.

**Team Coordination:**
- `+"`opencode-teams_read_config`"+` — read team configuration

**Messaging:**
- `+"`opencode-teams_read_inbox`"+` — check your inbox for messages
- `+"`opencode-teams_send_message`"+` — send a message to a teammate or the lead
- `+"`opencode-teams_poll_inbox`"+` — long-poll for new messages

**Task Management:**
- `+"`opencode-teams_task_list`"+` — list all tasks for the team
- `+"`opencode-teams_task_get`"+` — get details of a specific task
- `+"`opencode-teams_task_create`"+` — create a new task
- `+"`opencode-teams_task_update`"+` — update task status or claim a task

**Lifecycle:**
- `+"`opencode-teams_check_agent_health`"+` — check health of a single agent
- `+"`opencode-teams_check_all_agents_health`"+` — check health of all agents
- `+"`opencode-teams_process_shutdown_approved`"+` — acknowledge shutdown`)

	if ri := strings.TrimSpace(spec.RoleInstructions); ri != "" {
		parts = append(parts, ri)
	}
	if ci := strings.TrimSpace(spec.CustomInstructions); ci != "" {
		parts = append(parts, "# Additional Instructions\n\n"+ci)
	}

	parts = append(parts, fmt.Sprintf(`# Workflow

Follow this loop while working:

1. **Check inbox** — call `+"`opencode-teams_read_inbox(teamName=%[1]q, agentName=%[2]q)`"+` every 3-5 tool calls. Always check before starting new work.
2. **Check tasks** — call `+"`opencode-teams_task_list(teamName=%[1]q)`"+` to find available tasks. Claim one with `+"`opencode-teams_task_update(teamName=%[1]q, id=<id>, status=\"in_progress\", owner=%[2]q)`"+`.
3. **Do the work** — use your tools to complete the task.
4. **Report progress** — send updates to the lead via `+"`opencode-teams_send_message(teamName=%[1]q, type=\"message\", recipient=<lead>, content=<update>, summary=<short>, sender=%[2]q)`"+`.
5. **Mark done** — call `+"`opencode-teams_task_update(teamName=%[1]q, id=<id>, status=\"completed\", owner=%[2]q)`"+` when finished.`, spec.TeamName, spec.Name))

	parts = append(parts, `# Important Rules

- Use `+"`opencode-teams_*`"+` MCP tools for ALL team communication and task management
- Do NOT create your own coordination systems, parallel agent frameworks, or orchestration patterns
- Do NOT use slash commands or skills from other projects for team coordination
- Focus on your assigned task — report to the lead when done or blocked
- When uncertain, ask the lead via `+"`opencode-teams_send_message`"+` rather than improvising`)

	parts = append(parts, `# Shutdown Protocol

When you receive a `+"`shutdown_request`"+` message, acknowledge it and prepare to exit gracefully.`)

	body := strings.Join(parts, "\n\n")
	return fmt.Sprintf("---\n%s---\n\n%s\n", header, body), nil
}

// WriteIdentity writes the identity document for a teammate, creating the
// agents directory as needed. Overwrites any existing file (re-spawn).
func WriteIdentity(projectDir string, spec IdentitySpec) (string, error) {
	content, err := RenderIdentity(spec)
	if err != nil {
		return "", err
	}
	path := IdentityPath(projectDir, spec.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: create agents dir: %v", errdefs.ErrStorage, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("%w: write identity file: %v", errdefs.ErrStorage, err)
	}
	return path, nil
}

// RemoveIdentity deletes a teammate's identity file; a missing file is not
// an error.
func RemoveIdentity(projectDir, name string) error {
	err := os.Remove(IdentityPath(projectDir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove identity file: %v", errdefs.ErrStorage, err)
	}
	return nil
}
