package spawn

import (
	"fmt"
	"strings"
)

// DefaultAgentTimeout is the wall-clock bound wrapped around every spawned
// agent run, guarding against indefinite hangs from upstream API errors.
const DefaultAgentTimeout = 300

// ShellQuote wraps s in single quotes with embedded single quotes escaped,
// safe for interpolation into a POSIX shell command line.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// BuildRunCommand assembles the shell command executed inside a terminal
// pane: change to the working directory, then run the agent binary under a
// timeout. Every substituted argument is shell-quoted. With autoClose
// disabled a trailing shell keeps the pane open after the agent exits.
func BuildRunCommand(agentBin, name, model, prompt, cwd string, timeoutSeconds int, autoClose bool) string {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultAgentTimeout
	}
	cmd := fmt.Sprintf("cd %s && timeout %d %s run --agent %s --model %s --format json -- %s",
		ShellQuote(cwd),
		timeoutSeconds,
		ShellQuote(agentBin),
		ShellQuote(name),
		ShellQuote(model),
		ShellQuote(prompt),
	)
	if !autoClose {
		cmd += "; exec $SHELL"
	}
	return cmd
}
