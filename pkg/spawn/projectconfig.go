package spawn

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// projectConfigName is the agent binary's config file in the project root.
// The binary reads opencode.json there, not .opencode/config.json.
const projectConfigName = "opencode.json"

const projectConfigSchema = "https://opencode-files.s3.amazonaws.com/schemas/opencode.json"

// mcpServerName keys the coordination server's entry in the mcp section.
const mcpServerName = "opencode-teams"

// EnsureProjectConfig creates or updates <project>/opencode.json with the
// coordination server's MCP entry so spawned agents can reach it. An
// existing file keeps all of its other keys; only the opencode-teams entry
// under "mcp" is replaced. Returns the config path.
func EnsureProjectConfig(projectDir, serverCommand string, serverEnv map[string]string) (string, error) {
	path := filepath.Join(projectDir, projectConfigName)

	content := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &content); err != nil {
			return "", fmt.Errorf("%w: parse %s: %v", errdefs.ErrStorage, path, err)
		}
	case os.IsNotExist(err):
		content["$schema"] = projectConfigSchema
	default:
		return "", fmt.Errorf("%w: read %s: %v", errdefs.ErrStorage, path, err)
	}

	mcp, _ := content["mcp"].(map[string]any)
	if mcp == nil {
		mcp = map[string]any{}
	}
	entry := map[string]any{
		"type":    "local",
		"command": strings.Fields(serverCommand),
		"enabled": true,
	}
	if len(serverEnv) > 0 {
		entry["environment"] = serverEnv
	}
	mcp[mcpServerName] = entry
	content["mcp"] = mcp

	out, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: marshal %s: %v", errdefs.ErrStorage, path, err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", errdefs.ErrStorage, path, err)
	}
	return path, nil
}
