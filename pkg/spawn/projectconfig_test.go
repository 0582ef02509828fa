package spawn

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readProjectConfig(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var content map[string]any
	if err := json.Unmarshal(data, &content); err != nil {
		t.Fatalf("bad json in %s: %v", path, err)
	}
	return content
}

func TestEnsureProjectConfig_CreatesFile(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureProjectConfig(dir, "opencode-teams serve", map[string]string{"OPENCODE_TEAMS_DIR": "/tmp/teams"})
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "opencode.json") {
		t.Errorf("path = %q", path)
	}

	content := readProjectConfig(t, path)
	if content["$schema"] != projectConfigSchema {
		t.Errorf("$schema = %v", content["$schema"])
	}
	mcp := content["mcp"].(map[string]any)
	entry := mcp["opencode-teams"].(map[string]any)
	if entry["type"] != "local" || entry["enabled"] != true {
		t.Errorf("entry = %+v", entry)
	}
	cmd := entry["command"].([]any)
	if len(cmd) != 2 || cmd[0] != "opencode-teams" || cmd[1] != "serve" {
		t.Errorf("command = %v", cmd)
	}
	env := entry["environment"].(map[string]any)
	if env["OPENCODE_TEAMS_DIR"] != "/tmp/teams" {
		t.Errorf("environment = %v", env)
	}
}

func TestEnsureProjectConfig_MergePreservesExistingKeys(t *testing.T) {
	dir := t.TempDir()
	existing := `{"theme":"dark","mcp":{"other":{"type":"local","command":["other-server"]}}}`
	if err := os.WriteFile(filepath.Join(dir, "opencode.json"), []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := EnsureProjectConfig(dir, "opencode-teams serve", nil)
	if err != nil {
		t.Fatal(err)
	}

	content := readProjectConfig(t, path)
	if content["theme"] != "dark" {
		t.Errorf("existing key lost: %+v", content)
	}
	mcp := content["mcp"].(map[string]any)
	if _, ok := mcp["other"]; !ok {
		t.Error("existing mcp entry lost")
	}
	entry := mcp["opencode-teams"].(map[string]any)
	if entry["type"] != "local" {
		t.Errorf("entry = %+v", entry)
	}
	if _, ok := entry["environment"]; ok {
		t.Error("empty environment should be omitted")
	}
}

func TestEnsureProjectConfig_Idempotent(t *testing.T) {
	dir := t.TempDir()
	if _, err := EnsureProjectConfig(dir, "opencode-teams serve", nil); err != nil {
		t.Fatal(err)
	}
	path, err := EnsureProjectConfig(dir, "opencode-teams serve", nil)
	if err != nil {
		t.Fatal(err)
	}
	mcp := readProjectConfig(t, path)["mcp"].(map[string]any)
	if len(mcp) != 1 {
		t.Errorf("mcp section = %+v", mcp)
	}
}

func TestEnsureProjectConfig_MalformedExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "opencode.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureProjectConfig(dir, "opencode-teams serve", nil); err == nil {
		t.Error("expected an error for a malformed existing config")
	}
}
