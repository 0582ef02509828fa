package spawn

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testSpec() IdentitySpec {
	return IdentitySpec{
		AgentID:          "bob@alpha",
		Name:             "bob",
		TeamName:         "alpha",
		Color:            "blue",
		Model:            "claude-sonnet",
		RoleInstructions: "# Role: Tester\n\nTest things.",
	}
}

func TestRenderIdentity_Structure(t *testing.T) {
	doc, err := RenderIdentity(testSpec())
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(doc, "---\n") {
		t.Error("missing frontmatter opener")
	}
	for _, want := range []string{
		"model: claude-sonnet",
		"opencode-teams_*",
		"You are **bob**, a member of team **alpha**",
		"`bob@alpha`",
		"# Role: Tester",
		"# Workflow",
		"# Important Rules",
		"# Shutdown Protocol",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("identity missing %q", want)
		}
	}

	// Role instructions precede the workflow section.
	if strings.Index(doc, "# Role: Tester") > strings.Index(doc, "# Workflow") {
		t.Error("role instructions should come before the workflow")
	}
}

func TestRenderIdentity_CustomInstructions(t *testing.T) {
	spec := testSpec()
	spec.CustomInstructions = "Prefer table-driven tests."
	doc, err := RenderIdentity(spec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc, "# Additional Instructions") ||
		!strings.Contains(doc, "Prefer table-driven tests.") {
		t.Error("custom instructions not rendered")
	}

	plain, _ := RenderIdentity(testSpec())
	if strings.Contains(plain, "# Additional Instructions") {
		t.Error("empty custom instructions should render no section")
	}
}

func TestWriteIdentity_RoundTripAndRemove(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteIdentity(dir, testSpec())
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, ".opencode", "agents", "bob.md") {
		t.Errorf("identity path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "bob@alpha") {
		t.Error("written identity lacks the agent id")
	}

	// Overwrite is allowed (re-spawn).
	if _, err := WriteIdentity(dir, testSpec()); err != nil {
		t.Fatal(err)
	}

	if err := RemoveIdentity(dir, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("identity file not removed")
	}
	// Removing again is a no-op.
	if err := RemoveIdentity(dir, "bob"); err != nil {
		t.Fatal(err)
	}
}
