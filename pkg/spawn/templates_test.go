package spawn

import (
	"errors"
	"testing"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

func TestLookupTemplate(t *testing.T) {
	for _, name := range []string{"researcher", "implementer", "reviewer", "tester"} {
		tpl, err := LookupTemplate(name)
		if err != nil {
			t.Fatalf("LookupTemplate(%q): %v", name, err)
		}
		if tpl.Name != name || tpl.Description == "" {
			t.Errorf("template %q incomplete: %+v", name, tpl)
		}
		if len(tpl.RoleInstructions) < 200 {
			t.Errorf("template %q role instructions suspiciously short", name)
		}
	}
}

func TestLookupTemplate_Unknown(t *testing.T) {
	if _, err := LookupTemplate("wizard"); !errors.Is(err, errdefs.ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestListTemplates_Sorted(t *testing.T) {
	list := ListTemplates()
	if len(list) != 4 {
		t.Fatalf("expected 4 templates, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name >= list[i].Name {
			t.Errorf("templates not sorted: %s before %s", list[i-1].Name, list[i].Name)
		}
	}
}
