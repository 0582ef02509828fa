package teams

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"a", "Alpha-1", "with_underscore", strings.Repeat("x", 64)} {
		if err := ValidateName(ok); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "has space", "a/b", "é", strings.Repeat("x", 65)} {
		if err := ValidateName(bad); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", bad)
		}
	}
}

func TestTeamJSON_TaggedMemberRoundTrip(t *testing.T) {
	team := Team{
		Name:      "alpha",
		CreatedAt: 1700000000000,
		SessionID: "s-1",
		LeadModel: "claude-sonnet",
		Members: []Member{
			LeadMember{AgentID: "lead@alpha", Name: "lead", Role: RoleLead, Color: "red", JoinedAt: 1, SessionID: "s-1"},
			TeammateMember{AgentID: "bob@alpha", Name: "bob", Role: RoleTeammate, Model: "m", Backend: BackendTerminal, PaneID: "%3", Color: "blue", JoinedAt: 2, Cwd: "/work"},
		},
	}

	data, err := json.Marshal(team)
	if err != nil {
		t.Fatal(err)
	}

	var back Team
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(back.Members))
	}
	lead, ok := back.Lead()
	if !ok || lead.Name != "lead" || lead.SessionID != "s-1" {
		t.Errorf("lead did not round trip: %+v", lead)
	}
	tm, ok := back.Teammate("bob")
	if !ok || tm.PaneID != "%3" || tm.Backend != BackendTerminal || tm.Cwd != "/work" {
		t.Errorf("teammate did not round trip: %+v", tm)
	}
}

func TestTeamJSON_UnknownRoleRejected(t *testing.T) {
	var team Team
	raw := `{"name":"a","members":[{"role":"alien","name":"x"}]}`
	if err := json.Unmarshal([]byte(raw), &team); err == nil {
		t.Error("expected an error for unknown member role")
	}
}

func TestParseBackend(t *testing.T) {
	if b, err := ParseBackend(""); err != nil || b != BackendTerminal {
		t.Errorf("ParseBackend(\"\") = %v, %v", b, err)
	}
	if b, err := ParseBackend("desktop"); err != nil || b != BackendDesktop {
		t.Errorf("ParseBackend(desktop) = %v, %v", b, err)
	}
	if _, err := ParseBackend("cloud"); err == nil {
		t.Error("expected an error for unknown backend")
	}
}

func TestColorForIndex_Wraps(t *testing.T) {
	if ColorForIndex(0) != Palette[0] || ColorForIndex(8) != Palette[0] {
		t.Error("palette should wrap at 8")
	}
	if ColorForIndex(3) != Palette[3] {
		t.Error("palette index mismatch")
	}
}
