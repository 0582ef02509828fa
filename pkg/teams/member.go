package teams

import (
	"encoding/json"
	"fmt"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// Role discriminates the two member variants.
type Role string

const (
	RoleLead     Role = "lead"
	RoleTeammate Role = "teammate"
)

// Backend is the spawn mechanism for a teammate process.
type Backend string

const (
	BackendTerminal Backend = "terminal"
	BackendDesktop  Backend = "desktop"
)

// ParseBackend validates a backend string.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendTerminal, BackendDesktop:
		return Backend(s), nil
	case "":
		return BackendTerminal, nil
	default:
		return "", fmt.Errorf("%w: backend %q", errdefs.ErrInvalidArg, s)
	}
}

// Member is the tagged union of the two member variants. Readers
// discriminate on the role field; there is no base member with optional
// lead/teammate fields.
type Member interface {
	MemberName() string
	MemberRole() Role
	MemberColor() string
}

// LeadMember is the member created at team birth. It is never spawned as a
// process by this system.
type LeadMember struct {
	AgentID   string `json:"agentId"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Color     string `json:"color"`
	JoinedAt  int64  `json:"joinedAt"`
	SessionID string `json:"sessionId"`
}

func (m LeadMember) MemberName() string  { return m.Name }
func (m LeadMember) MemberRole() Role    { return RoleLead }
func (m LeadMember) MemberColor() string { return m.Color }

// TeammateMember is a spawned agent process under team coordination.
type TeammateMember struct {
	AgentID          string  `json:"agentId"`
	Name             string  `json:"name"`
	Role             Role    `json:"role"`
	Model            string  `json:"model"`
	Prompt           string  `json:"prompt"`
	Color            string  `json:"color"`
	PlanModeRequired bool    `json:"planModeRequired"`
	JoinedAt         int64   `json:"joinedAt"`
	Backend          Backend `json:"backend"`
	PaneID           string  `json:"paneId,omitempty"`
	ProcessID        int     `json:"processId,omitempty"`
	Cwd              string  `json:"cwd"`
	SubagentType     string  `json:"subagentType"`
}

func (m TeammateMember) MemberName() string  { return m.Name }
func (m TeammateMember) MemberRole() Role    { return RoleTeammate }
func (m TeammateMember) MemberColor() string { return m.Color }

// AgentID builds the canonical "<member>@<team>" identifier.
func AgentID(member, team string) string {
	return member + "@" + team
}

// unmarshalMember decodes one member entry by peeking at its role tag.
func unmarshalMember(raw json.RawMessage) (Member, error) {
	var tag struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("%w: member entry: %v", errdefs.ErrStorage, err)
	}
	switch tag.Role {
	case RoleLead:
		var m LeadMember
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: lead member: %v", errdefs.ErrStorage, err)
		}
		return m, nil
	case RoleTeammate:
		var m TeammateMember
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: teammate member: %v", errdefs.ErrStorage, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: member role %q", errdefs.ErrStorage, tag.Role)
	}
}
