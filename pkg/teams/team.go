// Package teams holds the team value model and the on-disk team registry:
// creation, membership, colors, and name validation. A team exists iff its
// config file exists.
package teams

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// namePattern bounds team and member names.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateName rejects names outside [A-Za-z0-9_-]{1,64}.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must match [A-Za-z0-9_-]{1,64}", errdefs.ErrInvalidName, name)
	}
	return nil
}

// Team is the JSON-serialized team configuration. Exactly one member is the
// lead; all others are teammates.
type Team struct {
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
	SessionID string `json:"sessionId"`
	LeadModel string `json:"leadModel"`
	Members   []Member
}

// teamJSON is the wire shape of Team; members are decoded per-entry by
// their role tag.
type teamJSON struct {
	Name      string            `json:"name"`
	CreatedAt int64             `json:"createdAt"`
	SessionID string            `json:"sessionId"`
	LeadModel string            `json:"leadModel"`
	Members   []json.RawMessage `json:"members"`
}

// MarshalJSON emits the tagged member list.
func (t Team) MarshalJSON() ([]byte, error) {
	out := teamJSON{
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		SessionID: t.SessionID,
		LeadModel: t.LeadModel,
		Members:   make([]json.RawMessage, 0, len(t.Members)),
	}
	for _, m := range t.Members {
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		out.Members = append(out.Members, raw)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the tagged member list.
func (t *Team) UnmarshalJSON(data []byte) error {
	var in teamJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.Name = in.Name
	t.CreatedAt = in.CreatedAt
	t.SessionID = in.SessionID
	t.LeadModel = in.LeadModel
	t.Members = make([]Member, 0, len(in.Members))
	for _, raw := range in.Members {
		m, err := unmarshalMember(raw)
		if err != nil {
			return err
		}
		t.Members = append(t.Members, m)
	}
	return nil
}

// Lead returns the team's lead member.
func (t *Team) Lead() (LeadMember, bool) {
	for _, m := range t.Members {
		if lead, ok := m.(LeadMember); ok {
			return lead, true
		}
	}
	return LeadMember{}, false
}

// Teammate returns the named teammate.
func (t *Team) Teammate(name string) (TeammateMember, bool) {
	for _, m := range t.Members {
		if tm, ok := m.(TeammateMember); ok && tm.Name == name {
			return tm, true
		}
	}
	return TeammateMember{}, false
}

// Teammates returns all teammate members in membership order.
func (t *Team) Teammates() []TeammateMember {
	var out []TeammateMember
	for _, m := range t.Members {
		if tm, ok := m.(TeammateMember); ok {
			out = append(out, tm)
		}
	}
	return out
}

// HasMember reports whether any member carries the given name.
func (t *Team) HasMember(name string) bool {
	for _, m := range t.Members {
		if m.MemberName() == name {
			return true
		}
	}
	return false
}

// MemberNames returns all member names in membership order.
func (t *Team) MemberNames() []string {
	names := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		names = append(names, m.MemberName())
	}
	return names
}
