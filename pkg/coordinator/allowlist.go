package coordinator

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Allowlist gates tool dispatch by name patterns. Patterns use glob
// matching when they carry metacharacters ("opencode-teams_task_*"),
// otherwise exact matching. An empty allowlist permits everything.
type Allowlist struct {
	patterns []string
}

// NewAllowlist builds an Allowlist from patterns; blanks are dropped.
func NewAllowlist(patterns ...string) *Allowlist {
	al := &Allowlist{}
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			al.patterns = append(al.patterns, p)
		}
	}
	return al
}

// Allows reports whether the named tool may be dispatched.
func (al *Allowlist) Allows(tool string) bool {
	if al == nil || len(al.patterns) == 0 {
		return true
	}
	for _, p := range al.patterns {
		if strings.ContainsAny(p, "*?[{") {
			if ok, err := doublestar.Match(p, tool); err == nil && ok {
				return true
			}
			continue
		}
		if p == tool {
			return true
		}
	}
	return false
}
