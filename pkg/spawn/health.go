package spawn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
	"github.com/jg-phare/opencode-teams/pkg/store"
	"github.com/jg-phare/opencode-teams/pkg/teams"
)

// HealthStatus classifies one probe result.
type HealthStatus string

const (
	HealthAlive   HealthStatus = "alive"
	HealthDead    HealthStatus = "dead"
	HealthUnknown HealthStatus = "unknown"
	// HealthHung means the process is alive but its visible output has not
	// changed for HungThreshold past the grace period. Terminal backend
	// only: the desktop backend has no content surface.
	HealthHung HealthStatus = "hung"
)

const (
	// GracePeriod suppresses hung classification right after spawn, while
	// the agent is still starting up.
	GracePeriod = 60 * time.Second
	// HungThreshold is how long the pane buffer must stay unchanged before
	// an alive teammate reports hung.
	HungThreshold = 120 * time.Second
)

// ProbeState is the persisted per-agent content hash and last-change
// timestamp, carried across non-sticky probe calls.
type ProbeState struct {
	ContentHash string `json:"contentHash,omitempty"`
	LastChange  int64  `json:"lastChange,omitempty"`
}

// HealthState maps agent name to probe state; one file per team.
type HealthState map[string]ProbeState

// LoadHealthState reads teams/<team>/health.json; absent means no probes
// have run yet.
func LoadHealthState(st *store.Store, team string) (HealthState, error) {
	var hs HealthState
	if err := store.ReadJSON(st.HealthPath(team), &hs); err != nil {
		if errdefs.IsNotFound(err) {
			return HealthState{}, nil
		}
		return nil, err
	}
	return hs, nil
}

// SaveHealthState rewrites the per-team probe state. Not locked: the state
// has a single writer within one server session.
func SaveHealthState(st *store.Store, team string, hs HealthState) error {
	return store.WriteJSONAtomic(st.HealthPath(team), hs)
}

// AgentHealth is one probe result on the tool surface.
type AgentHealth struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// probeTeammate classifies one teammate and returns the updated probe
// state. Desktop members get a pure liveness test; terminal members get
// pane-content hashing with grace and hung thresholds.
func (s *Spawner) probeTeammate(ctx context.Context, tm teams.TeammateMember, prev ProbeState) (AgentHealth, ProbeState) {
	switch tm.Backend {
	case teams.BackendDesktop:
		if s.Alive(tm.ProcessID) {
			return AgentHealth{Name: tm.Name, Status: HealthAlive}, prev
		}
		return AgentHealth{Name: tm.Name, Status: HealthDead}, prev

	default:
		dead, err := s.Tmux.PaneDead(ctx, tm.PaneID)
		if err != nil {
			if errors.Is(err, errdefs.ErrTimeout) {
				return AgentHealth{Name: tm.Name, Status: HealthUnknown, Detail: "multiplexer timeout"}, prev
			}
			return AgentHealth{Name: tm.Name, Status: HealthUnknown, Detail: err.Error()}, prev
		}
		if dead {
			return AgentHealth{Name: tm.Name, Status: HealthDead}, prev
		}

		content, err := s.Tmux.Capture(ctx, tm.PaneID)
		if err != nil {
			if errors.Is(err, errdefs.ErrTimeout) {
				return AgentHealth{Name: tm.Name, Status: HealthUnknown, Detail: "multiplexer timeout"}, prev
			}
			return AgentHealth{Name: tm.Name, Status: HealthUnknown, Detail: err.Error()}, prev
		}

		sum := sha256.Sum256([]byte(content))
		hash := hex.EncodeToString(sum[:])
		now := s.now().UnixMilli()

		next := prev
		changed := hash != prev.ContentHash
		if changed {
			next = ProbeState{ContentHash: hash, LastChange: now}
		}

		if time.Duration(now-tm.JoinedAt)*time.Millisecond < GracePeriod {
			return AgentHealth{Name: tm.Name, Status: HealthAlive}, next
		}
		if changed {
			return AgentHealth{Name: tm.Name, Status: HealthAlive}, next
		}
		if prev.LastChange > 0 && time.Duration(now-prev.LastChange)*time.Millisecond >= HungThreshold {
			return AgentHealth{Name: tm.Name, Status: HealthHung, Detail: "output unchanged"}, next
		}
		return AgentHealth{Name: tm.Name, Status: HealthAlive}, next
	}
}

// CheckHealth probes one teammate and persists the updated probe state.
func (s *Spawner) CheckHealth(ctx context.Context, team, name string) (AgentHealth, error) {
	cfg, err := s.Registry.Read(team)
	if err != nil {
		return AgentHealth{}, err
	}
	tm, ok := cfg.Teammate(name)
	if !ok {
		return AgentHealth{}, errNotMember(team, name)
	}

	hs, err := LoadHealthState(s.Registry.Store(), team)
	if err != nil {
		return AgentHealth{}, err
	}
	health, next := s.probeTeammate(ctx, tm, hs[name])
	hs[name] = next
	if err := SaveHealthState(s.Registry.Store(), team, hs); err != nil {
		return AgentHealth{}, err
	}
	return health, nil
}

// CheckAllHealth probes every teammate, persisting the probe state once at
// the end.
func (s *Spawner) CheckAllHealth(ctx context.Context, team string) ([]AgentHealth, error) {
	cfg, err := s.Registry.Read(team)
	if err != nil {
		return nil, err
	}

	hs, err := LoadHealthState(s.Registry.Store(), team)
	if err != nil {
		return nil, err
	}
	out := make([]AgentHealth, 0, len(cfg.Members))
	for _, tm := range cfg.Teammates() {
		health, next := s.probeTeammate(ctx, tm, hs[tm.Name])
		hs[tm.Name] = next
		out = append(out, health)
	}
	if err := SaveHealthState(s.Registry.Store(), team, hs); err != nil {
		return nil, err
	}
	return out, nil
}
