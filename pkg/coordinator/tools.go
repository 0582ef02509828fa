package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
	"github.com/jg-phare/opencode-teams/pkg/inbox"
	"github.com/jg-phare/opencode-teams/pkg/spawn"
	"github.com/jg-phare/opencode-teams/pkg/tasks"
)

// BroadcastRecipient addresses every member except the sender.
const BroadcastRecipient = "*"

type teamCreateArgs struct {
	TeamName  string `json:"teamName"`
	LeadName  string `json:"leadName"`
	LeadModel string `json:"leadModel"`
}

func (c *Coordinator) teamCreate(_ context.Context, args json.RawMessage) (any, error) {
	var a teamCreateArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if err := c.bindTeam(a.TeamName); err != nil {
		return nil, err
	}
	team, err := c.registry.Create(a.TeamName, a.LeadName, a.LeadModel)
	if err != nil {
		c.unbindTeam(a.TeamName)
		return nil, err
	}
	c.log.Info().Str("team", a.TeamName).Str("lead", a.LeadName).Msg("team created")
	return team, nil
}

type teamArgs struct {
	TeamName string `json:"teamName"`
}

func (c *Coordinator) teamDelete(_ context.Context, args json.RawMessage) (any, error) {
	var a teamArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if err := c.registry.Delete(a.TeamName); err != nil {
		return nil, err
	}
	c.unbindTeam(a.TeamName)
	c.log.Info().Str("team", a.TeamName).Msg("team deleted")
	return map[string]any{"deleted": a.TeamName}, nil
}

func (c *Coordinator) readConfig(_ context.Context, args json.RawMessage) (any, error) {
	var a teamArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return c.registry.Read(a.TeamName)
}

type spawnArgs struct {
	TeamName           string `json:"teamName"`
	Name               string `json:"name"`
	Prompt             string `json:"prompt"`
	Model              string `json:"model"`
	Backend            string `json:"backend"`
	Template           string `json:"template"`
	CustomInstructions string `json:"customInstructions"`
	Cwd                string `json:"cwd"`
	PlanModeRequired   bool   `json:"planModeRequired"`
	AutoClose          bool   `json:"autoClose"`
}

func (c *Coordinator) spawnTeammate(ctx context.Context, args json.RawMessage) (any, error) {
	var a spawnArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return c.spawner.Spawn(ctx, spawn.SpawnRequest{
		TeamName:           a.TeamName,
		Name:               a.Name,
		Prompt:             a.Prompt,
		Model:              a.Model,
		Backend:            a.Backend,
		Template:           a.Template,
		CustomInstructions: a.CustomInstructions,
		Cwd:                a.Cwd,
		PlanModeRequired:   a.PlanModeRequired,
		AutoClose:          a.AutoClose,
	})
}

// nameArgs addresses one teammate by its member name (lifecycle tools).
type nameArgs struct {
	TeamName string `json:"teamName"`
	Name     string `json:"name"`
}

func (c *Coordinator) forceKillTeammate(ctx context.Context, args json.RawMessage) (any, error) {
	var a nameArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if err := c.spawner.Kill(ctx, a.TeamName, a.Name); err != nil {
		return nil, err
	}
	return map[string]any{"killed": a.Name}, nil
}

func (c *Coordinator) processShutdownApproved(_ context.Context, args json.RawMessage) (any, error) {
	var a nameArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if err := c.spawner.ShutdownApproved(a.TeamName, a.Name); err != nil {
		return nil, err
	}
	return map[string]any{"removed": a.Name}, nil
}

type sendMessageArgs struct {
	TeamName  string `json:"teamName"`
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	Summary   string `json:"summary"`
	Sender    string `json:"sender"`
}

// sendMessage delivers a message, forcing plain messages to carry the lead
// as sender and fanning "*" out to every member except the sender.
func (c *Coordinator) sendMessage(_ context.Context, args json.RawMessage) (any, error) {
	var a sendMessageArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	team, err := c.registry.Read(a.TeamName)
	if err != nil {
		return nil, err
	}

	msgType := inbox.Type(a.Type)
	if msgType == "" {
		msgType = inbox.TypeMessage
	}
	sender := a.Sender
	if msgType == inbox.TypeMessage {
		lead, ok := team.Lead()
		if !ok {
			return nil, fmt.Errorf("%w: team %q has no lead", errdefs.ErrStorage, a.TeamName)
		}
		sender = lead.Name
	}
	if sender == "" {
		return nil, fmt.Errorf("%w: message sender is required", errdefs.ErrInvalidArg)
	}

	color := ""
	for _, m := range team.Members {
		if m.MemberName() == sender {
			color = m.MemberColor()
		}
	}

	recipients := []string{a.Recipient}
	if a.Recipient == BroadcastRecipient {
		recipients = recipients[:0]
		for _, name := range team.MemberNames() {
			if name != sender {
				recipients = append(recipients, name)
			}
		}
		if msgType == inbox.TypeMessage {
			msgType = inbox.TypeBroadcast
		}
	}

	sent := make([]inbox.Message, 0, len(recipients))
	for _, to := range recipients {
		msg, err := c.inbox.Append(a.TeamName, inbox.Message{
			From:    sender,
			To:      to,
			Type:    msgType,
			Content: a.Content,
			Summary: a.Summary,
			Color:   color,
		})
		if err != nil {
			return nil, err
		}
		sent = append(sent, msg)
	}
	return sent, nil
}

type readInboxArgs struct {
	TeamName   string `json:"teamName"`
	AgentName  string `json:"agentName"`
	MarkAsRead *bool  `json:"markAsRead"`
}

func (c *Coordinator) readInbox(_ context.Context, args json.RawMessage) (any, error) {
	var a readInboxArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	mark := a.MarkAsRead == nil || *a.MarkAsRead
	msgs, err := c.inbox.Read(a.TeamName, a.AgentName, mark)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []inbox.Message{}
	}
	return msgs, nil
}

type pollInboxArgs struct {
	TeamName  string `json:"teamName"`
	AgentName string `json:"agentName"`
	TimeoutMs int64  `json:"timeoutMs"`
}

func (c *Coordinator) pollInbox(ctx context.Context, args json.RawMessage) (any, error) {
	var a pollInboxArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	// timeoutMs=0 is a single immediate check; the engine clamps to 30 s.
	msgs, err := c.inbox.Poll(ctx, a.TeamName, a.AgentName, time.Duration(a.TimeoutMs)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []inbox.Message{}
	}
	return msgs, nil
}

type taskCreateArgs struct {
	TeamName    string `json:"teamName"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	BlockedBy   []int  `json:"blockedBy"`
}

func (c *Coordinator) taskCreate(_ context.Context, args json.RawMessage) (any, error) {
	var a taskCreateArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return c.tasks.Create(a.TeamName, a.Subject, a.Description, a.BlockedBy)
}

type taskUpdateArgs struct {
	TeamName    string  `json:"teamName"`
	ID          int     `json:"id"`
	Subject     *string `json:"subject"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Owner       *string `json:"owner"`
	Blocks      *[]int  `json:"blocks"`
	BlockedBy   *[]int  `json:"blockedBy"`
}

func (c *Coordinator) taskUpdate(_ context.Context, args json.RawMessage) (any, error) {
	var a taskUpdateArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	up := tasks.Update{
		Subject:     a.Subject,
		Description: a.Description,
		Owner:       a.Owner,
		Blocks:      a.Blocks,
		BlockedBy:   a.BlockedBy,
	}
	if a.Status != nil {
		s := tasks.Status(*a.Status)
		up.Status = &s
	}
	return c.tasks.Apply(a.TeamName, a.ID, up)
}

func (c *Coordinator) taskList(_ context.Context, args json.RawMessage) (any, error) {
	var a teamArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return c.tasks.List(a.TeamName)
}

type taskGetArgs struct {
	TeamName string `json:"teamName"`
	ID       int    `json:"id"`
}

func (c *Coordinator) taskGet(_ context.Context, args json.RawMessage) (any, error) {
	var a taskGetArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return c.tasks.Get(a.TeamName, a.ID)
}

func (c *Coordinator) listTemplates(_ context.Context, _ json.RawMessage) (any, error) {
	return spawn.ListTemplates(), nil
}

func (c *Coordinator) checkHealth(ctx context.Context, args json.RawMessage) (any, error) {
	var a nameArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return c.spawner.CheckHealth(ctx, a.TeamName, a.Name)
}

func (c *Coordinator) checkAllHealth(ctx context.Context, args json.RawMessage) (any, error) {
	var a teamArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return c.spawner.CheckAllHealth(ctx, a.TeamName)
}
