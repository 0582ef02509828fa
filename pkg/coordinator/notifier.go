package coordinator

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jg-phare/opencode-teams/pkg/inbox"
	"github.com/jg-phare/opencode-teams/pkg/tasks"
	"github.com/jg-phare/opencode-teams/pkg/teams"
)

// inboxNotifier turns post-commit task events into inbox messages: the
// owner learns about assignments, the lead learns about completions.
// Delivery is best effort; a task update never fails on a notification.
type inboxNotifier struct {
	registry *teams.Registry
	inbox    *inbox.Inbox
	log      zerolog.Logger
}

func (n *inboxNotifier) TaskAssigned(team string, task tasks.Task) {
	lead, ok := n.lead(team)
	if !ok || task.Owner == "" || task.Owner == lead.Name {
		return
	}
	n.deliver(team, inbox.Message{
		From:    lead.Name,
		To:      task.Owner,
		Type:    inbox.TypeTaskAssignment,
		Content: fmt.Sprintf("Task #%d assigned to you: %s", task.ID, task.Subject),
		Summary: fmt.Sprintf("task #%d assigned", task.ID),
		Color:   lead.Color,
	})
}

func (n *inboxNotifier) TaskCompleted(team string, task tasks.Task) {
	lead, ok := n.lead(team)
	if !ok || task.Owner == "" || task.Owner == lead.Name {
		return
	}
	n.deliver(team, inbox.Message{
		From:    task.Owner,
		To:      lead.Name,
		Type:    inbox.TypeTaskCompleted,
		Content: fmt.Sprintf("Task #%d completed: %s", task.ID, task.Subject),
		Summary: fmt.Sprintf("task #%d completed", task.ID),
	})
}

func (n *inboxNotifier) lead(team string) (teams.LeadMember, bool) {
	cfg, err := n.registry.Read(team)
	if err != nil {
		n.log.Warn().Err(err).Str("team", team).Msg("task notification: read config")
		return teams.LeadMember{}, false
	}
	return cfg.Lead()
}

func (n *inboxNotifier) deliver(team string, msg inbox.Message) {
	if _, err := n.inbox.Append(team, msg); err != nil {
		n.log.Warn().Err(err).Str("team", team).Str("to", msg.To).Msg("task notification: append")
	}
}
