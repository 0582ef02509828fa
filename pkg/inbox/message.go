// Package inbox implements per-agent message inboxes: ordered JSON-array
// files with locked appends, read-marking, bounded long-poll, and an
// fsnotify-based watch stream for in-process consumers.
package inbox

// Type classifies an inter-agent message.
type Type string

const (
	TypeMessage          Type = "message"
	TypeBroadcast        Type = "broadcast"
	TypeShutdownRequest  Type = "shutdown_request"
	TypeShutdownApproved Type = "shutdown_approved"
	TypePlanApproved     Type = "plan_approved"
	TypePlanRejected     Type = "plan_rejected"
	// TypeTaskAssignment and TypeTaskCompleted carry the structured
	// notifications the task engine emits on owner changes and completion.
	TypeTaskAssignment Type = "task_assignment"
	TypeTaskCompleted  Type = "task_completed"
)

// Message is one inbox entry. The UUID lets clients deduplicate across
// retries; entries are strictly ordered by insertion.
type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Type      Type   `json:"type"`
	Content   string `json:"content"`
	Summary   string `json:"summary,omitempty"`
	Color     string `json:"color"`
	Timestamp int64  `json:"timestamp"`
	ReadAt    int64  `json:"readAt,omitempty"`
}

// Unread reports whether the message has not been read-marked.
func (m Message) Unread() bool { return m.ReadAt == 0 }
