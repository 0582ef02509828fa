// Package tasks implements the shared task graph: integer-ID task files,
// the status machine, bidirectional dependency edges with cycle detection,
// and the completion cascade.
package tasks

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// rank orders the forward progression; cancelled sits outside it.
var rank = map[Status]int{
	StatusPending:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusCancelled || s.ranked()
}

func (s Status) ranked() bool {
	_, ok := rank[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Task is one node of the per-team task graph, stored as its own JSON file
// so individual updates stay atomic without a global rewrite. blocks and
// blockedBy are bidirectional mirrors of the same edge set.
type Task struct {
	ID          int    `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	Owner       string `json:"owner,omitempty"`
	Blocks      []int  `json:"blocks"`
	BlockedBy   []int  `json:"blockedBy"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove(list []int, v int) []int {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
