package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
	"github.com/jg-phare/opencode-teams/pkg/store"
)

const (
	// MaxPollTimeout bounds a single long-poll call.
	MaxPollTimeout = 30 * time.Second
	// pollStep is the recheck interval of the long-poll loop.
	pollStep = 500 * time.Millisecond
)

// MemberDirectory answers membership questions; the team registry
// implements it.
type MemberDirectory interface {
	IsMember(team, name string) (bool, error)
}

// Inbox provides append/read/poll over the per-agent inbox files of a
// store. All appends and read-marks for one team are serialized by that
// team's inboxes lock; plain snapshots read lock-free and rely on atomic
// renames for consistency.
type Inbox struct {
	store   *store.Store
	members MemberDirectory
	now     func() time.Time
	step    time.Duration
}

// New creates an Inbox backed by st, validating recipients against members.
func New(st *store.Store, members MemberDirectory) *Inbox {
	return &Inbox{store: st, members: members, now: time.Now, step: pollStep}
}

// Append writes a message to the recipient's inbox under the team inbox
// lock. Missing ID, timestamp, and type fields are filled in. The stored
// message is returned.
func (ib *Inbox) Append(team string, msg Message) (Message, error) {
	if msg.To == "" {
		return Message{}, fmt.Errorf("%w: message recipient is required", errdefs.ErrInvalidArg)
	}
	ok, err := ib.members.IsMember(team, msg.To)
	if err != nil {
		return Message{}, err
	}
	if !ok {
		return Message{}, fmt.Errorf("%w: recipient %q is not a member of %q", errdefs.ErrNotFound, msg.To, team)
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = ib.now().UnixMilli()
	}
	if msg.Type == "" {
		msg.Type = TypeMessage
	}

	path := ib.store.InboxPath(team, msg.To)
	err = store.WithLock(ib.store.InboxLockPath(team), func() error {
		msgs, err := ib.snapshot(path)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return store.WriteJSONAtomic(path, msgs)
	})
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Read returns the agent's full inbox. When markAsRead is set, unread
// entries get their readAt stamped and the file is rewritten under the
// lock; otherwise the read is a lock-free best-effort snapshot.
func (ib *Inbox) Read(team, agent string, markAsRead bool) ([]Message, error) {
	ok, err := ib.members.IsMember(team, agent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: agent %q is not a member of %q", errdefs.ErrNotFound, agent, team)
	}

	path := ib.store.InboxPath(team, agent)
	if !markAsRead {
		return ib.snapshot(path)
	}

	var out []Message
	err = store.WithLock(ib.store.InboxLockPath(team), func() error {
		msgs, err := ib.snapshot(path)
		if err != nil {
			return err
		}
		now := ib.now().UnixMilli()
		dirty := false
		for i := range msgs {
			if msgs[i].Unread() {
				msgs[i].ReadAt = now
				dirty = true
			}
		}
		if dirty {
			if err := store.WriteJSONAtomic(path, msgs); err != nil {
				return err
			}
		}
		out = msgs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unread returns the agent's unread messages without marking them.
func (ib *Inbox) Unread(team, agent string) ([]Message, error) {
	msgs, err := ib.snapshot(ib.store.InboxPath(team, agent))
	if err != nil {
		return nil, err
	}
	var out []Message
	for _, m := range msgs {
		if m.Unread() {
			out = append(out, m)
		}
	}
	return out, nil
}

// Poll returns the agent's unread messages, read-marked, as soon as any
// exist. With none pending it rechecks every 500 ms up to timeout (clamped
// to 30 s) and returns the empty list on expiry. Context cancellation
// returns whatever is unread at that moment.
func (ib *Inbox) Poll(ctx context.Context, team, agent string, timeout time.Duration) ([]Message, error) {
	if timeout < 0 {
		return nil, fmt.Errorf("%w: negative poll timeout", errdefs.ErrInvalidArg)
	}
	if timeout > MaxPollTimeout {
		timeout = MaxPollTimeout
	}
	deadline := ib.now().Add(timeout)

	for {
		msgs, err := ib.takeUnread(team, agent)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			return msgs, nil
		}
		remaining := deadline.Sub(ib.now())
		if remaining <= 0 {
			return []Message{}, nil
		}

		step := ib.step
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			// A message appended during the sleep is already readable;
			// deliver it instead of dropping it on the floor.
			msgs, err := ib.takeUnread(team, agent)
			if err != nil {
				return nil, err
			}
			if msgs == nil {
				msgs = []Message{}
			}
			return msgs, nil
		case <-time.After(step):
		}
	}
}

// takeUnread marks and returns the unread slice in one locked pass.
func (ib *Inbox) takeUnread(team, agent string) ([]Message, error) {
	ok, err := ib.members.IsMember(team, agent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: agent %q is not a member of %q", errdefs.ErrNotFound, agent, team)
	}

	path := ib.store.InboxPath(team, agent)
	var out []Message
	err = store.WithLock(ib.store.InboxLockPath(team), func() error {
		msgs, err := ib.snapshot(path)
		if err != nil {
			return err
		}
		now := ib.now().UnixMilli()
		for i := range msgs {
			if msgs[i].Unread() {
				msgs[i].ReadAt = now
				out = append(out, msgs[i])
			}
		}
		if len(out) == 0 {
			return nil
		}
		return store.WriteJSONAtomic(path, msgs)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// snapshot reads an inbox file without locking. A missing file is an empty
// inbox.
func (ib *Inbox) snapshot(path string) ([]Message, error) {
	var msgs []Message
	if err := store.ReadJSON(path, &msgs); err != nil {
		if errdefs.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return msgs, nil
}
