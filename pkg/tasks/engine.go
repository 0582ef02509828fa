package tasks

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
	"github.com/jg-phare/opencode-teams/pkg/store"
)

// Notifier receives task events after the tasks lock has been released; the
// coordinator wires it to the inbox so notification appends take the inbox
// lock, never the tasks lock.
type Notifier interface {
	TaskAssigned(team string, task Task)
	TaskCompleted(team string, task Task)
}

// Engine performs all task mutations for a store. Every mutation for one
// team is serialized by that team's tasks lock.
type Engine struct {
	store    *store.Store
	notifier Notifier
	now      func() time.Time
}

// NewEngine creates an Engine backed by st.
func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st, now: time.Now}
}

// SetNotifier installs the post-commit event sink.
func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

// Create adds a task with the next free ID (max+1, starting at 1) and wires
// the blockedBy edges bidirectionally.
func (e *Engine) Create(team, subject, description string, blockedBy []int) (Task, error) {
	if strings.TrimSpace(subject) == "" {
		return Task{}, fmt.Errorf("%w: task subject is required", errdefs.ErrInvalidArg)
	}

	var created Task
	err := store.WithLock(e.store.TasksLockPath(team), func() error {
		all, err := e.loadAll(team)
		if err != nil {
			return err
		}

		deps := dedupe(blockedBy)
		for _, dep := range deps {
			pred, ok := all[dep]
			if !ok {
				return fmt.Errorf("%w: unknown predecessor task %d", errdefs.ErrInvalidArg, dep)
			}
			if pred.Status.Terminal() {
				return fmt.Errorf("%w: predecessor task %d is %s", errdefs.ErrInvalidArg, dep, pred.Status)
			}
		}

		id := 1
		for existing := range all {
			if existing >= id {
				id = existing + 1
			}
		}

		now := e.now().UnixMilli()
		created = Task{
			ID:          id,
			Subject:     subject,
			Description: description,
			Status:      StatusPending,
			Blocks:      []int{},
			BlockedBy:   deps,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.WriteJSONAtomic(e.store.TaskPath(team, id), created); err != nil {
			return err
		}
		for _, dep := range deps {
			pred := all[dep]
			if !contains(pred.Blocks, id) {
				pred.Blocks = append(pred.Blocks, id)
				sort.Ints(pred.Blocks)
				pred.UpdatedAt = now
				if err := store.WriteJSONAtomic(e.store.TaskPath(team, dep), pred); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return created, nil
}

// Get returns one task.
func (e *Engine) Get(team string, id int) (Task, error) {
	var task Task
	if err := store.ReadJSON(e.store.TaskPath(team, id), &task); err != nil {
		if errdefs.IsNotFound(err) {
			return Task{}, fmt.Errorf("%w: task %d", errdefs.ErrNotFound, id)
		}
		return Task{}, err
	}
	return task, nil
}

// List returns all of a team's tasks ordered by ID. It reads lock-free:
// atomic writes guarantee each file is internally consistent.
func (e *Engine) List(team string) ([]Task, error) {
	all, err := e.loadAll(team)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(all))
	for _, t := range all {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update is the partial-update surface of task_update. Nil fields are left
// untouched; Blocks and BlockedBy replace the full edge set.
type Update struct {
	Subject     *string
	Description *string
	Status      *Status
	Owner       *string
	Blocks      *[]int
	BlockedBy   *[]int
}

// Apply runs the four-phase update transaction under the tasks lock:
// read everything the diff touches, validate, mutate, write. All validation
// precedes all writes; a mid-sequence write failure surfaces ErrStorage
// with possibly-partial state, as the lock has serialized the caller.
func (e *Engine) Apply(team string, id int, up Update) (Task, error) {
	var (
		target        Task
		assignedOwner bool
		completed     bool
	)

	err := store.WithLock(e.store.TasksLockPath(team), func() error {
		// Phase 1: read.
		all, err := e.loadAll(team)
		if err != nil {
			return err
		}
		cur, ok := all[id]
		if !ok {
			return fmt.Errorf("%w: task %d", errdefs.ErrNotFound, id)
		}

		// Phase 2: validate.
		if up.Subject != nil && strings.TrimSpace(*up.Subject) == "" {
			return fmt.Errorf("%w: task subject is required", errdefs.ErrInvalidArg)
		}
		if up.Status != nil && !up.Status.Valid() {
			return fmt.Errorf("%w: status %q", errdefs.ErrInvalidArg, *up.Status)
		}

		newBlocks, err := e.validateEdgeSet(all, cur, cur.Blocks, up.Blocks, false)
		if err != nil {
			return err
		}
		newBlockedBy, err := e.validateEdgeSet(all, cur, cur.BlockedBy, up.BlockedBy, true)
		if err != nil {
			return err
		}

		if up.Status != nil && *up.Status != cur.Status {
			next := *up.Status
			switch {
			case cur.Status.Terminal():
				return fmt.Errorf("%w: task %d is %s", errdefs.ErrIllegalTransition, id, cur.Status)
			case next == StatusCancelled:
				// reachable from any non-terminal state
			case !next.ranked() || rank[next] < rank[cur.Status]:
				return fmt.Errorf("%w: %s -> %s", errdefs.ErrIllegalTransition, cur.Status, next)
			}
			if next == StatusInProgress && len(newBlockedBy) > 0 {
				return fmt.Errorf("%w: task %d is blocked by %v", errdefs.ErrIllegalTransition, id, newBlockedBy)
			}
		}

		// Phase 3: mutate.
		now := e.now().UnixMilli()
		modified := map[int]bool{}
		touch := func(t Task) {
			t.UpdatedAt = now
			all[t.ID] = t
			modified[t.ID] = true
		}

		if up.Subject != nil {
			cur.Subject = *up.Subject
		}
		if up.Description != nil {
			cur.Description = *up.Description
		}
		if up.Owner != nil && *up.Owner != cur.Owner {
			cur.Owner = *up.Owner
			assignedOwner = cur.Owner != ""
		}

		applyMirror := func(oldSet, newSet []int, forward bool) {
			for _, other := range oldSet {
				if !contains(newSet, other) {
					o := all[other]
					if forward {
						o.BlockedBy = remove(o.BlockedBy, id)
					} else {
						o.Blocks = remove(o.Blocks, id)
					}
					touch(o)
				}
			}
			for _, other := range newSet {
				if !contains(oldSet, other) {
					o := all[other]
					if forward {
						if !contains(o.BlockedBy, id) {
							o.BlockedBy = append(o.BlockedBy, id)
							sort.Ints(o.BlockedBy)
						}
					} else {
						if !contains(o.Blocks, id) {
							o.Blocks = append(o.Blocks, id)
							sort.Ints(o.Blocks)
						}
					}
					touch(o)
				}
			}
		}

		if up.Blocks != nil {
			applyMirror(cur.Blocks, newBlocks, true)
			cur.Blocks = newBlocks
		}
		if up.BlockedBy != nil {
			applyMirror(cur.BlockedBy, newBlockedBy, false)
			cur.BlockedBy = newBlockedBy
		}

		if up.Status != nil && *up.Status != cur.Status {
			cur.Status = *up.Status
			if cur.Status == StatusCompleted {
				completed = true
				// Completion cascade: this task no longer blocks anyone.
				for _, succ := range cur.Blocks {
					o := all[succ]
					o.BlockedBy = remove(o.BlockedBy, id)
					touch(o)
				}
				cur.Blocks = []int{}
			}
		}

		touch(cur)
		target = cur

		// Phase 4: write.
		ids := make([]int, 0, len(modified))
		for mid := range modified {
			ids = append(ids, mid)
		}
		sort.Ints(ids)
		for _, mid := range ids {
			if err := store.WriteJSONAtomic(e.store.TaskPath(team, mid), all[mid]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Task{}, err
	}

	if e.notifier != nil {
		if assignedOwner {
			e.notifier.TaskAssigned(team, target)
		}
		if completed {
			e.notifier.TaskCompleted(team, target)
		}
	}
	return target, nil
}

// ReleaseOwner clears ownership of every task owned by agent, keeping task
// status intact. Used when a teammate is removed.
func (e *Engine) ReleaseOwner(team, agent string) error {
	return store.WithLock(e.store.TasksLockPath(team), func() error {
		all, err := e.loadAll(team)
		if err != nil {
			return err
		}
		now := e.now().UnixMilli()
		for id, t := range all {
			if t.Owner != agent {
				continue
			}
			t.Owner = ""
			t.UpdatedAt = now
			if err := store.WriteJSONAtomic(e.store.TaskPath(team, id), t); err != nil {
				return err
			}
		}
		return nil
	})
}

// validateEdgeSet checks a replacement edge list against the current graph:
// referenced tasks must exist, no self references, and no added edge may
// close a cycle. inbound selects the blockedBy direction (the listed tasks
// precede cur); outbound is blocks (cur precedes the listed tasks).
func (e *Engine) validateEdgeSet(all map[int]Task, cur Task, oldSet []int, newSetPtr *[]int, inbound bool) ([]int, error) {
	if newSetPtr == nil {
		return oldSet, nil
	}
	newSet := dedupe(*newSetPtr)
	for _, other := range newSet {
		if other == cur.ID {
			return nil, fmt.Errorf("%w: task %d cannot reference itself", errdefs.ErrInvalidArg, cur.ID)
		}
		if _, ok := all[other]; !ok {
			return nil, fmt.Errorf("%w: unknown task %d", errdefs.ErrInvalidArg, other)
		}
	}
	for _, other := range newSet {
		if contains(oldSet, other) {
			continue
		}
		// Each new edge runs pred -> succ over blocks. Walking blockedBy
		// ancestors from pred and reaching succ means succ already
		// precedes pred, so the edge would close a cycle.
		pred, succ := other, cur.ID
		if !inbound {
			pred, succ = cur.ID, other
		}
		if cycleExists(all, pred, succ) {
			return nil, fmt.Errorf("%w: edge %d -> %d", errdefs.ErrCycle, pred, succ)
		}
	}
	return newSet, nil
}

// cycleExists walks blockedBy edges upward from start looking for goal.
func cycleExists(all map[int]Task, start, goal int) bool {
	seen := map[int]bool{}
	queue := []int{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == goal {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		queue = append(queue, all[n].BlockedBy...)
	}
	return false
}

// loadAll reads every task file of a team. The O(n) scan is the accepted
// cost of per-task files (hundreds of tasks at expected scale).
func (e *Engine) loadAll(team string) (map[int]Task, error) {
	entries, err := os.ReadDir(e.store.TasksDir(team))
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]Task{}, nil
		}
		return nil, fmt.Errorf("%w: read tasks dir: %v", errdefs.ErrStorage, err)
	}

	all := make(map[int]Task, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		var t Task
		if err := store.ReadJSON(e.store.TaskPath(team, id), &t); err != nil {
			return nil, err
		}
		all[id] = t
	}
	return all, nil
}

func dedupe(list []int) []int {
	seen := make(map[int]bool, len(list))
	out := make([]int, 0, len(list))
	for _, v := range list {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
