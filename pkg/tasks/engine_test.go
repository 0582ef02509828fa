package tasks

import (
	"errors"
	"testing"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
	"github.com/jg-phare/opencode-teams/pkg/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewEngine(st)
}

func strp(s string) *string  { return &s }
func statp(s Status) *Status { return &s }
func intsp(v ...int) *[]int  { return &v }

func TestCreate_SequentialIDs(t *testing.T) {
	e := newTestEngine(t)

	for i, want := range []int{1, 2, 3} {
		task, err := e.Create("alpha", "subject", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		if task.ID != want {
			t.Errorf("task %d got id %d, want %d", i, task.ID, want)
		}
		if task.Status != StatusPending {
			t.Errorf("new task status = %s", task.Status)
		}
	}
}

func TestCreate_EmptySubject(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Create("alpha", "   ", "", nil); !errors.Is(err, errdefs.ErrInvalidArg) {
		t.Errorf("expected ErrInvalidArg, got %v", err)
	}
}

func TestCreate_BlockedByWiresBothSides(t *testing.T) {
	e := newTestEngine(t)
	t1, _ := e.Create("alpha", "first", "", nil)
	t2, err := e.Create("alpha", "second", "", []int{t1.ID, t1.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(t2.BlockedBy) != 1 || t2.BlockedBy[0] != t1.ID {
		t.Errorf("blockedBy = %v", t2.BlockedBy)
	}

	back, err := e.Get("alpha", t1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Blocks) != 1 || back.Blocks[0] != t2.ID {
		t.Errorf("predecessor blocks = %v, want [%d]", back.Blocks, t2.ID)
	}
}

func TestCreate_UnknownOrTerminalPredecessor(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Create("alpha", "x", "", []int{99}); !errors.Is(err, errdefs.ErrInvalidArg) {
		t.Errorf("unknown predecessor: expected ErrInvalidArg, got %v", err)
	}

	t1, _ := e.Create("alpha", "done", "", nil)
	if _, err := e.Apply("alpha", t1.ID, Update{Status: statp(StatusCompleted)}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Create("alpha", "y", "", []int{t1.ID}); !errors.Is(err, errdefs.ErrInvalidArg) {
		t.Errorf("terminal predecessor: expected ErrInvalidArg, got %v", err)
	}
}

func TestApply_CycleRejected(t *testing.T) {
	e := newTestEngine(t)
	t1, _ := e.Create("alpha", "a", "", nil)
	t2, _ := e.Create("alpha", "b", "", []int{t1.ID})
	t3, _ := e.Create("alpha", "c", "", []int{t2.ID})

	// t1 blockedBy t3 closes t1 -> t2 -> t3 -> t1.
	_, err := e.Apply("alpha", t1.ID, Update{BlockedBy: intsp(t3.ID)})
	if !errors.Is(err, errdefs.ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}

	// Self reference is invalid, not a cycle.
	_, err = e.Apply("alpha", t1.ID, Update{Blocks: intsp(t1.ID)})
	if !errors.Is(err, errdefs.ErrInvalidArg) {
		t.Errorf("expected ErrInvalidArg, got %v", err)
	}

	// The failed update left the graph untouched.
	back, _ := e.Get("alpha", t1.ID)
	if len(back.BlockedBy) != 0 {
		t.Errorf("failed update mutated state: %v", back.BlockedBy)
	}
}

func TestApply_CompletionCascade(t *testing.T) {
	e := newTestEngine(t)
	t1, _ := e.Create("alpha", "base", "", nil)
	t2, _ := e.Create("alpha", "mid", "", []int{t1.ID})
	t3, _ := e.Create("alpha", "top", "", []int{t1.ID, t2.ID})

	done, err := e.Apply("alpha", t1.ID, Update{Status: statp(StatusCompleted)})
	if err != nil {
		t.Fatal(err)
	}
	if len(done.Blocks) != 0 {
		t.Errorf("completed task still blocks %v", done.Blocks)
	}

	b2, _ := e.Get("alpha", t2.ID)
	if len(b2.BlockedBy) != 0 {
		t.Errorf("t2 still blocked by %v", b2.BlockedBy)
	}
	b3, _ := e.Get("alpha", t3.ID)
	if len(b3.BlockedBy) != 1 || b3.BlockedBy[0] != t2.ID {
		t.Errorf("t3 blockedBy = %v, want [%d]", b3.BlockedBy, t2.ID)
	}
}

func TestApply_BlockedTaskCannotStart(t *testing.T) {
	e := newTestEngine(t)
	t1, _ := e.Create("alpha", "a", "", nil)
	t2, _ := e.Create("alpha", "b", "", []int{t1.ID})

	_, err := e.Apply("alpha", t2.ID, Update{Status: statp(StatusInProgress)})
	if !errors.Is(err, errdefs.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}

	// Clearing the dependency in the same update unblocks the start.
	got, err := e.Apply("alpha", t2.ID, Update{Status: statp(StatusInProgress), BlockedBy: intsp()})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusInProgress {
		t.Errorf("status = %s", got.Status)
	}
	b1, _ := e.Get("alpha", t1.ID)
	if len(b1.Blocks) != 0 {
		t.Errorf("mirror edge not removed: %v", b1.Blocks)
	}
}

func TestApply_StatusMonotonic(t *testing.T) {
	e := newTestEngine(t)
	t1, _ := e.Create("alpha", "a", "", nil)
	if _, err := e.Apply("alpha", t1.ID, Update{Status: statp(StatusInProgress)}); err != nil {
		t.Fatal(err)
	}

	// Backwards is rejected.
	if _, err := e.Apply("alpha", t1.ID, Update{Status: statp(StatusPending)}); !errors.Is(err, errdefs.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}

	if _, err := e.Apply("alpha", t1.ID, Update{Status: statp(StatusCompleted)}); err != nil {
		t.Fatal(err)
	}
	// Terminal tasks are frozen, even toward cancelled.
	if _, err := e.Apply("alpha", t1.ID, Update{Status: statp(StatusCancelled)}); !errors.Is(err, errdefs.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestApply_CancelFromAnyNonTerminal(t *testing.T) {
	e := newTestEngine(t)
	t1, _ := e.Create("alpha", "a", "", nil)
	if _, err := e.Apply("alpha", t1.ID, Update{Status: statp(StatusCancelled)}); err != nil {
		t.Fatal(err)
	}

	t2, _ := e.Create("alpha", "b", "", nil)
	e.Apply("alpha", t2.ID, Update{Status: statp(StatusInProgress)})
	if _, err := e.Apply("alpha", t2.ID, Update{Status: statp(StatusCancelled)}); err != nil {
		t.Fatal(err)
	}
}

func TestApply_UnknownStatusAndMissingTask(t *testing.T) {
	e := newTestEngine(t)
	t1, _ := e.Create("alpha", "a", "", nil)

	if _, err := e.Apply("alpha", t1.ID, Update{Status: statp(Status("paused"))}); !errors.Is(err, errdefs.ErrInvalidArg) {
		t.Errorf("expected ErrInvalidArg, got %v", err)
	}
	if _, err := e.Apply("alpha", 42, Update{Subject: strp("x")}); !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := e.Get("alpha", 42); !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type recordingNotifier struct {
	assigned  []Task
	completed []Task
}

func (n *recordingNotifier) TaskAssigned(_ string, task Task)  { n.assigned = append(n.assigned, task) }
func (n *recordingNotifier) TaskCompleted(_ string, task Task) { n.completed = append(n.completed, task) }

func TestApply_NotifierEvents(t *testing.T) {
	e := newTestEngine(t)
	n := &recordingNotifier{}
	e.SetNotifier(n)

	t1, _ := e.Create("alpha", "a", "", nil)

	e.Apply("alpha", t1.ID, Update{Owner: strp("bob"), Status: statp(StatusInProgress)})
	if len(n.assigned) != 1 || n.assigned[0].Owner != "bob" {
		t.Fatalf("assigned events: %+v", n.assigned)
	}

	// Re-stating the same owner is not a new assignment.
	e.Apply("alpha", t1.ID, Update{Owner: strp("bob")})
	if len(n.assigned) != 1 {
		t.Errorf("duplicate assignment notified: %+v", n.assigned)
	}

	e.Apply("alpha", t1.ID, Update{Status: statp(StatusCompleted)})
	if len(n.completed) != 1 || n.completed[0].ID != t1.ID {
		t.Errorf("completed events: %+v", n.completed)
	}
}

func TestReleaseOwner(t *testing.T) {
	e := newTestEngine(t)
	t1, _ := e.Create("alpha", "a", "", nil)
	t2, _ := e.Create("alpha", "b", "", nil)
	e.Apply("alpha", t1.ID, Update{Owner: strp("bob"), Status: statp(StatusInProgress)})
	e.Apply("alpha", t2.ID, Update{Owner: strp("eve")})

	if err := e.ReleaseOwner("alpha", "bob"); err != nil {
		t.Fatal(err)
	}
	b1, _ := e.Get("alpha", t1.ID)
	if b1.Owner != "" {
		t.Errorf("owner not released: %q", b1.Owner)
	}
	if b1.Status != StatusInProgress {
		t.Errorf("release changed status: %s", b1.Status)
	}
	b2, _ := e.Get("alpha", t2.ID)
	if b2.Owner != "eve" {
		t.Errorf("unrelated owner touched: %q", b2.Owner)
	}
}

func TestList_SortedByID(t *testing.T) {
	e := newTestEngine(t)
	e.Create("alpha", "a", "", nil)
	e.Create("alpha", "b", "", nil)
	e.Create("alpha", "c", "", nil)

	list, err := e.List("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(list))
	}
	for i, task := range list {
		if task.ID != i+1 {
			t.Errorf("position %d holds id %d", i, task.ID)
		}
	}

	// An empty team lists cleanly.
	empty, err := e.List("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no tasks, got %d", len(empty))
	}
}
