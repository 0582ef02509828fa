// Package errdefs defines the closed error taxonomy shared by every
// coordination component. Components wrap these sentinels with context via
// fmt.Errorf("...: %w", ...); the coordinator matches them with errors.Is
// and maps them to wire envelopes via Kind.
package errdefs

import "errors"

var (
	// ErrInvalidArg marks a malformed or out-of-range argument.
	ErrInvalidArg = errors.New("invalid argument")
	// ErrInvalidName marks a team or member name failing validation.
	ErrInvalidName = errors.New("invalid name")
	// ErrNotFound marks a missing team, member, task, or inbox.
	ErrNotFound = errors.New("not found")
	// ErrExists marks creation of something that already exists.
	ErrExists = errors.New("already exists")
	// ErrBusy marks a session that already holds a team, or a team that
	// still has teammate members.
	ErrBusy = errors.New("busy")
	// ErrCycle marks a task-graph edge that would create a cycle.
	ErrCycle = errors.New("dependency cycle")
	// ErrUnknownTemplate marks an unrecognized agent template name.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrIllegalTransition marks a task status change violating the
	// pending < in_progress < completed order.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrSpawn marks a subprocess launch or control failure.
	ErrSpawn = errors.New("spawn failure")
	// ErrStorage marks an I/O failure in the on-disk store.
	ErrStorage = errors.New("storage failure")
	// ErrTimeout marks an operation exceeding its deadline.
	ErrTimeout = errors.New("timeout")
)

// kinds pairs each sentinel with its wire identifier. Order matters for
// Kind: more specific sentinels that wrap others are not used, so a single
// linear scan is sufficient.
var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidArg, "ErrInvalidArg"},
	{ErrInvalidName, "ErrInvalidName"},
	{ErrNotFound, "ErrNotFound"},
	{ErrExists, "ErrExists"},
	{ErrBusy, "ErrBusy"},
	{ErrCycle, "ErrCycle"},
	{ErrUnknownTemplate, "ErrUnknownTemplate"},
	{ErrIllegalTransition, "ErrIllegalTransition"},
	{ErrSpawn, "ErrSpawn"},
	{ErrStorage, "ErrStorage"},
	{ErrTimeout, "ErrTimeout"},
}

// Kind returns the wire identifier for err. Errors outside the taxonomy
// report as ErrStorage: the only failures that escape component validation
// are I/O.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "ErrStorage"
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsBusy reports whether err is (or wraps) ErrBusy.
func IsBusy(err error) bool { return errors.Is(err, ErrBusy) }
