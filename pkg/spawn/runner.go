package spawn

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// Runner executes a short-lived subprocess and returns its stdout. Tests
// inject fakes to exercise the spawn and health paths without a live
// multiplexer.
type Runner interface {
	Output(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec under a per-call deadline.
type ExecRunner struct{}

// Output runs the command and returns trimmed stdout. Deadline expiry maps
// to ErrTimeout, launch or exit failures to ErrSpawn with stderr attached.
func (ExecRunner) Output(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s timed out after %s", errdefs.ErrTimeout, name, timeout)
		}
		return "", fmt.Errorf("%w: %s %s: %v (%s)", errdefs.ErrSpawn, name,
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}
