package spawn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// tmuxTimeout bounds every multiplexer query; a probe that exceeds it
// reports unknown rather than an error.
const tmuxTimeout = 5 * time.Second

// Tmux drives the terminal multiplexer through a Runner. With useWindows
// set, teammates get whole windows instead of split panes.
type Tmux struct {
	run        Runner
	useWindows bool
}

// NewTmux creates a Tmux wrapper.
func NewTmux(run Runner, useWindows bool) *Tmux {
	return &Tmux{run: run, useWindows: useWindows}
}

// Split creates a new pane (or window) running command in cwd and returns
// the new pane's id, captured from the splitter's stdout.
func (t *Tmux) Split(ctx context.Context, cwd, command string) (string, error) {
	sub := "split-window"
	if t.useWindows {
		sub = "new-window"
	}
	out, err := t.run.Output(ctx, tmuxTimeout, "tmux",
		sub, "-P", "-F", "#{pane_id}", "-d", "-c", cwd, command)
	if err != nil {
		return "", err
	}
	paneID := strings.TrimSpace(out)
	if paneID == "" {
		return "", fmt.Errorf("%w: tmux %s returned no pane id", errdefs.ErrSpawn, sub)
	}
	return paneID, nil
}

// KillPane removes a pane. A pane that is already gone is not an error.
func (t *Tmux) KillPane(ctx context.Context, paneID string) error {
	_, err := t.run.Output(ctx, tmuxTimeout, "tmux", "kill-pane", "-t", paneID)
	if err != nil && !isMissingPane(err) {
		return err
	}
	return nil
}

// PaneDead queries the pane_dead flag. An absent pane reports dead.
func (t *Tmux) PaneDead(ctx context.Context, paneID string) (bool, error) {
	out, err := t.run.Output(ctx, tmuxTimeout, "tmux",
		"display-message", "-p", "-t", paneID, "#{pane_dead}")
	if err != nil {
		if isMissingPane(err) {
			return true, nil
		}
		return false, err
	}
	return strings.TrimSpace(out) == "1", nil
}

// Capture returns the pane's visible buffer.
func (t *Tmux) Capture(ctx context.Context, paneID string) (string, error) {
	return t.run.Output(ctx, tmuxTimeout, "tmux", "capture-pane", "-p", "-t", paneID)
}

// isMissingPane matches the multiplexer's "can't find pane" failures, which
// kill and liveness paths treat as already-gone.
func isMissingPane(err error) bool {
	if !errors.Is(err, errdefs.ErrSpawn) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "can't find pane") ||
		strings.Contains(msg, "can't find window") ||
		strings.Contains(msg, "no such pane")
}
