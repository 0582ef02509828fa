package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// Watch streams newly appended messages for one agent. It observes the
// inbox directory with fsnotify and diffs snapshots by message ID, so it
// never read-marks anything — external agents still consume through the
// tool surface. The channel closes when ctx is cancelled.
func (ib *Inbox) Watch(ctx context.Context, team, agent string) (<-chan Message, error) {
	dir := ib.store.InboxDir(team)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create inbox dir: %v", errdefs.ErrStorage, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: create watcher: %v", errdefs.ErrStorage, err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("%w: watch %s: %v", errdefs.ErrStorage, dir, err)
	}

	path := ib.store.InboxPath(team, agent)
	seen := make(map[string]bool)
	if msgs, err := ib.snapshot(path); err == nil {
		for _, m := range msgs {
			seen[m.ID] = true
		}
	}

	ch := make(chan Message, 16)
	go func() {
		defer watcher.Close()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Atomic writes surface as Create (rename) events.
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Base(event.Name) != filepath.Base(path) {
					continue
				}
				msgs, err := ib.snapshot(path)
				if err != nil {
					continue
				}
				for _, m := range msgs {
					if seen[m.ID] {
						continue
					}
					seen[m.ID] = true
					select {
					case ch <- m:
					case <-ctx.Done():
						return
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return ch, nil
}
