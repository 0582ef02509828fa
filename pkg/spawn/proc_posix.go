//go:build !windows

package spawn

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// detachAttr detaches the desktop subprocess into its own session so it
// survives the coordinator.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// processAlive probes liveness with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}

// terminateProcess sends SIGTERM; an already-dead process is not an error.
func terminateProcess(pid int) error {
	if pid <= 0 {
		return nil
	}
	err := syscall.Kill(pid, syscall.SIGTERM)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return fmt.Errorf("%w: terminate pid %d: %v", errdefs.ErrSpawn, pid, err)
}
